package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

const productSearchCypher = `MATCH (p:Product {status: $status})
WHERE toLower(p.name) CONTAINS toLower($q)
RETURN p.id AS id, p.name AS name, p.permalink AS permalink
ORDER BY p.id
LIMIT 1`

// Neo4jSearcher matches (:Product) nodes whose name contains the query.
type Neo4jSearcher struct {
	driver     neo4j.DriverWithContext
	database   string
	newSession func(ctx context.Context) runner // for testing
}

// NewNeo4jSearcher creates a searcher on driver. An empty database selects
// the server default.
func NewNeo4jSearcher(driver neo4j.DriverWithContext, database string) *Neo4jSearcher {
	return &Neo4jSearcher{driver: driver, database: database}
}

func (s *Neo4jSearcher) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})}
}

// Search implements Searcher.
func (s *Neo4jSearcher) Search(ctx context.Context, query string) (Product, bool, error) {
	if strings.TrimSpace(query) == "" {
		return Product{}, false, nil
	}
	sess := s.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, productSearchCypher, map[string]any{"status": StatusPublished, "q": query})
	if err != nil {
		return Product{}, false, fmt.Errorf("inventory: neo4j search %q: %w", query, err)
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return Product{}, false, fmt.Errorf("inventory: neo4j search %q: %w", query, err)
		}
		return Product{}, false, nil
	}
	return productFromRecord(res.Record()), true, nil
}

func productFromRecord(rec *neo4j.Record) Product {
	p := Product{Status: StatusPublished}
	p.ID = recordString(rec, "id")
	p.Name = recordString(rec, "name")
	p.Permalink = recordString(rec, "permalink")
	return p
}

// recordString reads a string or integer column as text.
func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return fmt.Sprintf("%d", t)
	default:
		return fmt.Sprint(t)
	}
}
