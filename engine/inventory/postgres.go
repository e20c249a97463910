package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

// Schema is the product table the PostgresSearcher reads. It mirrors the
// published-product subset of a shop export.
const Schema = `CREATE TABLE IF NOT EXISTS products (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	permalink TEXT NOT NULL,
	status    TEXT NOT NULL DEFAULT 'publish'
)`

// PostgresSearcher matches products with ILIKE on the name column.
type PostgresSearcher struct {
	runner squirrel.BaseRunner
	table  string
}

// OpenPostgres opens a lib/pq connection pool and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("inventory: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("inventory: ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSearcher searches table through runner (usually a *sql.DB).
func NewPostgresSearcher(runner squirrel.BaseRunner, table string) *PostgresSearcher {
	if table == "" {
		table = "products"
	}
	return &PostgresSearcher{runner: runner, table: table}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// query builds the lookup for a free-text token.
func (s *PostgresSearcher) query(q string) squirrel.SelectBuilder {
	return squirrel.
		Select("id", "name", "permalink", "status").
		From(s.table).
		Where(squirrel.Eq{"status": StatusPublished}).
		Where(squirrel.ILike{"name": "%" + likeEscaper.Replace(q) + "%"}).
		OrderBy("id").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)
}

// Search implements Searcher.
func (s *PostgresSearcher) Search(ctx context.Context, query string) (Product, bool, error) {
	if strings.TrimSpace(query) == "" {
		return Product{}, false, nil
	}
	var p Product
	err := s.query(query).
		RunWith(s.runner).
		QueryRowContext(ctx).
		Scan(&p.ID, &p.Name, &p.Permalink, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("inventory: postgres search %q: %w", query, err)
	}
	return p, true, nil
}

// InsertProduct stores p, replacing any row with the same id.
func (s *PostgresSearcher) InsertProduct(ctx context.Context, p Product) error {
	status := p.Status
	if status == "" {
		status = StatusPublished
	}
	_, err := squirrel.Insert(s.table).
		SetMap(map[string]interface{}{
			"id":        p.ID,
			"name":      p.Name,
			"permalink": p.Permalink,
			"status":    status,
		}).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, permalink = EXCLUDED.permalink, status = EXCLUDED.status").
		PlaceholderFormat(squirrel.Dollar).
		RunWith(s.runner).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("inventory: insert product %s: %w", p.ID, err)
	}
	return nil
}
