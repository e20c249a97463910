package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// scroller is the subset of pb.PointsClient used for product lookup.
type scroller interface {
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
}

// QdrantSearcher finds products stored as Qdrant points whose payload carries
// name, permalink and status. The name field needs a full-text index.
type QdrantSearcher struct {
	conn       *grpc.ClientConn
	points     scroller
	collection string
}

// NewQdrantSearcher dials Qdrant's gRPC endpoint at addr.
func NewQdrantSearcher(addr, collection string) (*QdrantSearcher, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("inventory: dial qdrant %s: %w", addr, err)
	}
	return &QdrantSearcher{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantSearcher) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Search implements Searcher.
func (s *QdrantSearcher) Search(ctx context.Context, query string) (Product, bool, error) {
	if strings.TrimSpace(query) == "" {
		return Product{}, false, nil
	}
	resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: s.collection,
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				pb.NewMatchKeyword("status", StatusPublished),
				pb.NewMatchText("name", query),
			},
		},
		Limit:       pb.PtrOf(uint32(1)),
		WithPayload: pb.NewWithPayload(true),
	})
	if err != nil {
		return Product{}, false, fmt.Errorf("inventory: qdrant scroll %q: %w", query, err)
	}
	pts := resp.GetResult()
	if len(pts) == 0 {
		return Product{}, false, nil
	}
	return productFromPoint(pts[0]), true, nil
}

func productFromPoint(pt *pb.RetrievedPoint) Product {
	payload := pt.GetPayload()
	p := Product{
		Name:      payload["name"].GetStringValue(),
		Permalink: payload["permalink"].GetStringValue(),
		Status:    payload["status"].GetStringValue(),
	}
	if v, ok := payload["product_id"]; ok {
		if s := v.GetStringValue(); s != "" {
			p.ID = s
		} else {
			p.ID = strconv.FormatInt(v.GetIntegerValue(), 10)
		}
	}
	if p.ID == "" {
		id := pt.GetId()
		if u := id.GetUuid(); u != "" {
			p.ID = u
		} else {
			p.ID = strconv.FormatUint(id.GetNum(), 10)
		}
	}
	return p
}
