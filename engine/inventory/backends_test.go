package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

func TestPostgresQuery(t *testing.T) {
	s := NewPostgresSearcher(nil, "")
	sql, args, err := s.query("205/55R16").ToSql()
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT id, name, permalink, status FROM products WHERE status = $1 AND name ILIKE $2 ORDER BY id LIMIT 1"
	if sql != want {
		t.Fatalf("sql = %q\nwant  %q", sql, want)
	}
	if len(args) != 2 || args[0] != "publish" || args[1] != "%205/55R16%" {
		t.Fatalf("args = %v", args)
	}
}

func TestPostgresQueryEscapesWildcards(t *testing.T) {
	_, args, err := NewPostgresSearcher(nil, "shop_products").query("50%_off").ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if args[1] != `%50\%\_off%` {
		t.Fatalf("pattern = %v", args[1])
	}
}

func TestPostgresBlankQuerySkipsDatabase(t *testing.T) {
	// A nil runner would fail if the query were executed.
	_, ok, err := NewPostgresSearcher(nil, "").Search(context.Background(), " ")
	if ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

// --- neo4j fakes ---

type fakeResult struct {
	records []*neo4j.Record
	idx     int
	err     error
}

func (r *fakeResult) Next(context.Context) bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeResult) Record() *neo4j.Record { return r.records[r.idx-1] }
func (r *fakeResult) Err() error            { return r.err }

type fakeRunner struct {
	cypher string
	params map[string]any
	res    *fakeResult
	err    error
	closed bool
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) (result, error) {
	f.cypher, f.params = cypher, params
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeRunner) Close(context.Context) error {
	f.closed = true
	return nil
}

func neo4jWith(r *fakeRunner) *Neo4jSearcher {
	s := NewNeo4jSearcher(nil, "")
	s.newSession = func(context.Context) runner { return r }
	return s
}

func TestNeo4jSearcherFound(t *testing.T) {
	r := &fakeRunner{res: &fakeResult{records: []*neo4j.Record{{
		Keys:   []string{"id", "name", "permalink"},
		Values: []any{int64(101), "Michelin 205/55R16", "https://shop.test/p/101"},
	}}}}

	p, ok, err := neo4jWith(r).Search(context.Background(), "205/55R16")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if p.ID != "101" || p.Permalink != "https://shop.test/p/101" {
		t.Fatalf("product = %+v", p)
	}
	if r.params["q"] != "205/55R16" || r.params["status"] != "publish" {
		t.Fatalf("params = %v", r.params)
	}
	if !r.closed {
		t.Fatal("session not closed")
	}
}

func TestNeo4jSearcherNoRowsAndErrors(t *testing.T) {
	if _, ok, err := neo4jWith(&fakeRunner{res: &fakeResult{}}).Search(context.Background(), "x"); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}

	boom := errors.New("boom")
	if _, _, err := neo4jWith(&fakeRunner{err: boom}).Search(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := neo4jWith(&fakeRunner{res: &fakeResult{err: boom}}).Search(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

// --- qdrant fake ---

type fakeScroller struct {
	req  *pb.ScrollPoints
	resp *pb.ScrollResponse
	err  error
}

func (f *fakeScroller) Scroll(_ context.Context, in *pb.ScrollPoints, _ ...grpc.CallOption) (*pb.ScrollResponse, error) {
	f.req = in
	return f.resp, f.err
}

func TestQdrantSearcher(t *testing.T) {
	fs := &fakeScroller{resp: &pb.ScrollResponse{Result: []*pb.RetrievedPoint{{
		Id: pb.NewIDNum(42),
		Payload: map[string]*pb.Value{
			"name":      pb.NewValueString("Pirelli P Zero 225/45R17"),
			"permalink": pb.NewValueString("https://shop.test/p/42"),
			"status":    pb.NewValueString("publish"),
		},
	}}}}
	s := &QdrantSearcher{points: fs, collection: "products"}

	p, ok, err := s.Search(context.Background(), "225/45R17")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if p.ID != "42" || p.Permalink != "https://shop.test/p/42" {
		t.Fatalf("product = %+v", p)
	}
	if fs.req.GetCollectionName() != "products" || fs.req.GetLimit() != 1 {
		t.Fatalf("request = %v", fs.req)
	}
	must := fs.req.GetFilter().GetMust()
	if len(must) != 2 || must[1].GetField().GetMatch().GetText() != "225/45R17" {
		t.Fatalf("filter = %v", fs.req.GetFilter())
	}
}

func TestQdrantSearcherPayloadID(t *testing.T) {
	pt := &pb.RetrievedPoint{
		Id:      pb.NewIDUUID("0b6f6c3e-0000-4000-8000-000000000001"),
		Payload: map[string]*pb.Value{"product_id": pb.NewValueInt(7)},
	}
	if p := productFromPoint(pt); p.ID != "7" {
		t.Fatalf("id = %q", p.ID)
	}
	pt.Payload = nil
	if p := productFromPoint(pt); p.ID != "0b6f6c3e-0000-4000-8000-000000000001" {
		t.Fatalf("id = %q", p.ID)
	}
}

func TestQdrantSearcherEmpty(t *testing.T) {
	s := &QdrantSearcher{points: &fakeScroller{resp: &pb.ScrollResponse{}}}
	if _, ok, err := s.Search(context.Background(), "x"); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
