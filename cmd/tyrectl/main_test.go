package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/tyrefit/pkg/natsutil"
)

func catalogStub(t *testing.T) string {
	t.Helper()
	routes := map[string]string{
		"/brands":   `{"data":[{"id":3,"name":"Toyota"}]}`,
		"/models/3": `{"data":[{"id":1,"name":"Corolla"},{"id":2,"name":"Yaris"}]}`,
		"/tyres/42": `{"data":[{"id":1,"tyre":"205/55R16","data_response":[{"wheels":[{"front":{"tire_full":"205/55R16 91V"}}]}]}]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func baseArgs(t *testing.T) cliArgs {
	return cliArgs{
		BaseURL:  catalogStub(t),
		Attempts: 1,
		Timeout:  5 * time.Second,
		Format:   "yaml",
		SiteURL:  "https://shop.test/",
	}
}

func TestRunModelsYAML(t *testing.T) {
	is := is.New(t)

	args := baseArgs(t)
	args.Models = &idCmd{ID: "3"}

	var out bytes.Buffer
	is.NoErr(run(context.Background(), args, &out))

	var models []map[string]string
	is.NoErr(yaml.NewDecoder(&out).Decode(&models))
	is.Equal(len(models), 2)
	is.Equal(models[0]["id"], "1")
	is.Equal(models[1]["name"], "Yaris")
	is.Equal(models[0]["brand_id"], "3")
}

func TestRunBrandsJSON(t *testing.T) {
	is := is.New(t)

	args := baseArgs(t)
	args.Format = "json"
	args.Brands = &brandsCmd{}

	var out bytes.Buffer
	is.NoErr(run(context.Background(), args, &out))
	is.True(strings.Contains(out.String(), `"Toyota"`))
	is.True(strings.Contains(out.String(), "\n  ")) // indented
}

func TestRunTyresWithProducts(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "products.yaml")
	is.NoErr(os.WriteFile(path, []byte(`products:
  - id: "101"
    name: Michelin 205/55R16 91V
    permalink: https://shop.test/p/101
    status: publish
`), 0o644))

	args := baseArgs(t)
	args.Format = "json"
	args.Products = path
	args.Tyres = &idCmd{ID: "42"}

	var out bytes.Buffer
	is.NoErr(run(context.Background(), args, &out))

	var list struct {
		Status    string `json:"status"`
		SearchURL string `json:"search_url"`
		Tyres     []struct {
			Product struct {
				Available bool   `json:"available"`
				Permalink string `json:"permalink"`
			} `json:"product"`
		} `json:"tyres"`
	}
	is.NoErr(json.Unmarshal(out.Bytes(), &list))
	is.Equal(list.Status, "ok")
	is.Equal(len(list.Tyres), 1)
	is.True(list.Tyres[0].Product.Available)
	is.Equal(list.Tyres[0].Product.Permalink, "https://shop.test/p/101")
	is.Equal(list.SearchURL, "https://shop.test/?s=205%2F55R16&post_type=product")
}

func TestRunFailedStagePrintsEmptyList(t *testing.T) {
	is := is.New(t)

	args := baseArgs(t)
	args.Format = "json"
	args.Years = &idCmd{ID: "404"}

	var out bytes.Buffer
	is.NoErr(run(context.Background(), args, &out))
	is.Equal(strings.TrimSpace(out.String()), "[]")
}

func TestRunRejectsBadInput(t *testing.T) {
	is := is.New(t)

	args := baseArgs(t)
	args.Format = "toml"
	args.Brands = &brandsCmd{}
	is.True(run(context.Background(), args, &bytes.Buffer{}) != nil)

	args = baseArgs(t)
	args.Models = &idCmd{ID: "../admin"}
	is.True(run(context.Background(), args, &bytes.Buffer{}) != nil)

	args = baseArgs(t)
	args.Tyres = &idCmd{ID: "42"}
	args.Products = filepath.Join(t.TempDir(), "missing.yaml")
	is.True(run(context.Background(), args, &bytes.Buffer{}) != nil)

	is.True(run(context.Background(), baseArgs(t), &bytes.Buffer{}) != nil) // no subcommand
}

func TestEncodeYAMLQuotesNumericStrings(t *testing.T) {
	is := is.New(t)

	var out bytes.Buffer
	is.NoErr(encode(&out, "yaml", map[string]string{"id": "2020"}))
	is.Equal(out.String(), "id: \"2020\"\n")
}

// natsStub answers requests with reply and delivers events to subscribers.
type natsStub struct {
	reply   string
	events  []string
	request *nats.Msg
}

func (n *natsStub) PublishMsg(*nats.Msg) error { return nil }

func (n *natsStub) RequestMsgWithContext(_ context.Context, m *nats.Msg) (*nats.Msg, error) {
	n.request = m
	return &nats.Msg{Data: []byte(n.reply)}, nil
}

func (n *natsStub) Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error) {
	go func() {
		for _, e := range n.events {
			cb(&nats.Msg{Subject: subj, Data: []byte(e)})
		}
	}()
	return nil, nil
}

func useNATS(t *testing.T, stub *natsStub) {
	t.Helper()
	prev := connectNATS
	connectNATS = func(string) (natsutil.Conn, func(), error) { return stub, func() {}, nil }
	t.Cleanup(func() { connectNATS = prev })
}

func TestRunTyresOverNATS(t *testing.T) {
	is := is.New(t)

	stub := &natsStub{reply: `{"status":"empty","message":"No tyres found for this vehicle!","tyres":[]}`}
	useNATS(t, stub)

	args := baseArgs(t)
	args.Format = "json"
	args.NATSURL = "nats://test"
	args.Tyres = &idCmd{ID: "42"}

	var out bytes.Buffer
	is.NoErr(run(context.Background(), args, &out))
	is.Equal(stub.request.Subject, "tyres.enrich")
	is.Equal(string(stub.request.Data), `{"id":"42"}`)
	is.True(strings.Contains(out.String(), `"status": "empty"`))

	stub.reply = `{"error":"id is required"}`
	err := run(context.Background(), args, &bytes.Buffer{})
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "id is required"))
}

func TestRunWatchPrintsEvents(t *testing.T) {
	is := is.New(t)

	useNATS(t, &natsStub{events: []string{
		`{"id":"a","modification_id":"42","tyres":2,"available":1,"status":"ok"}`,
		`not json`,
		`{"id":"b","modification_id":"9","tyres":0,"available":0,"status":"empty"}`,
	}})

	args := baseArgs(t)
	args.Format = "json"
	args.NATSURL = "nats://test"
	args.Watch = &watchCmd{Count: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out bytes.Buffer
	is.NoErr(run(ctx, args, &out))

	dec := json.NewDecoder(&out)
	var first, second map[string]any
	is.NoErr(dec.Decode(&first))
	is.NoErr(dec.Decode(&second))
	is.Equal(first["id"], "a")
	is.Equal(second["status"], "empty")

	args.NATSURL = ""
	is.True(run(ctx, args, &bytes.Buffer{}) != nil) // watch needs a server
}
