// Command tyrectl walks the vehicle cascade against the live catalog from a
// terminal and prints each stage as YAML or JSON.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"

	"github.com/WessleyAI/tyrefit/engine/catalog"
	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/engine/inventory"
	"github.com/WessleyAI/tyrefit/engine/present"
	"github.com/WessleyAI/tyrefit/engine/selection"
	"github.com/WessleyAI/tyrefit/engine/tyres"
	"github.com/WessleyAI/tyrefit/pkg/natsutil"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nats-io/nats.go"
)

type brandsCmd struct{}

type watchCmd struct {
	Count int `arg:"-n,--count" help:"stop after this many events (0 = until interrupted)"`
}

type idCmd struct {
	ID string `arg:"positional,required" help:"identifier from the previous stage" placeholder:"<id>"`
}

type cliArgs struct {
	Brands        *brandsCmd `arg:"subcommand:brands" help:"list brands"`
	Models        *idCmd     `arg:"subcommand:models" help:"list models of a brand"`
	Years         *idCmd     `arg:"subcommand:years" help:"list years of a model"`
	Modifications *idCmd     `arg:"subcommand:modifications" help:"list modifications of a year"`
	Candidates    *idCmd     `arg:"subcommand:candidates" help:"list tyre candidates of a modification"`
	Tyres         *idCmd     `arg:"subcommand:tyres" help:"show enriched tyres of a modification"`
	Watch         *watchCmd  `arg:"subcommand:watch" help:"print lookup events published by the server"`

	BaseURL  string        `arg:"--base-url,env:CATALOG_BASE_URL" default:"http://localhost:5593/api/v1/wheels" help:"catalog API base URL" placeholder:"<url>"`
	Attempts int           `arg:"--attempts,env:CATALOG_ATTEMPTS" default:"3" help:"catalog attempts per call"`
	Timeout  time.Duration `arg:"--timeout,env:CATALOG_TIMEOUT" default:"60s" help:"catalog timeout per attempt"`
	Format   string        `arg:"--format" default:"yaml" help:"output format: yaml or json"`
	Products string        `arg:"--products,env:INVENTORY_FILE" help:"YAML product export used for availability" placeholder:"<path>"`
	SiteURL  string        `arg:"--site-url,env:SITE_BASE_URL" help:"shop base URL for the search link" placeholder:"<url>"`
	NATSURL  string        `arg:"--nats-url,env:NATS_URL" help:"ask a running server over NATS instead of calling the catalog" placeholder:"<url>"`
	Verbose  bool          `arg:"-v,--verbose" help:"log catalog attempts to stderr"`
}

func main() {
	var args cliArgs
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tyrectl:", err)
		stop()
		os.Exit(1)
	}
}

// connectNATS dials url and returns the connection with its close func.
var connectNATS = func(url string) (natsutil.Conn, func(), error) {
	nc, err := nats.Connect(url, nats.Name("tyrectl"))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to nats")
	}
	return nc, nc.Close, nil
}

func run(ctx context.Context, args cliArgs, out io.Writer) error {
	if args.Format != "yaml" && args.Format != "json" {
		return errors.Errorf("unknown format %q", args.Format)
	}

	if args.Watch != nil {
		return watch(ctx, args, out)
	}

	level := slog.LevelError + 1
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := catalog.DefaultConfig(args.BaseURL)
	if args.Attempts > 0 {
		cfg.MaxAttempts = args.Attempts
	}
	if args.Timeout > 0 {
		cfg.Timeout = args.Timeout
	}
	client := catalog.New(cfg, catalog.WithLogger(logger))
	sel := selection.New(client, logger)

	var v any
	switch {
	case args.Brands != nil:
		v = sel.ListBrands(ctx)
	case args.Models != nil:
		id, err := cliID(args.Models.ID)
		if err != nil {
			return err
		}
		v = sel.ListModels(ctx, id)
	case args.Years != nil:
		id, err := cliID(args.Years.ID)
		if err != nil {
			return err
		}
		v = sel.ListYears(ctx, id)
	case args.Modifications != nil:
		id, err := cliID(args.Modifications.ID)
		if err != nil {
			return err
		}
		v = sel.ListModifications(ctx, id)
	case args.Candidates != nil:
		id, err := cliID(args.Candidates.ID)
		if err != nil {
			return err
		}
		v = sel.ListTyreCandidates(ctx, id)
	case args.Tyres != nil:
		id, err := cliID(args.Tyres.ID)
		if err != nil {
			return err
		}
		if args.NATSURL != "" {
			list, err := remoteTyres(ctx, args, id)
			if err != nil {
				return err
			}
			v = list
			break
		}
		searcher, err := loadProducts(args.Products)
		if err != nil {
			return err
		}
		svc := tyres.New(client, inventory.NewMatcher(searcher, logger, nil), logger)
		v = present.NewTyreList(svc.Enrich(ctx, id), args.SiteURL)
	default:
		return errors.New("missing subcommand")
	}

	return errors.Wrap(encode(out, args.Format, v), "failed to write output")
}

// remoteTyres asks a running server for the tyre list over NATS.
func remoteTyres(ctx context.Context, args cliArgs, id domain.ID) (present.TyreList, error) {
	nc, closeConn, err := connectNATS(args.NATSURL)
	if err != nil {
		return present.TyreList{}, err
	}
	defer closeConn()

	if args.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}
	list, err := natsutil.Request[tyres.LookupRequest, present.TyreList](ctx, nc, tyres.EnrichSubject, tyres.LookupRequest{ID: id})
	if err != nil {
		return present.TyreList{}, errors.Wrap(err, "enrich request failed")
	}
	return list, nil
}

// watch prints lookup events until ctx is done or Count events were seen.
func watch(ctx context.Context, args cliArgs, out io.Writer) error {
	if args.NATSURL == "" {
		return errors.New("watch needs --nats-url")
	}
	nc, closeConn, err := connectNATS(args.NATSURL)
	if err != nil {
		return err
	}
	defer closeConn()

	events := make(chan tyres.LookupEvent, 16)
	sub, err := natsutil.Subscribe(nc, tyres.LookupSubject, func(_ context.Context, ev tyres.LookupEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return errors.Wrap(err, "failed to subscribe")
	}
	if sub != nil {
		defer sub.Unsubscribe()
	}

	for seen := 0; args.Watch.Count == 0 || seen < args.Watch.Count; seen++ {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := encode(out, args.Format, ev); err != nil {
				return errors.Wrap(err, "failed to write output")
			}
		}
	}
	return nil
}

func cliID(raw string) (domain.ID, error) {
	if err := domain.ValidateID("id", raw); err != nil {
		return "", errors.Wrap(err, "bad identifier")
	}
	return domain.ID(raw), nil
}

// loadProducts reads the product export, or returns an empty searcher when
// no file is given so every tyre reports as unavailable.
func loadProducts(path string) (inventory.Searcher, error) {
	if path == "" {
		return inventory.NewFileSearcher(nil), nil
	}
	s, err := inventory.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load products")
	}
	return s, nil
}
