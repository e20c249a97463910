// Package tyres turns a modification id into the display-ready tyre list:
// one catalog fetch, a typed decode of the nested detail payload, and an
// inventory lookup per wheel.
package tyres

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/engine/inventory"
	"github.com/WessleyAI/tyrefit/pkg/fn"
	"github.com/WessleyAI/tyrefit/pkg/metrics"
)

// Fetcher is the catalog capability the service needs.
type Fetcher interface {
	FetchList(ctx context.Context, path string) fn.Result[json.RawMessage]
}

// Inventory resolves a full tyre descriptor to store availability.
type Inventory interface {
	FindAvailable(ctx context.Context, descriptor string) domain.InventoryMatch
}

// Service is the tyre enrichment service.
type Service struct {
	fetch    Fetcher
	inv      Inventory
	notifier Notifier
	workers  int
	logger   *slog.Logger
	reg      *metrics.Registry
	pipeline fn.Stage[domain.ID, []domain.EnrichedTyre]
}

// Option customises a Service.
type Option func(*Service)

// WithWorkers bounds concurrent inventory lookups. 1 keeps them sequential.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithNotifier publishes a LookupEvent after every enrichment.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records enrichment outcomes into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) {
		if reg != nil {
			s.reg = reg
		}
	}
}

// New creates a Service.
func New(fetch Fetcher, inv Inventory, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		fetch:   fetch,
		inv:     inv,
		workers: 1,
		logger:  logger,
		reg:     metrics.New(),
	}
	for _, o := range opts {
		o(s)
	}
	s.pipeline = fn.Then(
		fn.Then(
			fn.TracedStage[domain.ID, json.RawMessage]("tyres.fetch", s.fetchDetail),
			fn.TracedStage[json.RawMessage, []domain.TyreSpec]("tyres.decode", decodeSpecs),
		),
		fn.TracedStage[[]domain.TyreSpec, []domain.EnrichedTyre]("tyres.match", s.matchAll),
	)
	return s
}

// Enrich fetches the detail payload of a modification once and returns one
// EnrichedTyre per wheel entry, in payload order. Ok with an empty slice
// means the vehicle has no tyres; Err means the catalog could not be read.
func (s *Service) Enrich(ctx context.Context, modificationID domain.ID) fn.Result[[]domain.EnrichedTyre] {
	res := s.pipeline(ctx, modificationID)

	status := "ok"
	tyres, err := res.Unwrap()
	switch {
	case err != nil:
		status = "error"
		s.logger.Error("tyre enrichment failed",
			"modification_id", modificationID,
			"kind", domain.FailureKind(err),
			"err", err,
		)
	case len(tyres) == 0:
		status = "empty"
	}
	s.reg.Counter("tyrefit_enrich_results_total", "Tyre enrichments by outcome.", "status", status).Inc()
	if err == nil {
		s.reg.Histogram("tyrefit_enrich_tyres", "Tyres per successful enrichment.", []float64{0, 1, 2, 4, 8, 16, 32}).Observe(float64(len(tyres)))
	}
	s.notify(ctx, modificationID, status, tyres)
	return res
}

func (s *Service) fetchDetail(ctx context.Context, id domain.ID) fn.Result[json.RawMessage] {
	return s.fetch.FetchList(ctx, "/tyres/"+url.PathEscape(id.String()))
}

func decodeSpecs(_ context.Context, raw json.RawMessage) fn.Result[[]domain.TyreSpec] {
	return fn.MapResult(fn.FromPair(Decode(raw)), Specs)
}

func (s *Service) matchAll(ctx context.Context, specs []domain.TyreSpec) fn.Result[[]domain.EnrichedTyre] {
	return fn.Ok(fn.ParMap(specs, s.workers, func(spec domain.TyreSpec) domain.EnrichedTyre {
		return s.matchOne(ctx, spec)
	}))
}

func (s *Service) matchOne(ctx context.Context, spec domain.TyreSpec) domain.EnrichedTyre {
	core, ok := inventory.ExtractCoreSize(spec.TireFull)
	if !ok {
		core = domain.Unknown
	}
	return domain.EnrichedTyre{
		TyreSpec: spec,
		CoreSize: core,
		Product:  s.inv.FindAvailable(ctx, spec.TireFull),
	}
}
