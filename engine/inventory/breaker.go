package inventory

import (
	"context"
	"log/slog"

	"github.com/WessleyAI/tyrefit/pkg/metrics"
	"github.com/WessleyAI/tyrefit/pkg/resilience"
)

// GuardedSearcher stops calling a remote backend after repeated failures.
// While the breaker is open searches fail fast with resilience.ErrOpen, which
// the Matcher reports as unavailable.
type GuardedSearcher struct {
	next    Searcher
	breaker *resilience.Breaker
}

// NewGuardedSearcher wraps next with a breaker. The breaker position is
// exported as the tyrefit_inventory_breaker_open gauge when reg is set.
func NewGuardedSearcher(next Searcher, cfg resilience.Config, logger *slog.Logger, reg *metrics.Registry) *GuardedSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	b := resilience.New(cfg)
	b.OnChange(func(from, to resilience.State) {
		logger.Warn("inventory breaker changed state", "from", from.String(), "to", to.String())
		if reg != nil {
			var open int64
			if to == resilience.StateOpen {
				open = 1
			}
			reg.Gauge("tyrefit_inventory_breaker_open", "Whether the inventory backend breaker is open.").Set(open)
		}
	})
	return &GuardedSearcher{next: next, breaker: b}
}

// State returns the breaker position.
func (g *GuardedSearcher) State() resilience.State { return g.breaker.State() }

// Search implements Searcher.
func (g *GuardedSearcher) Search(ctx context.Context, query string) (Product, bool, error) {
	var found bool
	p, err := resilience.Guard(g.breaker, ctx, func(ctx context.Context) (Product, error) {
		p, ok, err := g.next.Search(ctx, query)
		found = ok
		return p, err
	})
	return p, found, err
}
