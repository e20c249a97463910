// Package inventory answers whether the store sells a tyre size. It extracts
// the core size token from a catalog descriptor and asks a Searcher backend
// for the first published product that mentions it.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/pkg/metrics"
)

var coreSizePattern = regexp.MustCompile(`^(\d+/\d+R\d+)`)

// ExtractCoreSize returns the width/aspectRatio R rim prefix of a tyre
// descriptor, e.g. "205/55R16" from "205/55R16 91V".
func ExtractCoreSize(descriptor string) (string, bool) {
	m := coreSizePattern.FindStringSubmatch(descriptor)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Product is a published store product.
type Product struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Permalink string `yaml:"permalink" json:"permalink"`
	Status    string `yaml:"status" json:"status"`
}

// StatusPublished marks products visible in the shop.
const StatusPublished = "publish"

// Searcher runs a free-text product search and returns the best published
// match, if any.
type Searcher interface {
	Search(ctx context.Context, query string) (Product, bool, error)
}

// Matcher maps tyre descriptors to store availability.
type Matcher struct {
	search Searcher
	logger *slog.Logger
	reg    *metrics.Registry
}

// NewMatcher creates a Matcher. reg may be nil.
func NewMatcher(search Searcher, logger *slog.Logger, reg *metrics.Registry) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	return &Matcher{search: search, logger: logger, reg: reg}
}

// FindAvailable looks up the core size of descriptor. A descriptor without a
// recognisable size is unavailable and no search is made. Search errors are
// logged and reported as unavailable.
func (m *Matcher) FindAvailable(ctx context.Context, descriptor string) domain.InventoryMatch {
	core, ok := ExtractCoreSize(descriptor)
	if !ok {
		m.record(core, fmt.Errorf("%w: %q", domain.ErrExtraction, descriptor))
		return domain.Unavailable()
	}
	return m.FindCoreSize(ctx, core)
}

// FindCoreSize searches for an already extracted core size token.
func (m *Matcher) FindCoreSize(ctx context.Context, core string) domain.InventoryMatch {
	match, err := m.lookup(ctx, core)
	m.record(core, err)
	return match
}

func (m *Matcher) lookup(ctx context.Context, core string) (domain.InventoryMatch, error) {
	p, found, err := m.search.Search(ctx, core)
	if err != nil {
		return domain.Unavailable(), fmt.Errorf("%w: %w", domain.ErrInventory, err)
	}
	if !found {
		return domain.Unavailable(), fmt.Errorf("%w: %s", domain.ErrNoInventoryMatch, core)
	}
	id := p.ID
	link := p.Permalink
	if link == "" {
		link = domain.NoPermalink
	}
	return domain.InventoryMatch{ProductID: &id, Permalink: link, Available: true}, nil
}

// record counts the lookup under its failure kind, or "available".
func (m *Matcher) record(core string, err error) {
	outcome := "available"
	if err != nil {
		outcome = domain.FailureKind(err)
	}
	if errors.Is(err, domain.ErrInventory) {
		m.logger.Warn("inventory search failed", "query", core, "kind", outcome, "err", err)
	}
	m.reg.Counter("tyrefit_inventory_lookups_total", "Inventory lookups by outcome.", "outcome", outcome).Inc()
}
