// Package selection resolves the vehicle cascade one stage at a time:
// brands, then models of a brand, years of a model, modifications of a year
// and finally the tyre candidates of a modification. Each operation is
// independent; sequencing across stages belongs to the caller.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/pkg/fn"
)

// Fetcher is the catalog capability the controller needs.
type Fetcher interface {
	FetchList(ctx context.Context, path string) fn.Result[json.RawMessage]
}

// Controller exposes one query per cascade stage.
type Controller struct {
	fetch  Fetcher
	logger *slog.Logger
}

// New creates a Controller over a catalog Fetcher.
func New(fetch Fetcher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{fetch: fetch, logger: logger}
}

// record is the common shape of the listing endpoints.
type record struct {
	ID   domain.ID    `json:"id"`
	Name domain.Field `json:"name"`
	Logo domain.Field `json:"logo"`
	Tyre domain.Field `json:"tyre"`
}

// ListBrands returns every brand in catalog order.
func (c *Controller) ListBrands(ctx context.Context) []domain.Brand {
	return list(c, ctx, "brands", "/brands", func(r record) domain.Brand {
		return domain.Brand{ID: r.ID, DisplayName: string(r.Name), LogoURL: r.Logo.OrUnknown()}
	})
}

// ListModels returns the models of a brand.
func (c *Controller) ListModels(ctx context.Context, brandID domain.ID) []domain.Model {
	return list(c, ctx, "models", childPath("models", brandID), func(r record) domain.Model {
		return domain.Model{ID: r.ID, DisplayName: string(r.Name), ParentBrandID: brandID}
	})
}

// ListYears returns the production years of a model.
func (c *Controller) ListYears(ctx context.Context, modelID domain.ID) []domain.Year {
	return list(c, ctx, "years", childPath("years", modelID), func(r record) domain.Year {
		return domain.Year{ID: r.ID, DisplayName: string(r.Name), ParentModelID: modelID}
	})
}

// ListModifications returns the modifications offered for a year.
func (c *Controller) ListModifications(ctx context.Context, yearID domain.ID) []domain.Modification {
	return list(c, ctx, "modifications", childPath("modifications", yearID), func(r record) domain.Modification {
		return domain.Modification{ID: r.ID, DisplayName: string(r.Name), ParentYearID: yearID}
	})
}

// ListTyreCandidates returns the short tyre listing of a modification. The
// label comes from `tyre`, or `name` when the catalog omits it.
func (c *Controller) ListTyreCandidates(ctx context.Context, modificationID domain.ID) []domain.TyreCandidate {
	return list(c, ctx, "tyres", childPath("tyres", modificationID), func(r record) domain.TyreCandidate {
		label := string(r.Tyre)
		if label == "" {
			label = string(r.Name)
		}
		return domain.TyreCandidate{ID: r.ID, ShortLabel: label}
	})
}

func childPath(stage string, id domain.ID) string {
	return "/" + stage + "/" + url.PathEscape(id.String())
}

// list fetches path, decodes the records and maps them in source order.
// Any failure is logged and degrades to an empty, non-nil slice.
func list[T any](c *Controller, ctx context.Context, stage, path string, f func(record) T) []T {
	res := fn.AndThen(c.fetch.FetchList(ctx, path), decodeRecords)
	recs, err := res.Unwrap()
	if err != nil {
		c.logger.Warn("stage unavailable", "stage", stage, "path", path, "kind", domain.FailureKind(err), "err", err)
		return []T{}
	}
	return fn.Map(recs, f)
}

func decodeRecords(raw json.RawMessage) fn.Result[[]record] {
	var recs []record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return fn.Err[[]record](fmt.Errorf("%w: listing: %v", domain.ErrParse, err))
	}
	return fn.Ok(recs)
}
