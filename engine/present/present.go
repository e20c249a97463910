// Package present shapes cascade and tyre results for the widget: option
// fragments for the select boxes, the tyre list view, and the shop search
// link built from the core sizes of a result.
package present

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/pkg/fn"
)

// Placeholders shown when a stage has nothing to offer.
const (
	NoBrands        = "No brands found"
	NoModels        = "No models found"
	NoYears         = "No years found"
	NoModifications = "No modifications found"
	NoTyres         = "No tyres found for this vehicle!"
	LookupFailed    = "Could not load tyres for this vehicle, please try again."
)

// Option is one entry of a select box.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var optionsTmpl = template.Must(template.New("options").Parse(
	`{{if .Options}}{{range .Options}}<option value="{{.Value}}">{{.Label}}</option>{{end}}` +
		`{{else}}<option selected disabled>{{.Empty}}</option>{{end}}`))

// RenderOptions renders an <option> fragment, or the placeholder as a single
// disabled option when opts is empty.
func RenderOptions(opts []Option, empty string) (string, error) {
	var buf bytes.Buffer
	err := optionsTmpl.Execute(&buf, struct {
		Options []Option
		Empty   string
	}{opts, empty})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BrandOptions maps brands to options.
func BrandOptions(items []domain.Brand) []Option {
	return fn.Map(items, func(b domain.Brand) Option { return Option{Value: b.ID.String(), Label: b.DisplayName} })
}

// ModelOptions maps models to options.
func ModelOptions(items []domain.Model) []Option {
	return fn.Map(items, func(m domain.Model) Option { return Option{Value: m.ID.String(), Label: m.DisplayName} })
}

// YearOptions maps years to options.
func YearOptions(items []domain.Year) []Option {
	return fn.Map(items, func(y domain.Year) Option { return Option{Value: y.ID.String(), Label: y.DisplayName} })
}

// ModificationOptions maps modifications to options.
func ModificationOptions(items []domain.Modification) []Option {
	return fn.Map(items, func(m domain.Modification) Option { return Option{Value: m.ID.String(), Label: m.DisplayName} })
}

// CandidateOptions maps tyre candidates to options.
func CandidateOptions(items []domain.TyreCandidate) []Option {
	return fn.Map(items, func(c domain.TyreCandidate) Option { return Option{Value: c.ID.String(), Label: c.ShortLabel} })
}

// TyreList statuses.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// TyreList is the wire shape of a tyre lookup.
type TyreList struct {
	Status    string                `json:"status"`
	Message   string                `json:"message,omitempty"`
	Tyres     []domain.EnrichedTyre `json:"tyres"`
	SearchURL string                `json:"search_url,omitempty"`
}

// NewTyreList converts an enrichment Result into its view. No search link is
// attached when siteBase is empty or no tyre has a recognised core size.
func NewTyreList(res fn.Result[[]domain.EnrichedTyre], siteBase string) TyreList {
	tyres, err := res.Unwrap()
	if err != nil {
		return TyreList{Status: StatusError, Message: LookupFailed, Tyres: []domain.EnrichedTyre{}}
	}
	if len(tyres) == 0 {
		return TyreList{Status: StatusEmpty, Message: NoTyres, Tyres: []domain.EnrichedTyre{}}
	}
	out := TyreList{Status: StatusOK, Tyres: tyres}
	if sizes := CoreSizes(tyres); siteBase != "" && len(sizes) > 0 {
		out.SearchURL = SearchLink(siteBase, sizes)
	}
	return out
}

// CoreSizes returns the distinct recognised core sizes in first-seen order.
func CoreSizes(tyres []domain.EnrichedTyre) []string {
	return fn.Unique(fn.FilterMap(tyres, func(t domain.EnrichedTyre) (string, bool) {
		return t.CoreSize, t.CoreSize != "" && t.CoreSize != domain.Unknown
	}))
}

// SearchLink builds the shop product search URL for tokens:
// {siteBase}?s=tok1+tok2&post_type=product, with '/' percent-encoded.
func SearchLink(siteBase string, tokens []string) string {
	escaped := fn.Map(tokens, func(t string) string { return strings.ReplaceAll(t, "/", "%2F") })
	return siteBase + "?s=" + strings.Join(escaped, "+") + "&post_type=product"
}
