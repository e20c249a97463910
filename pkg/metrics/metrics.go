// Package metrics is a small Prometheus-compatible registry: counters, gauges
// and histograms keyed by name plus label set, rendered in the text
// exposition format at /metrics.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are latency buckets in seconds, sized for remote calls that
// may retry for up to two minutes.
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 125}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Inc()         { g.val.Add(1) }
func (g *Gauge) Dec()         { g.val.Add(-1) }
func (g *Gauge) Set(n int64)  { g.val.Store(n) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram tracks observations in fixed, cumulative buckets.
type Histogram struct {
	mu      sync.Mutex
	bounds  []float64
	buckets []uint64 // cumulative
	sum     float64
	count   uint64
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.bounds {
		if v <= b {
			h.buckets[i]++
		}
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

type family struct {
	kind   string
	help   string
	series map[string]any // rendered labels -> *Counter | *Gauge | *Histogram
}

// Registry holds metric families in registration order.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	order    []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// Counter returns (or creates) the counter for name and label pairs.
func (r *Registry) Counter(name, help string, labels ...string) *Counter {
	return r.series(name, "counter", help, labels, func() any { return &Counter{} }).(*Counter)
}

// Gauge returns (or creates) the gauge for name and label pairs.
func (r *Registry) Gauge(name, help string, labels ...string) *Gauge {
	return r.series(name, "gauge", help, labels, func() any { return &Gauge{} }).(*Gauge)
}

// Histogram returns (or creates) the histogram for name and label pairs.
// Nil buckets select DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64, labels ...string) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return r.series(name, "histogram", help, labels, func() any {
		b := append([]float64(nil), buckets...)
		sort.Float64s(b)
		return &Histogram{bounds: b, buckets: make([]uint64, len(b))}
	}).(*Histogram)
}

func (r *Registry) series(name, kind, help string, labels []string, mk func() any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	if !ok {
		f = &family{kind: kind, help: help, series: make(map[string]any)}
		r.families[name] = f
		r.order = append(r.order, name)
	}
	if f.kind != kind {
		panic(fmt.Sprintf("metrics: %s registered as %s, requested as %s", name, f.kind, kind))
	}
	key := labelString(labels)
	m, ok := f.series[key]
	if !ok {
		m = mk()
		f.series[key] = m
	}
	return m
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// labelString renders k1,v1,k2,v2 as k1="v1",k2="v2". A trailing odd key is dropped.
func labelString(kvs []string) string {
	var parts []string
	for i := 0; i+1 < len(kvs); i += 2 {
		parts = append(parts, kvs[i]+`="`+labelEscaper.Replace(kvs[i+1])+`"`)
	}
	return strings.Join(parts, ",")
}

func braces(labels ...string) string {
	var nonEmpty []string
	for _, l := range labels {
		if l != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	return "{" + strings.Join(nonEmpty, ",") + "}"
}

// Render returns the registry in the Prometheus text exposition format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, name := range r.order {
		f := r.families[name]
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", name, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, f.kind)

		keys := make([]string, 0, len(f.series))
		for k := range f.series {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			switch m := f.series[k].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s%s %d\n", name, braces(k), m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s%s %d\n", name, braces(k), m.Value())
			case *Histogram:
				m.mu.Lock()
				for i, bound := range m.bounds {
					fmt.Fprintf(&b, "%s_bucket%s %d\n", name, braces(k, fmt.Sprintf(`le="%g"`, bound)), m.buckets[i])
				}
				fmt.Fprintf(&b, "%s_bucket%s %d\n", name, braces(k, `le="+Inf"`), m.count)
				fmt.Fprintf(&b, "%s_sum%s %g\n", name, braces(k), m.sum)
				fmt.Fprintf(&b, "%s_count%s %d\n", name, braces(k), m.count)
				m.mu.Unlock()
			}
		}
	}
	return b.String()
}

// Handler serves the registry in the text exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
