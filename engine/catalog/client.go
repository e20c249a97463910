// Package catalog fetches the vehicle cascade and tyre payloads from the
// remote wheels API. Every call is independent: a fixed number of attempts
// with a constant delay, and the outcome is returned as a tagged Result
// rather than a panic or a sentinel payload.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/pkg/fn"
	"github.com/WessleyAI/tyrefit/pkg/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config configures the catalog client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration // per HTTP round-trip
	MaxAttempts int           // total attempts, including the first
	RetryDelay  time.Duration // constant delay between attempts
}

// DefaultConfig returns the production budget: 60s per call, 3 attempts,
// 2s apart.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Timeout:     60 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  2 * time.Second,
	}
}

// Client is the sole owner of outbound catalog HTTP traffic.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	metrics *clientMetrics
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request counters and latency into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = &clientMetrics{reg: reg}
		}
	}
}

// New creates a Client. Zero Timeout or MaxAttempts fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	c := &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  slog.Default(),
		metrics: &clientMetrics{reg: metrics.New()},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// URL joins the base URL and path with exactly one slash.
func (c *Client) URL(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// envelope is the success shape of every catalog response.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// FetchList GETs path and returns the raw `data` member of the response.
// Transport errors, non-2xx statuses, malformed JSON and a missing `data`
// member are all retried within the attempt budget; exhausting it yields an
// Err result wrapping the last failure.
func (c *Client) FetchList(ctx context.Context, path string) fn.Result[json.RawMessage] {
	url := c.URL(path)
	stage := stageOf(path)
	start := time.Now()
	c.metrics.requests(stage).Inc()
	defer c.metrics.latency(stage).Since(start)

	opts := fn.FixedRetry(c.cfg.MaxAttempts, c.cfg.RetryDelay)
	opts.RetryIf = func(err error) bool {
		return domain.IsRetryable(err) && ctx.Err() == nil
	}
	opts.OnFailure = func(attempt int, err error) {
		c.metrics.failures(stage, domain.FailureKind(err)).Inc()
		c.logger.Warn("catalog attempt failed",
			"url", url,
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"kind", domain.FailureKind(err),
			"err", err,
		)
	}

	attempts := 0
	res := fn.Retry(ctx, opts, func(ctx context.Context) fn.Result[json.RawMessage] {
		attempts++
		c.metrics.attempts(stage).Inc()
		return c.fetchOnce(ctx, url)
	})
	if res.IsErr() {
		c.logger.Error("catalog fetch failed",
			"url", url,
			"attempts", attempts,
			"err", res.Error(),
		)
		return fn.Err[json.RawMessage](fmt.Errorf("catalog: GET %s after %d attempt(s): %w", path, attempts, res.Error()))
	}
	return res
}

func (c *Client) fetchOnce(ctx context.Context, url string) fn.Result[json.RawMessage] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fn.Err[json.RawMessage](fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fn.Err[json.RawMessage](fmt.Errorf("%w: %w", domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fn.Errf[json.RawMessage]("%w: %d", domain.ErrUpstreamStatus, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fn.Err[json.RawMessage](fmt.Errorf("%w: %w", domain.ErrTransport, err))
		}
		return fn.Err[json.RawMessage](fmt.Errorf("%w: %v", domain.ErrParse, err))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fn.Err[json.RawMessage](domain.ErrMissingData)
	}
	return fn.Ok(env.Data)
}

// stageOf reduces a request path to its first segment, e.g. "/models/7" to
// "models", so metric labels stay bounded.
func stageOf(path string) string {
	p := strings.Trim(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}

type clientMetrics struct {
	reg *metrics.Registry
}

func (m *clientMetrics) requests(stage string) *metrics.Counter {
	return m.reg.Counter("tyrefit_catalog_requests_total", "Catalog fetches started.", "stage", stage)
}

func (m *clientMetrics) attempts(stage string) *metrics.Counter {
	return m.reg.Counter("tyrefit_catalog_attempts_total", "Catalog HTTP round-trips, including retries.", "stage", stage)
}

func (m *clientMetrics) failures(stage, kind string) *metrics.Counter {
	return m.reg.Counter("tyrefit_catalog_failures_total", "Failed catalog attempts by failure kind.", "stage", stage, "kind", kind)
}

func (m *clientMetrics) latency(stage string) *metrics.Histogram {
	return m.reg.Histogram("tyrefit_catalog_request_seconds", "Catalog fetch latency including retries.", nil, "stage", stage)
}
