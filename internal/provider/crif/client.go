// Package crif is the CRIF High Mark bureau client. It posts the applicant
// details to the vendor's credit report endpoint and returns the document
// untouched, or generates an equivalent document in sandbox mode.
package crif

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"creditlens/internal/bureau"
	"creditlens/internal/provider"
	"creditlens/internal/provider/metrics"
	"creditlens/internal/report"
	"creditlens/pkg/platform/circuit"
)

const (
	providerID   = "crif"
	reportPath   = "/v1/credit-report"
	apiKeyHeader = "X-Api-Key"
	maxBodySize  = 8 << 20
)

// Client calls the CRIF credit report API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	sandbox bool
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithSandbox makes Fetch generate documents locally instead of calling out.
func WithSandbox(enabled bool) Option {
	return func(c *Client) {
		c.sandbox = enabled
	}
}

// WithRateLimit caps outbound calls at perSecond with the given burst.
// Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a client. baseURL may be empty only in sandbox mode.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New(providerID, circuit.WithCooldown(30*time.Second)),
		now:     time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer("creditlens/provider/crif"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.sandbox && c.baseURL == "" {
		return nil, fmt.Errorf("crif base url is required outside sandbox mode")
	}
	return c, nil
}

func (c *Client) Bureau() bureau.Code {
	return bureau.CRIF
}

// Fetch pulls a credit report for the applicant.
func (c *Client) Fetch(ctx context.Context, req provider.Request) (*provider.Response, error) {
	ctx, span := c.tracer.Start(ctx, "crif.Fetch", trace.WithAttributes(
		attribute.Bool("crif.sandbox", c.sandbox),
	))
	defer span.End()

	start := c.now()
	resp, err := c.fetch(ctx, req.Normalize())
	elapsed := c.now().Sub(start)

	if err != nil {
		category := provider.GetCategory(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		c.metrics.RecordCall(providerID, string(category), elapsed)
		c.logger.ErrorContext(ctx, "crif fetch failed",
			"category", category,
			"retryable", provider.IsRetryable(err),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	c.metrics.RecordCall(providerID, "success", elapsed)
	c.logger.InfoContext(ctx, "crif report fetched",
		"sandbox", resp.Sandbox,
		"has_score", resp.Score != nil,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, req provider.Request) (*provider.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, provider.NewProviderError(provider.ErrorInvalidRequest, providerID, "invalid applicant details", err)
	}
	if c.sandbox {
		return c.parse(SandboxReport(req, c.now()), true)
	}

	if !c.breaker.Allow() {
		return nil, provider.NewProviderError(provider.ErrorProviderOutage, providerID, "circuit open", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, provider.NewProviderError(provider.ErrorRateLimited, providerID, "rate limit wait aborted", err)
		}
	}

	body, err := c.post(ctx, req)
	if err != nil {
		c.record(err)
		return nil, err
	}
	resp, err := c.parse(body, false)
	c.record(err)
	return resp, err
}

func (c *Client) post(ctx context.Context, req provider.Request) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, provider.NewProviderError(provider.ErrorInternal, providerID, "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reportPath, bytes.NewReader(payload))
	if err != nil {
		return nil, provider.NewProviderError(provider.ErrorInternal, providerID, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.apiKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, transportError(err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, provider.NewProviderError(provider.CategoryForStatus(httpResp.StatusCode), providerID,
			fmt.Sprintf("unexpected status %d", httpResp.StatusCode), nil)
	}
	return body, nil
}

func (c *Client) parse(body []byte, sandbox bool) (*provider.Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, provider.NewProviderError(provider.ErrorBadData, providerID, "response is not valid JSON", nil)
	}
	if variant, ok := report.Recognize(body); !ok || variant != report.VariantCRIF {
		return nil, provider.NewProviderError(provider.ErrorBadData, providerID, "response has no credit report header", nil)
	}
	return &provider.Response{
		Bureau:    bureau.CRIF,
		Score:     report.CRIFScore(body),
		Data:      body,
		FetchedAt: c.now().UTC(),
		Sandbox:   sandbox,
	}, nil
}

// record feeds the breaker and reports its transitions.
func (c *Client) record(err error) {
	change := c.breaker.Record(provider.BreakerOutcome(err))
	switch {
	case change.Opened:
		c.metrics.SetCircuitOpen(providerID, true)
		c.logger.Warn("crif circuit opened")
	case change.Closed:
		c.metrics.SetCircuitOpen(providerID, false)
		c.logger.Info("crif circuit closed")
	}
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return provider.NewProviderError(provider.ErrorTimeout, providerID, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return provider.NewProviderError(provider.ErrorInternal, providerID, "request canceled", err)
	}
	return provider.NewProviderError(provider.ErrorProviderOutage, providerID, "request failed", err)
}
