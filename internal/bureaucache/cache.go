// Package bureaucache holds the per-report, entitlement-gated cache of bureau
// scores and raw payloads.
//
// Each bureau entry moves Locked -> Unlocked/NotFetched -> Fetching ->
// Fetched or FetchFailed. A failed fetch is terminal for the report context:
// the entry keeps its error and repeated views get it back without touching
// the store. At most one store call per bureau is in flight per context;
// later callers wait on the in-flight load.
package bureaucache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"creditlens/internal/bureau"
	"creditlens/internal/bureaucache/metrics"
	"creditlens/internal/records"
	"creditlens/internal/report"
)

const defaultFetchTimeout = 30 * time.Second

// RecordReader is the slice of the record store the cache needs.
type RecordReader interface {
	GetColumns(ctx context.Context, reportID string, columns []string) (records.Record, error)
}

// Entry is a point-in-time copy of one bureau's cache state.
type Entry struct {
	Score      *int
	RawData    *report.RawPayload
	IsLoading  bool
	IsFetched  bool
	IsUnlocked bool
}

// Cache owns the four bureau entries of one report context.
type Cache struct {
	store   RecordReader
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	fetchTimeout time.Duration

	mu         sync.Mutex
	rc         report.Context
	generation uint64
	entries    map[bureau.Code]*Entry
	fetched    map[bureau.Code]struct{}
	failures   map[bureau.Code]*FetchError
	inflight   map[bureau.Code]chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithFetchTimeout bounds a single bureau read. Defaults to 30s.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// New creates a cache bound to rc with every bureau locked.
func New(store RecordReader, rc report.Context, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	c := &Cache{
		store:        store,
		logger:       slog.Default(),
		tracer:       otel.Tracer("creditlens/bureaucache"),
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset(rc)
	return c, nil
}

// Reset drops all entries back to default for a new report context.
// Fetches still in flight for the old context are discarded on completion.
func (c *Cache) Reset(rc report.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rc = rc
	c.generation++
	c.entries = make(map[bureau.Code]*Entry, len(bureau.Codes()))
	for _, code := range bureau.Codes() {
		c.entries[code] = &Entry{}
	}
	c.fetched = make(map[bureau.Code]struct{})
	c.failures = make(map[bureau.Code]*FetchError)
	c.inflight = make(map[bureau.Code]chan struct{})
}

// InitializeEntitlements sets the unlocked flag of every entry from the
// entitlement list. Fetched state and data are left alone.
func (c *Cache) InitializeEntitlements(entitlements []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for code, e := range c.entries {
		e.IsUnlocked = bureau.IsUnlocked(code, entitlements)
	}
}

// Preload reads every bureau's score and raw columns in one store round trip
// and populates the unlocked entries that are neither fetched nor loading.
// Locked entries stay empty whatever the store holds. On failure entries keep
// their prior state. A FetchOne for a bureau the preload claimed waits for it.
func (c *Cache) Preload(ctx context.Context) error {
	c.mu.Lock()
	gen, reportID := c.generation, c.rc.ID
	done := make(chan struct{})
	loading := make([]bureau.Code, 0, len(c.entries))
	for _, code := range bureau.Codes() {
		e := c.entries[code]
		if !e.IsUnlocked || e.IsLoading {
			continue
		}
		if _, fetched := c.fetched[code]; fetched {
			continue
		}
		e.IsLoading = true
		c.inflight[code] = done
		loading = append(loading, code)
	}
	c.mu.Unlock()

	if len(loading) == 0 {
		close(done)
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "bureaucache.Preload", trace.WithAttributes(
		attribute.String("report.id", reportID),
	))
	defer span.End()

	start := time.Now()
	rec, err := c.store.GetColumns(ctx, reportID, records.BureauColumns())
	c.metrics.ObserveFetchLatency("preload", time.Since(start))

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)
	if gen != c.generation {
		c.metrics.RecordFetch("all", "superseded")
		return ErrSuperseded
	}
	for _, code := range loading {
		if c.inflight[code] == done {
			delete(c.inflight, code)
			c.entries[code].IsLoading = false
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preload failed")
		c.metrics.RecordFetch("all", "failure")
		fe := &FetchError{ReportID: reportID, Kind: classify(err), Err: err}
		c.logger.ErrorContext(ctx, "bureau preload failed",
			"report_id", reportID,
			"kind", fe.Kind,
			"error", err,
		)
		return fe
	}

	for _, code := range loading {
		e := c.entries[code]
		if !e.IsUnlocked {
			continue
		}
		e.Score = rec.Score(code)
		e.RawData = rawPayload(code, rec)
		if e.Score != nil {
			e.IsFetched = true
			c.fetched[code] = struct{}{}
		}
	}
	c.metrics.RecordFetch("all", "success")
	return nil
}

// FetchOne loads a single bureau. It is a no-op for locked bureaus and for
// bureaus already fetched in this context. Callers that arrive while a load
// is in flight wait for it and share its outcome. The store read is detached
// from ctx: a caller that gives up gets a transport *FetchError while the
// load completes for everyone else. A failed load is remembered and returned
// to later callers until the context resets.
func (c *Cache) FetchOne(ctx context.Context, code bureau.Code) error {
	for {
		c.mu.Lock()
		e, ok := c.entries[code]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("unknown bureau %q", code)
		}
		if !e.IsUnlocked {
			c.mu.Unlock()
			c.metrics.RecordLookup(code.String(), "locked")
			return nil
		}
		gen, reportID := c.generation, c.rc.ID
		if done, busy := c.inflight[code]; busy {
			c.mu.Unlock()
			c.metrics.RecordLookup(code.String(), "wait")
			if err := c.wait(ctx, reportID, code, done); err != nil {
				return err
			}
			if fetched, err := c.outcome(gen, code); fetched {
				return err
			}
			// a preload that found no score leaves the entry to FetchOne
			continue
		}
		if _, fetched := c.fetched[code]; fetched {
			c.mu.Unlock()
			c.metrics.RecordLookup(code.String(), "hit")
			_, err := c.outcome(gen, code)
			return err
		}
		c.fetched[code] = struct{}{}
		e.IsLoading = true
		done := make(chan struct{})
		c.inflight[code] = done
		c.mu.Unlock()

		c.metrics.RecordLookup(code.String(), "miss")
		go c.load(context.WithoutCancel(ctx), gen, reportID, code, done)
		if err := c.wait(ctx, reportID, code, done); err != nil {
			return err
		}
		_, err := c.outcome(gen, code)
		return err
	}
}

// outcome reports whether code has been fetched in context gen and the
// failure its load ended with, if any.
func (c *Cache) outcome(gen uint64, code bureau.Code) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return true, ErrSuperseded
	}
	if _, fetched := c.fetched[code]; !fetched {
		return false, nil
	}
	if fe := c.failures[code]; fe != nil {
		return true, fe
	}
	return true, nil
}

// wait blocks until done closes or the caller gives up.
func (c *Cache) wait(ctx context.Context, reportID string, code bureau.Code, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return &FetchError{Bureau: code, ReportID: reportID, Kind: KindTransport, Err: ctx.Err()}
	}
}

func (c *Cache) load(ctx context.Context, gen uint64, reportID string, code bureau.Code, done chan struct{}) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "bureaucache.FetchOne", trace.WithAttributes(
		attribute.String("report.id", reportID),
		attribute.String("bureau", code.String()),
	))
	defer span.End()

	start := time.Now()
	rec, err := c.store.GetColumns(ctx, reportID, []string{code.ScoreColumn(), code.RawDataColumn()})
	c.metrics.ObserveFetchLatency("fetch_one", time.Since(start))

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(done)
	if gen != c.generation {
		c.metrics.RecordFetch(code.String(), "superseded")
		return
	}
	delete(c.inflight, code)
	e := c.entries[code]
	e.IsLoading = false
	e.IsFetched = true
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		c.metrics.RecordFetch(code.String(), "failure")
		fe := &FetchError{Bureau: code, ReportID: reportID, Kind: classify(err), Err: err}
		c.failures[code] = fe
		c.logger.ErrorContext(ctx, "bureau fetch failed",
			"report_id", reportID,
			"bureau", code,
			"kind", fe.Kind,
			"error", err,
		)
		return
	}
	e.Score = rec.Score(code)
	e.RawData = rawPayload(code, rec)
	c.metrics.RecordFetch(code.String(), "success")
}

func rawPayload(code bureau.Code, rec records.Record) *report.RawPayload {
	raw := rec.RawData(code)
	if raw == nil {
		return nil
	}
	return report.NewRawPayload(code, raw)
}

// Context returns the report context the cache is bound to.
func (c *Cache) Context() report.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rc
}

// Score returns the cached score of code, nil when absent.
func (c *Cache) Score(code bureau.Code) *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[code]; ok && e.Score != nil {
		s := *e.Score
		return &s
	}
	return nil
}

// RawData returns the cached payload of code, nil when absent.
func (c *Cache) RawData(code bureau.Code) *report.RawPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[code]; ok {
		return e.RawData
	}
	return nil
}

func (c *Cache) IsLoading(code bureau.Code) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	return ok && e.IsLoading
}

func (c *Cache) IsUnlocked(code bureau.Code) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	return ok && e.IsUnlocked
}

func (c *Cache) IsFetched(code bureau.Code) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	return ok && e.IsFetched
}

// FirstUnlockedBureau returns the first unlocked bureau in priority order.
func (c *Cache) FirstUnlockedBureau() (bureau.Code, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, code := range bureau.Codes() {
		if c.entries[code].IsUnlocked {
			return code, true
		}
	}
	return "", false
}

// Snapshot copies every entry.
func (c *Cache) Snapshot() map[bureau.Code]Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[bureau.Code]Entry, len(c.entries))
	for code, e := range c.entries {
		cp := *e
		if e.Score != nil {
			s := *e.Score
			cp.Score = &s
		}
		out[code] = cp
	}
	return out
}

// AggregateScore averages the scores of unlocked bureaus.
func (c *Cache) AggregateScore() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	scores := make([]*int, 0, len(c.entries))
	for _, code := range bureau.Codes() {
		if e := c.entries[code]; e.IsUnlocked {
			scores = append(scores, e.Score)
		}
	}
	return bureau.AggregateScores(scores)
}
