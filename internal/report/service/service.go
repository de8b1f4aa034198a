// Package service orchestrates report views: it opens a per-report bureau
// cache, enforces entitlements, builds unified reports from cached payloads
// and pulls fresh data from bureau vendors.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"creditlens/internal/audit"
	"creditlens/internal/bureau"
	"creditlens/internal/bureaucache"
	"creditlens/internal/provider"
	"creditlens/internal/records"
	"creditlens/internal/report"
	"creditlens/internal/report/models"
	dErrors "creditlens/pkg/domain-errors"
	"creditlens/pkg/platform/sentinel"
)

// Sessions hands out one bureau cache per report.
type Sessions interface {
	Acquire(ctx context.Context, reportID string, open bureaucache.OpenFunc) (*bureaucache.Cache, error)
	Invalidate(reportID string)
}

// Auditor records bureau access.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

type nopAuditor struct{}

func (nopAuditor) Emit(context.Context, audit.Event) {}

// BureauView is one bureau's unified report.
type BureauView struct {
	ReportID string
	Bureau   bureau.Code
	Score    *int
	Report   models.UnifiedCreditReport
}

// BureauStatus is one row of the report overview.
type BureauStatus struct {
	Bureau   bureau.Code
	Unlocked bool
	Fetched  bool
	HasData  bool
	Score    *int
}

// Overview summarizes every bureau of a report.
type Overview struct {
	ReportID       string
	Bureaus        []BureauStatus
	AggregateScore int
	// DefaultBureau is empty when nothing is unlocked.
	DefaultBureau bureau.Code
}

// PullResult describes a completed vendor pull.
type PullResult struct {
	ReportID  string
	Bureau    bureau.Code
	Score     *int
	FetchedAt time.Time
	Sandbox   bool
}

// Service serves bureau views for reports.
type Service struct {
	store    records.Store
	sessions Sessions
	fetchers map[bureau.Code]provider.Fetcher
	auditor  Auditor
	logger   *slog.Logger
	tracer   trace.Tracer
	pulls    singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		if a != nil {
			s.auditor = a
		}
	}
}

// WithFetcher enables pulls for the fetcher's bureau.
func WithFetcher(f provider.Fetcher) Option {
	return func(s *Service) {
		s.fetchers[f.Bureau()] = f
	}
}

func New(store records.Store, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		store:    store,
		sessions: sessions,
		fetchers: make(map[bureau.Code]provider.Fetcher),
		auditor:  nopAuditor{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("creditlens/report/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// open binds a fresh cache to the report's identity and entitlements.
func (s *Service) open(ctx context.Context, c *bureaucache.Cache) error {
	reportID := c.Context().ID
	rec, err := s.store.GetColumns(ctx, reportID, records.IdentityColumns())
	if err != nil {
		return err
	}
	c.Reset(contextFromRecord(reportID, rec))
	c.InitializeEntitlements(rec.SelectedBureaus())
	return nil
}

func contextFromRecord(reportID string, rec records.Record) report.Context {
	return report.Context{
		ID:           reportID,
		FullName:     rec.Text(records.ColumnFullName),
		PAN:          rec.Text(records.ColumnPAN),
		DateOfBirth:  rec.Text(records.ColumnDateOfBirth),
		MobileNumber: rec.Text(records.ColumnMobileNumber),
		Gender:       rec.Text(records.ColumnGender),
		CreatedAt:    rec.CreatedAt(),
	}
}

func (s *Service) acquire(ctx context.Context, reportID string) (*bureaucache.Cache, error) {
	if reportID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "report id is required")
	}
	c, err := s.sessions.Acquire(ctx, reportID, s.open)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, sentinel.ErrUnavailable):
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "report store unavailable")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open report")
	}
}

func parseBureau(raw string) (bureau.Code, error) {
	code, err := bureau.ParseCode(raw)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "unknown bureau")
	}
	return code, nil
}
