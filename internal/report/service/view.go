package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"creditlens/internal/audit"
	"creditlens/internal/bureau"
	"creditlens/internal/bureaucache"
	"creditlens/internal/report"
	dErrors "creditlens/pkg/domain-errors"
)

// View returns the unified report of one unlocked bureau, fetching its
// payload on first access.
func (s *Service) View(ctx context.Context, reportID, bureauName string) (*BureauView, error) {
	code, err := parseBureau(bureauName)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "report.View", trace.WithAttributes(
		attribute.String("report.id", reportID),
		attribute.String("bureau", code.String()),
	))
	defer span.End()

	c, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !c.IsUnlocked(code) {
		return nil, dErrors.New(dErrors.CodeForbidden, "bureau not unlocked")
	}
	if err := c.FetchOne(ctx, code); err != nil {
		if !errors.Is(err, bureaucache.ErrSuperseded) {
			s.auditor.Emit(ctx, audit.Event{
				Action:   audit.ActionBureauFetchFailed,
				ReportID: reportID,
				Bureau:   code,
				Reason:   fetchReason(err),
			})
		}
		return nil, fetchFailure(err)
	}

	raw := c.RawData(code)
	if raw == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no data for bureau")
	}
	view := &BureauView{
		ReportID: reportID,
		Bureau:   code,
		Score:    c.Score(code),
		Report:   report.Build(*raw, c.Context()),
	}
	s.auditor.Emit(ctx, audit.Event{Action: audit.ActionBureauViewed, ReportID: reportID, Bureau: code})
	return view, nil
}

// Overview reports lock and fetch state for every bureau. Unlocked bureaus
// are loaded first: one preload round trip, then individual fetches for any
// entry the preload left unfetched. Individual failures show up as fetched
// without data rather than failing the overview.
func (s *Service) Overview(ctx context.Context, reportID string) (*Overview, error) {
	ctx, span := s.tracer.Start(ctx, "report.Overview", trace.WithAttributes(
		attribute.String("report.id", reportID),
	))
	defer span.End()

	c, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}

	pending := pendingBureaus(c)
	if len(pending) == 0 {
		return overviewOf(reportID, c), nil
	}
	if err := c.Preload(ctx); err != nil && !errors.Is(err, bureaucache.ErrSuperseded) {
		s.logger.WarnContext(ctx, "bureau preload failed, fetching individually",
			"report_id", reportID,
			"error", err,
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, code := range pendingBureaus(c) {
		g.Go(func() error {
			if err := c.FetchOne(gctx, code); err != nil && !errors.Is(err, bureaucache.ErrSuperseded) {
				s.auditor.Emit(gctx, audit.Event{
					Action:   audit.ActionBureauFetchFailed,
					ReportID: reportID,
					Bureau:   code,
					Reason:   fetchReason(err),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	return overviewOf(reportID, c), nil
}

func pendingBureaus(c *bureaucache.Cache) []bureau.Code {
	var out []bureau.Code
	for _, code := range bureau.Codes() {
		if c.IsUnlocked(code) && !c.IsFetched(code) {
			out = append(out, code)
		}
	}
	return out
}

func overviewOf(reportID string, c *bureaucache.Cache) *Overview {
	snap := c.Snapshot()
	o := &Overview{ReportID: reportID, AggregateScore: c.AggregateScore()}
	for _, code := range bureau.Codes() {
		e := snap[code]
		o.Bureaus = append(o.Bureaus, BureauStatus{
			Bureau:   code,
			Unlocked: e.IsUnlocked,
			Fetched:  e.IsFetched,
			HasData:  e.RawData != nil,
			Score:    e.Score,
		})
	}
	if code, ok := c.FirstUnlockedBureau(); ok {
		o.DefaultBureau = code
	}
	return o
}

// fetchFailure maps cache errors onto domain errors.
func fetchFailure(err error) error {
	if errors.Is(err, bureaucache.ErrSuperseded) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "report changed while loading, retry")
	}
	fe, ok := bureaucache.IsFetchError(err)
	if !ok {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bureau data")
	}
	switch fe.Kind {
	case bureaucache.KindNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
	case bureaucache.KindTransport:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "bureau data temporarily unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load bureau data")
	}
}

func fetchReason(err error) string {
	if fe, ok := bureaucache.IsFetchError(err); ok {
		return string(fe.Kind)
	}
	return "internal"
}
