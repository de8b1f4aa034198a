package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"creditlens/internal/audit"
	"creditlens/internal/provider"
	"creditlens/internal/records"
	dErrors "creditlens/pkg/domain-errors"
)

// Pull fetches a fresh report for an unlocked bureau from its vendor, stores
// the score and raw payload on the report row and drops the report's cache
// session so the next view reads the new data. Concurrent pulls for the same
// report and bureau share one vendor call.
func (s *Service) Pull(ctx context.Context, reportID, bureauName string) (*PullResult, error) {
	code, err := parseBureau(bureauName)
	if err != nil {
		return nil, err
	}
	fetcher, ok := s.fetchers[code]
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "pulls are not supported for "+code.DisplayName())
	}

	c, err := s.acquire(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !c.IsUnlocked(code) {
		return nil, dErrors.New(dErrors.CodeForbidden, "bureau not unlocked")
	}
	rc := c.Context()
	req := provider.Request{
		FullName:     rc.FullName,
		PAN:          rc.PAN,
		MobileNumber: rc.MobileNumber,
		DateOfBirth:  rc.DateOfBirth,
		Gender:       rc.Gender,
	}

	v, err, _ := s.pulls.Do(reportID+"/"+code.String(), func() (any, error) {
		return s.pull(context.WithoutCancel(ctx), reportID, fetcher, req)
	})
	if err != nil {
		return nil, err
	}
	result := *v.(*PullResult)
	return &result, nil
}

func (s *Service) pull(ctx context.Context, reportID string, fetcher provider.Fetcher, req provider.Request) (*PullResult, error) {
	code := fetcher.Bureau()
	ctx, span := s.tracer.Start(ctx, "report.Pull", trace.WithAttributes(
		attribute.String("report.id", reportID),
		attribute.String("bureau", code.String()),
	))
	defer span.End()

	start := time.Now()
	resp, err := fetcher.Fetch(ctx, req)
	if err != nil {
		category := provider.GetCategory(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		s.auditor.Emit(ctx, audit.Event{
			Action:   audit.ActionBureauFetchFailed,
			ReportID: reportID,
			Bureau:   code,
			Reason:   string(category),
		})
		s.logger.ErrorContext(ctx, "bureau pull failed",
			"report_id", reportID,
			"bureau", code,
			"category", category,
			"error", err,
		)
		return nil, vendorFailure(err)
	}

	rec := records.Record{}.WithScore(code, resp.Score, resp.Data)
	if err := s.store.UpdateColumns(ctx, reportID, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logger.ErrorContext(ctx, "failed to store bureau pull",
			"report_id", reportID,
			"bureau", code,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store bureau data")
	}
	s.sessions.Invalidate(reportID)

	s.auditor.Emit(ctx, audit.Event{
		Action:   audit.ActionBureauPulled,
		ReportID: reportID,
		Bureau:   code,
		Sandbox:  resp.Sandbox,
	})
	s.logger.InfoContext(ctx, "bureau pulled",
		"report_id", reportID,
		"bureau", code,
		"sandbox", resp.Sandbox,
		"has_score", resp.Score != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &PullResult{
		ReportID:  reportID,
		Bureau:    code,
		Score:     resp.Score,
		FetchedAt: resp.FetchedAt,
		Sandbox:   resp.Sandbox,
	}, nil
}

func vendorFailure(err error) error {
	switch provider.GetCategory(err) {
	case provider.ErrorInvalidRequest:
		return dErrors.Wrap(err, dErrors.CodeValidation, "applicant details rejected by bureau")
	case provider.ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "bureau holds no file for applicant")
	case provider.ErrorTimeout, provider.ErrorProviderOutage, provider.ErrorRateLimited:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "bureau temporarily unavailable")
	case provider.ErrorBadData, provider.ErrorContractMismatch, provider.ErrorAuthentication:
		return dErrors.Wrap(err, dErrors.CodeBadGateway, "bureau returned an unusable response")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "bureau pull failed")
	}
}
