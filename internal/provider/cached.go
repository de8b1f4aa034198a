package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"creditlens/internal/bureau"
	"creditlens/pkg/platform/sentinel"
)

// ResponseCache stores bureau responses by CacheKey.
type ResponseCache interface {
	// Get returns sentinel.ErrNotFound on a miss.
	Get(ctx context.Context, key string) (*Response, error)
	Set(ctx context.Context, key string, resp *Response, ttl time.Duration) error
}

// CachedFetcher serves repeat pulls for the same applicant from a
// ResponseCache. Cache failures degrade to a live fetch.
type CachedFetcher struct {
	next   Fetcher
	cache  ResponseCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with cache. A zero ttl disables caching.
func NewCached(next Fetcher, cache ResponseCache, ttl time.Duration, logger *slog.Logger) (*CachedFetcher, error) {
	if next == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("response cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger}, nil
}

func (f *CachedFetcher) Bureau() bureau.Code {
	return f.next.Bureau()
}

func (f *CachedFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	if f.ttl <= 0 {
		return f.next.Fetch(ctx, req)
	}
	key := CacheKey(f.next.Bureau(), req.PAN)

	cached, err := f.cache.Get(ctx, key)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		f.logger.WarnContext(ctx, "vendor cache read failed",
			"bureau", f.next.Bureau(),
			"error", err,
		)
	}

	resp, err := f.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, key, resp, f.ttl); err != nil {
		f.logger.WarnContext(ctx, "vendor cache write failed",
			"bureau", f.next.Bureau(),
			"error", err,
		)
	}
	return resp, nil
}
