package bureaucache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"creditlens/internal/bureaucache/metrics"
	"creditlens/internal/report"
)

// OpenFunc prepares a freshly created cache, typically by resetting it to the
// report's context and initializing entitlements.
type OpenFunc func(ctx context.Context, c *Cache) error

type session struct {
	cache *Cache
	ready chan struct{}
	err   error
}

// Sessions keeps one Cache per report ID and evicts caches idle for longer
// than the TTL.
type Sessions struct {
	store   RecordReader
	opts    []Option
	metrics *metrics.Metrics

	mu    sync.Mutex
	items *gocache.Cache
}

// NewSessions creates a session registry. opts are applied to every cache it
// creates.
func NewSessions(store RecordReader, ttl time.Duration, m *metrics.Metrics, opts ...Option) *Sessions {
	s := &Sessions{
		store:   store,
		opts:    append([]Option{WithMetrics(m)}, opts...),
		metrics: m,
		items:   gocache.New(ttl, ttl),
	}
	s.items.OnEvicted(func(string, any) {
		s.metrics.SetSessions(s.items.ItemCount())
	})
	return s
}

// Acquire returns the cache for reportID, creating and opening it on first
// use. Concurrent callers for the same report wait for the first open. A
// failed open is not kept.
func (s *Sessions) Acquire(ctx context.Context, reportID string, open OpenFunc) (*Cache, error) {
	s.mu.Lock()
	if v, ok := s.items.Get(reportID); ok {
		sess := v.(*session)
		s.items.SetDefault(reportID, sess)
		s.mu.Unlock()
		select {
		case <-sess.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if sess.err != nil {
			return nil, sess.err
		}
		return sess.cache, nil
	}

	c, err := New(s.store, report.Context{ID: reportID}, s.opts...)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sess := &session{cache: c, ready: make(chan struct{})}
	s.items.SetDefault(reportID, sess)
	s.metrics.SetSessions(s.items.ItemCount())
	s.mu.Unlock()

	sess.err = open(ctx, c)
	close(sess.ready)
	if sess.err != nil {
		s.mu.Lock()
		if v, ok := s.items.Get(reportID); ok && v.(*session) == sess {
			s.items.Delete(reportID)
		}
		s.mu.Unlock()
		return nil, sess.err
	}
	return c, nil
}

// Invalidate drops the cache for reportID. The next Acquire starts fresh.
func (s *Sessions) Invalidate(reportID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Delete(reportID)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.items.ItemCount()
}
