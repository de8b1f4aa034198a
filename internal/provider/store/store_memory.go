// Package store holds the vendor ResponseCache implementations.
package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"creditlens/internal/provider"
	"creditlens/pkg/platform/sentinel"
)

// InMemory is a process-local ResponseCache for single-instance deployments
// and tests.
type InMemory struct {
	items *gocache.Cache
}

// NewInMemory creates a cache that sweeps expired entries every cleanup.
func NewInMemory(cleanup time.Duration) *InMemory {
	return &InMemory{items: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *InMemory) Get(_ context.Context, key string) (*provider.Response, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	resp := *v.(*provider.Response)
	return &resp, nil
}

func (m *InMemory) Set(_ context.Context, key string, resp *provider.Response, ttl time.Duration) error {
	if resp == nil {
		return nil
	}
	cp := *resp
	m.items.Set(key, &cp, ttl)
	return nil
}
