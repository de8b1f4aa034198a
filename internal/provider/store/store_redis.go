package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"creditlens/internal/provider"
	"creditlens/pkg/platform/sentinel"
)

// Redis is a ResponseCache shared by every server instance.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed vendor response cache.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (*provider.Response, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor response: %w", err)
	}
	var resp provider.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = r.client.Del(ctx, key).Err()
		return nil, sentinel.ErrNotFound
	}
	return &resp, nil
}

// Set stores resp with SET EX so expiry is atomic with the write.
func (r *Redis) Set(ctx context.Context, key string, resp *provider.Response, ttl time.Duration) error {
	if resp == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode vendor response: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set vendor response: %w", err)
	}
	return nil
}
