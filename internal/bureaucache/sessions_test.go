package bureaucache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"creditlens/internal/bureaucache/mocks"
	"creditlens/internal/report"
)

func TestSessions_Acquire(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRecordReader(ctrl)
	ctx := context.Background()

	t.Run("opens once for concurrent callers", func(t *testing.T) {
		sessions := NewSessions(store, time.Minute, nil)
		var opens atomic.Int32
		open := func(_ context.Context, c *Cache) error {
			opens.Add(1)
			time.Sleep(10 * time.Millisecond)
			c.Reset(report.Context{ID: "rep-1", FullName: "Anita Sharma"})
			c.InitializeEntitlements([]string{"experian"})
			return nil
		}

		var wg sync.WaitGroup
		caches := make([]*Cache, 8)
		for i := range caches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := sessions.Acquire(ctx, "rep-1", open)
				assert.NoError(t, err)
				caches[i] = c
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), opens.Load())
		for _, c := range caches {
			require.NotNil(t, c)
			assert.Same(t, caches[0], c)
			assert.True(t, c.IsUnlocked("experian"))
		}
		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("failed open is not kept", func(t *testing.T) {
		sessions := NewSessions(store, time.Minute, nil)
		boom := errors.New("report missing")

		_, err := sessions.Acquire(ctx, "rep-2", func(context.Context, *Cache) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, sessions.Len())

		c, err := sessions.Acquire(ctx, "rep-2", func(context.Context, *Cache) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, "rep-2", c.Context().ID)
	})

	t.Run("invalidate starts a fresh cache", func(t *testing.T) {
		sessions := NewSessions(store, time.Minute, nil)
		noop := func(context.Context, *Cache) error { return nil }

		first, err := sessions.Acquire(ctx, "rep-3", noop)
		require.NoError(t, err)
		sessions.Invalidate("rep-3")
		second, err := sessions.Acquire(ctx, "rep-3", noop)
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})

	t.Run("idle sessions expire", func(t *testing.T) {
		sessions := NewSessions(store, 20*time.Millisecond, nil)
		_, err := sessions.Acquire(ctx, "rep-4", func(context.Context, *Cache) error { return nil })
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return sessions.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("waiting caller honours its context", func(t *testing.T) {
		sessions := NewSessions(store, time.Minute, nil)
		release := make(chan struct{})
		go func() {
			_, _ = sessions.Acquire(ctx, "rep-5", func(context.Context, *Cache) error {
				<-release
				return nil
			})
		}()
		require.Eventually(t, func() bool { return sessions.Len() == 1 }, time.Second, time.Millisecond)

		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := sessions.Acquire(short, "rep-5", func(context.Context, *Cache) error { return nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
	})
}
