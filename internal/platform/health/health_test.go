package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler) (int, Response) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestHandlerAllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	code, body := serve(t, Handler(time.Second, map[string]Check{"postgres": ok, "redis": ok, "kafka": nil}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
}

func TestHandlerDegraded(t *testing.T) {
	code, body := serve(t, Handler(time.Second, map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}

func TestHandlerAppliesTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	code, body := serve(t, Handler(10*time.Millisecond, map[string]Check{"postgres": slow}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["postgres"])
}

func TestHandlerNoChecks(t *testing.T) {
	code, body := serve(t, Handler(time.Second, nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}
