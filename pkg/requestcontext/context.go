// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values: the request ID used in logs and audit events and the
// request time.
//
// Middleware sets the values; services read them:
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// RequestIDHeader is read from and echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() outside of HTTP requests (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Middleware stamps every request with an ID (propagated from the header when
// present) and a fixed "now".
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)

		ctx := WithRequestID(r.Context(), reqID)
		ctx = WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
