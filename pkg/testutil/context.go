package testutil

import (
	"net/http"

	"creditlens/pkg/requestcontext"
)

// WithRequestID sets the request ID header and context value, so the ID
// survives requestcontext.Middleware and also works on bare handlers.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	req.Header.Set(requestcontext.RequestIDHeader, requestID)
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
