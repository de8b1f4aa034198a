// Package health serves the readiness check over the service dependencies.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"creditlens/pkg/platform/httputil"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Response is the health check body.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs every check with timeout and answers 200 when all pass,
// 503 otherwise. Nil checks are skipped.
func Handler(timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name, c := range checks {
		if c != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := Response{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
