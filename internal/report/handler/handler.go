// Package handler exposes report bureau views over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"creditlens/internal/report/service"
	"creditlens/pkg/platform/httputil"
	"creditlens/pkg/requestcontext"
)

// Service defines the report operations the handler needs.
type Service interface {
	View(ctx context.Context, reportID, bureau string) (*service.BureauView, error)
	Overview(ctx context.Context, reportID string) (*service.Overview, error)
	Pull(ctx context.Context, reportID, bureau string) (*service.PullResult, error)
}

// Handler wires report endpoints to the report service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a report handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts report endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/reports/{reportID}/bureaus", func(r chi.Router) {
		r.Get("/", h.HandleOverview)
		r.Get("/{bureau}", h.HandleView)
		r.Post("/{bureau}/pull", h.HandlePull)
	})
}

// HandleOverview handles GET /reports/{reportID}/bureaus.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	overview, err := h.service.Overview(ctx, reportID)
	if err != nil {
		h.logger.ErrorContext(ctx, "report overview failed",
			"request_id", requestcontext.RequestID(ctx),
			"report_id", reportID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromOverview(overview))
}

// HandleView handles GET /reports/{reportID}/bureaus/{bureau}.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")
	bureauName := chi.URLParam(r, "bureau")

	view, err := h.service.View(ctx, reportID, bureauName)
	if err != nil {
		h.logger.ErrorContext(ctx, "bureau view failed",
			"request_id", requestcontext.RequestID(ctx),
			"report_id", reportID,
			"bureau", bureauName,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}

// HandlePull handles POST /reports/{reportID}/bureaus/{bureau}/pull.
func (h *Handler) HandlePull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	reportID := chi.URLParam(r, "reportID")
	bureauName := chi.URLParam(r, "bureau")
	start := time.Now()

	result, err := h.service.Pull(ctx, reportID, bureauName)
	if err != nil {
		h.logger.ErrorContext(ctx, "bureau pull failed",
			"request_id", requestID,
			"report_id", reportID,
			"bureau", bureauName,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "bureau pulled",
		"request_id", requestID,
		"report_id", reportID,
		"bureau", result.Bureau,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromPull(result))
}
