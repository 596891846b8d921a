// Package httptransport is the serve command's HTTP surface: health,
// metrics and a read-only company preview.
package httptransport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"salgsmotor/internal/enrichment/providers"
	"salgsmotor/internal/orchestrator"
	"salgsmotor/internal/platform/logger"
	"salgsmotor/internal/platform/metrics"
	"salgsmotor/pkg/platform/httputil"
	"salgsmotor/pkg/platform/middleware/accesslog"
	"salgsmotor/pkg/platform/middleware/requestid"
	"salgsmotor/pkg/platform/middleware/requesttime"
	"salgsmotor/pkg/platform/sentinel"
	"salgsmotor/pkg/requestcontext"
)

// Previewer enriches and evaluates one company without touching the CRM.
type Previewer interface {
	Preview(ctx context.Context, orgnr string, force bool) (*orchestrator.Preview, error)
}

// Handler serves company previews.
type Handler struct {
	previewer Previewer
	logger    *slog.Logger
}

func NewHandler(previewer Previewer, l *slog.Logger) *Handler {
	if l == nil {
		l = logger.Discard()
	}
	return &Handler{previewer: previewer, logger: l}
}

// Register mounts the preview endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies/{orgnr}", h.HandlePreview)
}

// HandlePreview handles GET /companies/{orgnr}[?force=true].
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	orgnr := chi.URLParam(r, "orgnr")

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "bad_request", Description: "force must be a boolean"})
			return
		}
		force = b
	}

	preview, err := h.previewer.Preview(ctx, orgnr, force)
	if err != nil {
		if errors.Is(err, providers.ErrAllSourcesFailed) {
			err = fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		h.logger.WarnContext(ctx, "company preview failed",
			"request_id", requestID,
			"orgnr", orgnr,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "company previewed",
		"request_id", requestID,
		"orgnr", preview.OrgNumber,
		"from_cache", preview.FromCache,
		"degraded", preview.Degraded,
		"recommendations", len(preview.Recommendations),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, preview)
}

// NewRouter builds the serve router. g is exposed on /metrics.
func NewRouter(h *Handler, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(accesslog.Middleware(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(g))
	h.Register(r)
	return r
}
