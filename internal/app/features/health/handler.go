package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
	"github.com/dalemusser/eduverse/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Checker is the part of the sync adapter the health check needs.
type Checker interface {
	Mode() remotesync.Mode
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Sync Checker
	Log  *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(sync Checker, logger *zap.Logger) *Handler {
	return &Handler{Sync: sync, Log: logger}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status  string `json:"status"`
	Remote  string `json:"remote"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// The service keeps working from the local cache when the remote is down, so
// an unreachable remote reports "degraded" with 200 rather than failing:
//
//	{ "status":"ok", "remote":"connected" }
//	{ "status":"ok", "remote":"disabled" }
//	{ "status":"degraded", "remote":"unreachable", "message":"…", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.Sync.Mode() == remotesync.ModeLocal {
		respond.JSON(w, http.StatusOK, healthResponse{Status: "ok", Remote: "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.Sync.Ping(ctx); err != nil {
		h.Log.Warn("health-check: remote ping failed", zap.Error(err))
		respond.JSON(w, http.StatusOK, healthResponse{
			Status:  "degraded",
			Remote:  "unreachable",
			Message: "Serving from local cache",
			Error:   err.Error(),
		})
		return
	}
	respond.JSON(w, http.StatusOK, healthResponse{Status: "ok", Remote: "connected"})
}
