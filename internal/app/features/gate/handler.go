// internal/app/features/gate/handler.go
package gate

import (
	"net/http"

	"github.com/dalemusser/eduverse/internal/app/system/auth"
	"github.com/dalemusser/eduverse/internal/app/system/ratelimit"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler unlocks and locks the admin surface.
type Handler struct {
	Sessions *auth.SessionManager
	Attempts *ratelimit.Limiter // nil disables throttling
	Log      *zap.Logger
}

// NewHandler constructs a gate Handler.
func NewHandler(sessions *auth.SessionManager, attempts *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{Sessions: sessions, Attempts: attempts, Log: logger}
}

type loginRequest struct {
	Key string `json:"key"`
}

type gateResponse struct {
	Admin bool `json:"admin"`
}

// Login handles POST /admin/login {"key": "..."}.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	ok, err := h.Sessions.Login(w, r, req.Key)
	if err != nil {
		h.Log.Error("save admin session", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "could not start session")
		return
	}
	if !ok {
		h.Log.Info("admin login rejected", zap.String("ip", ratelimit.ClientIP(r)))
		respond.Error(w, http.StatusUnauthorized, "invalid access key")
		return
	}
	if h.Attempts != nil {
		h.Attempts.Reset(ratelimit.ClientIP(r))
	}
	respond.JSON(w, http.StatusOK, gateResponse{Admin: true})
}

// Logout handles POST /admin/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		h.Log.Warn("clear admin session", zap.Error(err))
	}
	respond.JSON(w, http.StatusOK, gateResponse{Admin: false})
}

// Session handles GET /admin/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, gateResponse{Admin: auth.IsAdmin(r)})
}

// Routes mounts the gate under /admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	if h.Attempts != nil {
		r.With(h.Attempts.Middleware).Post("/login", h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	r.Post("/logout", h.Logout)
	r.With(h.Sessions.LoadSession).Get("/session", h.Session)
	return r
}
