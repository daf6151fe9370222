// internal/app/features/status/handler.go
package status

import (
	"net/http"

	"github.com/dalemusser/eduverse/internal/app/remotesync"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Source reports sync state.
type Source interface {
	Status() remotesync.Status
}

// Revisioner reports how many snapshots the entity store has taken.
type Revisioner interface {
	Revision() uint64
}

// ClientCounter reports connected live clients.
type ClientCounter interface {
	Clients() int
}

// Handler serves the sync status indicator. Live may be nil.
type Handler struct {
	Sync  Source
	Store Revisioner
	Live  ClientCounter
	Log   *zap.Logger
}

// NewHandler constructs a status Handler.
func NewHandler(sync Source, store Revisioner, live ClientCounter, logger *zap.Logger) *Handler {
	return &Handler{Sync: sync, Store: store, Live: live, Log: logger}
}

type statusResponse struct {
	remotesync.Status
	StoreRevision uint64 `json:"storeRevision"`
	LiveClients   int    `json:"liveClients"`
}

// Serve handles GET /api/status.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:        h.Sync.Status(),
		StoreRevision: h.Store.Revision(),
	}
	if h.Live != nil {
		resp.LiveClients = h.Live.Clients()
	}
	respond.JSON(w, http.StatusOK, resp)
}

// Routes mounts the status endpoint; mount under /api/status.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
