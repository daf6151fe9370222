// internal/app/features/admin/handler.go
//
// Package admin serves the gated JSON API that edits batches, subjects and
// their content. Every write goes through the mutation service; reads come
// from the entity store.
package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/mutations"
	"github.com/dalemusser/eduverse/internal/app/relations"
	"github.com/dalemusser/eduverse/internal/app/system/inputval"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the admin API.
type Handler struct {
	Store     *entitystore.Store
	Mutations *mutations.Service
	Log       *zap.Logger
}

// NewHandler constructs an admin Handler.
func NewHandler(store *entitystore.Store, svc *mutations.Service, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Mutations: svc, Log: logger}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// bind decodes the body into form and runs its validation rules.
func bind(w http.ResponseWriter, r *http.Request, form any) bool {
	if !respond.Decode(w, r, form) {
		return false
	}
	if res := inputval.Validate(form); res.HasErrors() {
		respond.Invalid(w, res)
		return false
	}
	return true
}

// fail maps a mutation error onto a response.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, mutations.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, "not found")
		return
	}
	h.Log.Error("admin mutation failed", zap.String("op", op), zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, "could not save change")
}

// Snapshot handles GET /snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Store.Snapshot())
}

// Combinations handles GET /combinations: every linked batch and subject
// pair, for the content upload selector.
func (h *Handler) Combinations(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, relations.AllBatchSubjectCombinations(h.Store.Snapshot()))
}

// Reset handles POST /reset: the dataset returns to its seeded defaults.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Mutations.Reset(r.Context()); err != nil {
		h.fail(w, "reset", err)
		return
	}
	h.Log.Info("dataset reset to defaults")
	w.WriteHeader(http.StatusNoContent)
}

// parseIDList reads a comma-separated list of positive ids.
func parseIDList(s string) ([]int, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || id <= 0 {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
