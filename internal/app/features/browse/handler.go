// internal/app/features/browse/handler.go
//
// Package browse serves the student-facing read API: batches by class, a
// batch's subjects with content counts, and a subject's content inside a
// batch. All reads come from the entity store.
package browse

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/eduverse/internal/app/entitystore"
	"github.com/dalemusser/eduverse/internal/app/relations"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the browse endpoints.
type Handler struct {
	Store *entitystore.Store
	Log   *zap.Logger
}

// NewHandler constructs a browse Handler.
func NewHandler(store *entitystore.Store, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

type batchList struct {
	Classes []int `json:"classes"`
	Batches any   `json:"batches"`
}

// ListBatches handles GET /api/batches?class=N. Without class every batch is
// listed. Classes lists every grade that has a batch, for the filter tabs.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	class := 0
	if q := r.URL.Query().Get("class"); q != "" && q != "all" {
		n, err := strconv.Atoi(q)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "class must be a number")
			return
		}
		class = n
	}

	snap := h.Store.Snapshot()
	respond.JSON(w, http.StatusOK, batchList{
		Classes: relations.Classes(snap),
		Batches: relations.BatchesByClass(snap, class),
	})
}

// GetBatch handles GET /api/batches/{batchID}.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "batchID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "bad batch id")
		return
	}
	b, found := h.Store.Snapshot().Batch(id)
	if !found {
		respond.Error(w, http.StatusNotFound, "batch not found")
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

// ListSubjects handles GET /api/batches/{batchID}/subjects.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "batchID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "bad batch id")
		return
	}
	snap := h.Store.Snapshot()
	if _, found := snap.Batch(id); !found {
		respond.Error(w, http.StatusNotFound, "batch not found")
		return
	}
	respond.JSON(w, http.StatusOK, relations.SubjectSummaries(snap, id))
}

// GetSubject handles GET /api/batches/{batchID}/subjects/{subjectID}.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	batchID, ok := pathID(r, "batchID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "bad batch id")
		return
	}
	subjectID, ok := pathID(r, "subjectID")
	if !ok {
		respond.Error(w, http.StatusBadRequest, "bad subject id")
		return
	}

	snap := h.Store.Snapshot()
	if !relations.SubjectInBatch(snap, batchID, subjectID) {
		respond.Error(w, http.StatusNotFound, "subject not available in batch")
		return
	}
	content, _ := relations.ContentForSubject(snap, subjectID)
	respond.JSON(w, http.StatusOK, content)
}
