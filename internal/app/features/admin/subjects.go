// internal/app/features/admin/subjects.go
package admin

import (
	"net/http"

	"github.com/dalemusser/eduverse/internal/app/relations"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
)

// CreateSubject handles POST /subjects. batchIds, if given, are linked in the
// same write.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var form subjectForm
	if !bind(w, r, &form) {
		return
	}
	sub, err := h.Mutations.AddSubject(r.Context(), form.toModel())
	if err != nil {
		h.fail(w, "add_subject", err)
		return
	}
	respond.JSON(w, http.StatusCreated, sub)
}

// UpdateSubject handles PATCH /subjects/{subjectID}.
func (h *Handler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	var form subjectPatchForm
	if !bind(w, r, &form) {
		return
	}
	sub, err := h.Mutations.UpdateSubject(r.Context(), id, form.toModel())
	if err != nil {
		h.fail(w, "update_subject", err)
		return
	}
	if form.Batches != nil {
		if err := h.Mutations.SyncSubjectBatches(r.Context(), id, *form.Batches); err != nil {
			h.fail(w, "sync_subject_batches", err)
			return
		}
	}
	respond.JSON(w, http.StatusOK, sub)
}

// DeleteSubject handles DELETE /subjects/{subjectID}.
func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	if err := h.Mutations.DeleteSubject(r.Context(), id); err != nil {
		h.fail(w, "delete_subject", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubjectBatches handles GET /subjects/{subjectID}/batches.
func (h *Handler) SubjectBatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	snap := h.Store.Snapshot()
	if _, found := snap.Subject(id); !found {
		respond.Error(w, http.StatusNotFound, "not found")
		return
	}
	respond.JSON(w, http.StatusOK, relations.BatchesBySubject(snap, id))
}

// SetSubjectBatches handles PUT /subjects/{subjectID}/batches.
func (h *Handler) SetSubjectBatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	var form batchIDsForm
	if !bind(w, r, &form) {
		return
	}
	if err := h.Mutations.SyncSubjectBatches(r.Context(), id, form.BatchIDs); err != nil {
		h.fail(w, "sync_subject_batches", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type studentCount struct {
	SubjectID int   `json:"subjectId"`
	BatchIDs  []int `json:"batchIds"`
	Students  int   `json:"students"`
}

// SubjectStudents handles GET /subjects/{subjectID}/students?batches=1,2:
// the audience an upload to those batches would reach.
func (h *Handler) SubjectStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	ids, ok := parseIDList(r.URL.Query().Get("batches"))
	if !ok {
		respond.Error(w, http.StatusBadRequest, "batches must be a comma-separated list of ids")
		return
	}
	if ids == nil {
		ids = []int{}
	}
	respond.JSON(w, http.StatusOK, studentCount{
		SubjectID: id,
		BatchIDs:  ids,
		Students:  relations.StudentsInBatches(h.Store.Snapshot(), id, ids),
	})
}
