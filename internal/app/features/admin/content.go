// internal/app/features/admin/content.go
package admin

import (
	"net/http"

	"github.com/dalemusser/eduverse/internal/app/system/respond"
)

// subjectAndItem reads {subjectID} and, when withItem is set, {itemID}.
func subjectAndItem(w http.ResponseWriter, r *http.Request, withItem bool) (subjectID, itemID int, ok bool) {
	if subjectID, ok = pathID(w, r, "subjectID"); !ok || !withItem {
		return subjectID, 0, ok
	}
	itemID, ok = pathID(w, r, "itemID")
	return subjectID, itemID, ok
}

// CreateLecture handles POST /subjects/{subjectID}/lectures.
func (h *Handler) CreateLecture(w http.ResponseWriter, r *http.Request) {
	sid, _, ok := subjectAndItem(w, r, false)
	if !ok {
		return
	}
	var form lectureForm
	if !bind(w, r, &form) {
		return
	}
	l, err := h.Mutations.AddLecture(r.Context(), sid, form.toModel())
	if err != nil {
		h.fail(w, "add_lecture", err)
		return
	}
	respond.JSON(w, http.StatusCreated, l)
}

// UpdateLecture handles PATCH /subjects/{subjectID}/lectures/{itemID}.
func (h *Handler) UpdateLecture(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := subjectAndItem(w, r, true)
	if !ok {
		return
	}
	var form lecturePatchForm
	if !bind(w, r, &form) {
		return
	}
	l, err := h.Mutations.UpdateLecture(r.Context(), sid, id, form.toModel())
	if err != nil {
		h.fail(w, "update_lecture", err)
		return
	}
	respond.JSON(w, http.StatusOK, l)
}

// DeleteLecture handles DELETE /subjects/{subjectID}/lectures/{itemID}.
func (h *Handler) DeleteLecture(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := subjectAndItem(w, r, true)
	if !ok {
		return
	}
	if err := h.Mutations.DeleteLecture(r.Context(), sid, id); err != nil {
		h.fail(w, "delete_lecture", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNote handles POST /subjects/{subjectID}/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	sid, _, ok := subjectAndItem(w, r, false)
	if !ok {
		return
	}
	var form noteForm
	if !bind(w, r, &form) {
		return
	}
	n, err := h.Mutations.AddNote(r.Context(), sid, form.toModel())
	if err != nil {
		h.fail(w, "add_note", err)
		return
	}
	respond.JSON(w, http.StatusCreated, n)
}

// UpdateNote handles PATCH /subjects/{subjectID}/notes/{itemID}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := subjectAndItem(w, r, true)
	if !ok {
		return
	}
	var form notePatchForm
	if !bind(w, r, &form) {
		return
	}
	n, err := h.Mutations.UpdateNote(r.Context(), sid, id, form.toModel())
	if err != nil {
		h.fail(w, "update_note", err)
		return
	}
	respond.JSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /subjects/{subjectID}/notes/{itemID}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := subjectAndItem(w, r, true)
	if !ok {
		return
	}
	if err := h.Mutations.DeleteNote(r.Context(), sid, id); err != nil {
		h.fail(w, "delete_note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDPP handles POST /subjects/{subjectID}/dpps.
func (h *Handler) CreateDPP(w http.ResponseWriter, r *http.Request) {
	sid, _, ok := subjectAndItem(w, r, false)
	if !ok {
		return
	}
	var form dppForm
	if !bind(w, r, &form) {
		return
	}
	d, err := h.Mutations.AddDPP(r.Context(), sid, form.toModel())
	if err != nil {
		h.fail(w, "add_dpp", err)
		return
	}
	respond.JSON(w, http.StatusCreated, d)
}

// UpdateDPP handles PATCH /subjects/{subjectID}/dpps/{itemID}.
func (h *Handler) UpdateDPP(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := subjectAndItem(w, r, true)
	if !ok {
		return
	}
	var form dppPatchForm
	if !bind(w, r, &form) {
		return
	}
	d, err := h.Mutations.UpdateDPP(r.Context(), sid, id, form.toModel())
	if err != nil {
		h.fail(w, "update_dpp", err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// DeleteDPP handles DELETE /subjects/{subjectID}/dpps/{itemID}.
func (h *Handler) DeleteDPP(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := subjectAndItem(w, r, true)
	if !ok {
		return
	}
	if err := h.Mutations.DeleteDPP(r.Context(), sid, id); err != nil {
		h.fail(w, "delete_dpp", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
