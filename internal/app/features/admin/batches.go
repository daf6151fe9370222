// internal/app/features/admin/batches.go
package admin

import (
	"net/http"

	"github.com/dalemusser/eduverse/internal/app/system/inputval"
	"github.com/dalemusser/eduverse/internal/app/system/respond"
)

func checkPrices(original, discount float64) inputval.Result {
	var res inputval.Result
	if discount > original {
		res.Add("discountPrice", "discountPrice must not exceed originalPrice")
	}
	return res
}

// CreateBatch handles POST /batches.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var form batchForm
	if !bind(w, r, &form) {
		return
	}
	if res := checkPrices(form.OriginalPrice, form.DiscountPrice); res.HasErrors() {
		respond.Invalid(w, res)
		return
	}
	b, err := h.Mutations.AddBatch(r.Context(), form.toModel())
	if err != nil {
		h.fail(w, "add_batch", err)
		return
	}
	respond.JSON(w, http.StatusCreated, b)
}

// UpdateBatch handles PATCH /batches/{batchID}.
func (h *Handler) UpdateBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "batchID")
	if !ok {
		return
	}
	var form batchPatchForm
	if !bind(w, r, &form) {
		return
	}
	if form.OriginalPrice != nil && form.DiscountPrice != nil {
		if res := checkPrices(*form.OriginalPrice, *form.DiscountPrice); res.HasErrors() {
			respond.Invalid(w, res)
			return
		}
	}
	b, err := h.Mutations.UpdateBatch(r.Context(), id, form.toModel())
	if err != nil {
		h.fail(w, "update_batch", err)
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

// DeleteBatch handles DELETE /batches/{batchID}.
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "batchID")
	if !ok {
		return
	}
	if err := h.Mutations.DeleteBatch(r.Context(), id); err != nil {
		h.fail(w, "delete_batch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkSubject handles PUT /batches/{batchID}/subjects/{subjectID}.
func (h *Handler) LinkSubject(w http.ResponseWriter, r *http.Request) {
	batchID, ok := pathID(w, r, "batchID")
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	if err := h.Mutations.AddSubjectToBatch(r.Context(), batchID, subjectID); err != nil {
		h.fail(w, "add_subject_to_batch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnlinkSubject handles DELETE /batches/{batchID}/subjects/{subjectID}.
func (h *Handler) UnlinkSubject(w http.ResponseWriter, r *http.Request) {
	batchID, ok := pathID(w, r, "batchID")
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	if err := h.Mutations.RemoveSubjectFromBatch(r.Context(), batchID, subjectID); err != nil {
		h.fail(w, "remove_subject_from_batch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
