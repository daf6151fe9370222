// internal/app/features/browse/routes.go
package browse

import "github.com/go-chi/chi/v5"

// Routes returns the browse API; mount under /api/batches.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListBatches)
	r.Get("/{batchID}", h.GetBatch)
	r.Get("/{batchID}/subjects", h.ListSubjects)
	r.Get("/{batchID}/subjects/{subjectID}", h.GetSubject)
	return r
}
