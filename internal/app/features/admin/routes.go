// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/eduverse/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the admin API behind RequireAdmin; mount under /admin/api.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin)

	r.Get("/snapshot", h.Snapshot)
	r.Get("/combinations", h.Combinations)
	r.Post("/reset", h.Reset)

	r.Route("/batches", func(r chi.Router) {
		r.Post("/", h.CreateBatch)
		r.Patch("/{batchID}", h.UpdateBatch)
		r.Delete("/{batchID}", h.DeleteBatch)
		r.Put("/{batchID}/subjects/{subjectID}", h.LinkSubject)
		r.Delete("/{batchID}/subjects/{subjectID}", h.UnlinkSubject)
	})

	r.Route("/subjects", func(r chi.Router) {
		r.Post("/", h.CreateSubject)
		r.Route("/{subjectID}", func(r chi.Router) {
			r.Patch("/", h.UpdateSubject)
			r.Delete("/", h.DeleteSubject)
			r.Get("/batches", h.SubjectBatches)
			r.Put("/batches", h.SetSubjectBatches)
			r.Get("/students", h.SubjectStudents)

			r.Post("/lectures", h.CreateLecture)
			r.Patch("/lectures/{itemID}", h.UpdateLecture)
			r.Delete("/lectures/{itemID}", h.DeleteLecture)

			r.Post("/notes", h.CreateNote)
			r.Patch("/notes/{itemID}", h.UpdateNote)
			r.Delete("/notes/{itemID}", h.DeleteNote)

			r.Post("/dpps", h.CreateDPP)
			r.Patch("/dpps/{itemID}", h.UpdateDPP)
			r.Delete("/dpps/{itemID}", h.DeleteDPP)
		})
	})
	return r
}
