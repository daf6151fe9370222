// internal/app/features/live/routes.go
package live

import "github.com/go-chi/chi/v5"

// Routes returns the live feed; mount under /live.
func Routes(h *Hub) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeWS)
	return r
}
