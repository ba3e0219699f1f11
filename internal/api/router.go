package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/treesync/internal/trackerservice"
)

// NewRouter creates a chi router with all tracker routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *trackerservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/domains", h.ListDomains)
	r.Post("/domains", h.CreateDomain)

	r.Post("/tasks", h.CreateTask)
	// Registered before /tasks/{taskId}; chi prefers the static segment.
	r.Get("/tasks/tree", h.Tree)
	r.Get("/tasks/{taskId}", h.GetTask)
	r.Patch("/tasks/{taskId}", h.UpdateTask)
	r.Post("/tasks/{taskId}/progress", h.UpdateProgress)
	r.Get("/tasks/{taskId}/history", h.History)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
