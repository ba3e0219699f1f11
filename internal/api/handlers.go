package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/treesync/internal/trackerservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *trackerservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *trackerservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDomains handles GET /api/v1/domains.
//
//	@Summary		List domains
//	@Tags			domains
//	@Produce		json
//	@Success		200	{array}	models.Domain
//	@Security		BearerAuth
//	@Router			/domains [get]
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.svc.ListDomains(r.Context())
	if err != nil {
		writeError(w, "list domains", err)
		return
	}
	writeJSON(w, http.StatusOK, domains)
}

// CreateDomain handles POST /api/v1/domains.
//
//	@Summary		Create a domain
//	@Tags			domains
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDomainRequest	true	"Domain to create"
//	@Success		201		{object}	models.Domain
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/domains [post]
func (h *Handler) CreateDomain(w http.ResponseWriter, r *http.Request) {
	var req CreateDomainRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := h.svc.CreateDomain(r.Context(), req.input())
	if err != nil {
		writeError(w, "create domain", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// CreateTask handles POST /api/v1/tasks.
//
//	@Summary		Create a task under an optional parent
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTaskRequest	true	"Task to create"
//	@Success		201		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTask(r.Context(), req.input())
	if err != nil {
		writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Tree handles GET /api/v1/tasks/tree.
//
//	@Summary		Get the task forest
//	@Tags			tasks
//	@Produce		json
//	@Param			domain	query	string	false	"Keep only the roots of this domain"
//	@Success		200		{array}	TaskNode
//	@Security		BearerAuth
//	@Router			/tasks/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	roots, err := h.svc.Tree(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		writeError(w, "tree", err)
		return
	}
	writeJSON(w, http.StatusOK, roots)
}

// GetTask handles GET /api/v1/tasks/{taskId}.
//
//	@Summary		Get a task
//	@Tags			tasks
//	@Produce		json
//	@Param			taskId	path		string	true	"Task id"
//	@Success		200		{object}	models.Task
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{taskId} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTask(r.Context(), chi.URLParam(r, "taskId"))
	if err != nil {
		writeError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTask handles PATCH /api/v1/tasks/{taskId}.
//
//	@Summary		Update status, blocker or descriptive fields
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			taskId	path		string				true	"Task id"
//	@Param			body	body		UpdateTaskRequest	true	"Fields to change"
//	@Success		200		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{taskId} [patch]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "taskId"), req.input())
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateProgress handles POST /api/v1/tasks/{taskId}/progress.
//
//	@Summary		Report progress
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			taskId	path		string			true	"Task id"
//	@Param			body	body		ProgressRequest	true	"Progress report"
//	@Success		200		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{taskId}/progress [post]
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateProgress(r.Context(), chi.URLParam(r, "taskId"), trackerservice.ProgressInput{
		Progress: req.Progress,
		Summary:  req.Summary,
	})
	if err != nil {
		writeError(w, "update progress", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// History handles GET /api/v1/tasks/{taskId}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	hist, err := h.svc.History(r.Context(), chi.URLParam(r, "taskId"))
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}
