package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Groups
	mux.Handle("POST /api/v1/groups", chain(http.HandlerFunc(h.CreateGroup)))
	mux.Handle("GET /api/v1/groups/{id}", chain(http.HandlerFunc(h.GetGroup)))
	mux.Handle("PUT /api/v1/groups/{id}", chain(http.HandlerFunc(h.UpdateGroup)))
	mux.Handle("POST /api/v1/groups/{id}/experiments", chain(http.HandlerFunc(h.AddExperiments)))

	// Bulk operations
	mux.Handle("POST /api/v1/groups/{id}/experiments/cancel", chain(http.HandlerFunc(h.CancelExperiments)))
	mux.Handle("POST /api/v1/groups/{id}/experiments/delete", chain(http.HandlerFunc(h.DeleteExperiments)))
	mux.Handle("PUT /api/v1/groups/{id}/experiments/state", chain(http.HandlerFunc(h.UpdateExperimentsState)))
	mux.Handle("POST /api/v1/groups/{id}/experiments/{experimentId}/resume", chain(http.HandlerFunc(h.ResumeExperiment)))

	// Callbacks от тестера и оркестратора
	mux.Handle("POST /api/v1/callbacks/status", chain(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("POST /api/v1/callbacks/result", chain(http.HandlerFunc(h.UpdateResult)))
	mux.Handle("POST /api/v1/callbacks/progress", chain(http.HandlerFunc(h.Progress)))
}
