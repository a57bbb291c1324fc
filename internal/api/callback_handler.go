package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/lifecycle"
)

// UpdateStatus принимает callback тестера о смене статуса.
// POST /api/v1/callbacks/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	status, ok := domain.ParseProcessStatus(req.Status)
	if !ok {
		BadRequest(w, "unknown status: "+req.Status)
		return
	}

	res, err := h.engine.UpdateStatus(r.Context(), lifecycle.StatusUpdate{
		CorrelationID:       req.CorrelationID,
		Status:              status,
		Comment:             req.Comment,
		MaterialIssueFailed: req.MaterialIssueFailed,
		IsIssueStep:         req.IsIssueStep,
	})
	if HandleServiceError(w, h.logger, err) {
		return
	}

	// Шаг выдачи материала без смены статуса — подтверждаем без тела
	if res == nil {
		NoContent(w)
		return
	}

	Success(w, ExperimentFromDomain(res.Experiment))
}

// UpdateResult принимает callback тестера с результатом condition.
// POST /api/v1/callbacks/result
func (h *Handler) UpdateResult(w http.ResponseWriter, r *http.Request) {
	var req ResultCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	res, err := h.engine.UpdateResult(r.Context(), lifecycle.ResultUpdate{
		CorrelationID: req.CorrelationID,
		Passed:        req.Passed,
		Comment:       req.Comment,
	})
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, ExperimentFromDomain(res.Experiment))
}

// Progress принимает callback оркестратора о прогрессе эксперимента
// и транслирует его downstream-уведомлением.
// POST /api/v1/callbacks/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	var req ProgressCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	status, ok := domain.ParseProcessStatus(req.Status)
	if !ok {
		BadRequest(w, "unknown status: "+req.Status)
		return
	}

	err := h.engine.NotifyProgress(r.Context(), req.ExperimentID, status)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	NoContent(w)
}
