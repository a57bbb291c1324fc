package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Waferline/internal/domain"
)

// CreateGroup создаёт группу экспериментов и ставит её оркестратору.
// POST /api/v1/groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	group := &domain.ExperimentGroup{
		ID:          uuid.New(),
		Name:        req.Name,
		Owner:       req.Owner,
		Experiments: ExperimentsToDomain(req.Experiments),
		CreatedAt:   time.Now(),
	}

	result, err := h.saga.CreateGroup(r.Context(), group)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Created(w, GroupFromDomain(result.Group))
}

// GetGroup возвращает группу по ID.
// GET /api/v1/groups/{id}
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}

	group, err := h.repo.GetGroup(r.Context(), id)
	if err != nil {
		HandleServiceError(w, h.logger, wrapRepoErr(err))
		return
	}

	Success(w, GroupFromDomain(group))
}

// UpdateGroup меняет метаданные группы и досылает обновление оркестратору.
// PUT /api/v1/groups/{id}
func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	group, err := h.repo.GetGroup(r.Context(), id)
	if err != nil {
		HandleServiceError(w, h.logger, wrapRepoErr(err))
		return
	}

	group.Name = req.Name
	if req.Owner != "" {
		group.Owner = req.Owner
	}

	result, err := h.saga.UpdateGroup(r.Context(), group)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, GroupFromDomain(result.Group))
}

// AddExperiments добавляет эксперименты в группу и досылает обновлённый
// состав оркестратору.
// POST /api/v1/groups/{id}/experiments
func (h *Handler) AddExperiments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}

	var req AddExperimentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if len(req.Experiments) == 0 {
		BadRequest(w, "experiments are required")
		return
	}

	result, err := h.saga.AddExperiments(r.Context(), id, ExperimentsToDomain(req.Experiments))
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, GroupFromDomain(result.Group))
}

// CancelExperiments массово отменяет эксперименты группы.
// POST /api/v1/groups/{id}/experiments/cancel
func (h *Handler) CancelExperiments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}

	var req CancelExperimentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	group, err := h.engine.CancelExperiments(r.Context(), id, req.ExperimentIDs, req.Comment)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, GroupFromDomain(group))
}

// DeleteExperiments отменяет и архивирует эксперименты группы.
// POST /api/v1/groups/{id}/experiments/delete
func (h *Handler) DeleteExperiments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}

	var req DeleteExperimentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	group, err := h.engine.DeleteExperiments(r.Context(), id, req.ExperimentIDs, req.Comment)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, GroupFromDomain(group))
}

// ResumeExperiment возобновляет приостановленный эксперимент.
// POST /api/v1/groups/{id}/experiments/{experimentId}/resume
func (h *Handler) ResumeExperiment(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}
	experimentID, err := uuid.Parse(r.PathValue("experimentId"))
	if err != nil {
		BadRequest(w, "invalid experiment id")
		return
	}

	var req ResumeExperimentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	exp, err := h.engine.ResumeExperiment(r.Context(), groupID, experimentID, req.Comment)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, ExperimentFromDomain(exp))
}

// UpdateExperimentsState меняет state экспериментов группы.
// PUT /api/v1/groups/{id}/experiments/state
func (h *Handler) UpdateExperimentsState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid group id")
		return
	}

	var req UpdateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	state := domain.ParseExperimentState(req.State)
	group, err := h.engine.UpdateExperimentsState(r.Context(), id, req.ExperimentIDs, state)
	if HandleServiceError(w, h.logger, err) {
		return
	}

	Success(w, GroupFromDomain(group))
}
