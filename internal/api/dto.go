package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Waferline/internal/codec"
	"github.com/shaiso/Waferline/internal/domain"
)

// Group DTOs

// CreateGroupRequest — запрос на создание группы экспериментов.
type CreateGroupRequest struct {
	Name        string                    `json:"name"`
	Owner       string                    `json:"owner"`
	Experiments []CreateExperimentRequest `json:"experiments"`
}

// CreateExperimentRequest — запрос на создание эксперимента.
// Stages приходят без Id — идентификаторы назначает сервер.
type CreateExperimentRequest struct {
	Title                 string                  `json:"title"`
	State                 string                  `json:"state,omitempty"`
	LotID                 string                  `json:"lot_id,omitempty"`
	MaterialIssueRequired bool                    `json:"material_issue_required,omitempty"`
	Stages                []codec.CreationRequest `json:"stages"`
}

// UpdateGroupRequest — запрос на изменение метаданных группы.
type UpdateGroupRequest struct {
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

// AddExperimentsRequest — запрос на добавление экспериментов в группу.
type AddExperimentsRequest struct {
	Experiments []CreateExperimentRequest `json:"experiments"`
}

// CancelExperimentsRequest — запрос на массовую отмену экспериментов.
type CancelExperimentsRequest struct {
	ExperimentIDs []uuid.UUID `json:"experiment_ids"`
	Comment       string      `json:"comment,omitempty"`
}

// DeleteExperimentsRequest — запрос на массовое удаление (архивацию).
type DeleteExperimentsRequest struct {
	ExperimentIDs []uuid.UUID `json:"experiment_ids"`
	Comment       string      `json:"comment,omitempty"`
}

// ResumeExperimentRequest — запрос на возобновление эксперимента.
type ResumeExperimentRequest struct {
	Comment string `json:"comment,omitempty"`
}

// UpdateStateRequest — запрос на смену state экспериментов.
type UpdateStateRequest struct {
	ExperimentIDs []uuid.UUID `json:"experiment_ids"`
	State         string      `json:"state"`
}

// Callback DTOs

// StatusCallbackRequest — callback тестера о смене статуса.
// CorrelationID — id condition (Class) или stage (Olb/Ppv/Maestro).
type StatusCallbackRequest struct {
	CorrelationID       uuid.UUID `json:"correlation_id"`
	Status              string    `json:"status"`
	Comment             string    `json:"comment,omitempty"`
	MaterialIssueFailed bool      `json:"material_issue_failed,omitempty"`
	IsIssueStep         bool      `json:"is_issue_step,omitempty"`
}

// ResultCallbackRequest — callback тестера с результатом condition.
type ResultCallbackRequest struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	Passed        bool      `json:"passed"`
	Comment       string    `json:"comment,omitempty"`
}

// ProgressCallbackRequest — callback оркестратора о прогрессе эксперимента.
type ProgressCallbackRequest struct {
	ExperimentID uuid.UUID `json:"experiment_id"`
	Status       string    `json:"status"`
}

// Responses

// GroupResponse — ответ с группой экспериментов.
type GroupResponse struct {
	ID               uuid.UUID            `json:"id"`
	Name             string               `json:"name"`
	Owner            string               `json:"owner"`
	SubmittedToQueue bool                 `json:"submitted_to_queue"`
	Experiments      []ExperimentResponse `json:"experiments"`
	CreatedAt        time.Time            `json:"created_at"`
}

// ExperimentResponse — ответ с экспериментом.
type ExperimentResponse struct {
	ID            uuid.UUID            `json:"id"`
	Title         string               `json:"title"`
	State         string               `json:"state"`
	IsArchived    bool                 `json:"is_archived"`
	LotID         string               `json:"lot_id,omitempty"`
	MaterialIssue *MaterialIssueDetail `json:"material_issue,omitempty"`
	Stages        []codec.Record       `json:"stages"`
}

// MaterialIssueDetail — состояние выдачи материала в ответе.
type MaterialIssueDetail struct {
	IsRequired    bool   `json:"is_required"`
	ErrorComments string `json:"error_comments,omitempty"`
}

// GroupFromDomain конвертирует domain.ExperimentGroup в GroupResponse.
func GroupFromDomain(g *domain.ExperimentGroup) GroupResponse {
	resp := GroupResponse{
		ID:               g.ID,
		Name:             g.Name,
		Owner:            g.Owner,
		SubmittedToQueue: g.SubmittedToQueue,
		Experiments:      make([]ExperimentResponse, 0, len(g.Experiments)),
		CreatedAt:        g.CreatedAt,
	}
	for i := range g.Experiments {
		resp.Experiments = append(resp.Experiments, ExperimentFromDomain(&g.Experiments[i]))
	}
	return resp
}

// ExperimentFromDomain конвертирует domain.Experiment в ExperimentResponse.
func ExperimentFromDomain(e *domain.Experiment) ExperimentResponse {
	resp := ExperimentResponse{
		ID:         e.ID,
		Title:      e.Title,
		State:      string(e.State),
		IsArchived: e.IsArchived,
		Stages:     make([]codec.Record, 0, len(e.Stages)),
	}
	if e.Material != nil {
		resp.LotID = e.Material.LotID
		if e.Material.Issue != nil {
			resp.MaterialIssue = &MaterialIssueDetail{
				IsRequired:    e.Material.Issue.IsRequired,
				ErrorComments: e.Material.Issue.ErrorComments,
			}
		}
	}
	for i := range e.Stages {
		resp.Stages = append(resp.Stages, codec.RecordFromStage(&e.Stages[i]))
	}
	return resp
}

// ToDomain конвертирует запрос создания в доменный эксперимент.
// Всем stages и conditions назначаются свежие идентификаторы.
func (r CreateExperimentRequest) ToDomain() domain.Experiment {
	state := domain.ParseExperimentState(r.State)

	exp := domain.Experiment{
		ID:     uuid.New(),
		Title:  r.Title,
		State:  state,
		Stages: make([]domain.Stage, 0, len(r.Stages)),
	}

	if r.LotID != "" || r.MaterialIssueRequired {
		exp.Material = &domain.Material{LotID: r.LotID}
		if r.MaterialIssueRequired {
			exp.Material.Issue = &domain.MaterialIssue{IsRequired: true}
		}
	}

	for _, sr := range r.Stages {
		stage := sr.ToStage()
		if class := stage.Class(); class != nil {
			for i := range class.Conditions {
				if class.Conditions[i].ID == uuid.Nil {
					class.Conditions[i].ID = uuid.New()
				}
			}
		}
		exp.Stages = append(exp.Stages, stage)
	}

	return exp
}

// ExperimentsToDomain конвертирует набор запросов создания.
func ExperimentsToDomain(reqs []CreateExperimentRequest) []domain.Experiment {
	experiments := make([]domain.Experiment, 0, len(reqs))
	for _, req := range reqs {
		experiments = append(experiments, req.ToDomain())
	}
	return experiments
}
