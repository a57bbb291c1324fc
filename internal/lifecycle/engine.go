package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/policy"
	"github.com/shaiso/Waferline/internal/telemetry"
)

// Engine применяет lifecycle-переходы к агрегатам ExperimentGroup.
//
// Engine — центральный компонент системы, который:
//   - Разрешает correlation id тестера в condition или stage
//   - Применяет одиночные смены статуса с побочными эффектами
//     (completion time, комментарии, material issue)
//   - Выполняет bulk-операции Cancel / Delete / Resume / Re-state
//   - Пересылает прогресс эксперимента downstream-уведомителю
//
// Состояние не хранится: каждый запрос читает агрегат, мутирует его
// в памяти и пишет назад целиком.
type Engine struct {
	repo     Repository
	policy   *policy.StatusPolicy
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Config — конфигурация Engine.
type Config struct {
	Repo     Repository
	Policy   *policy.StatusPolicy
	Notifier Notifier
	Logger   *slog.Logger

	// Now — источник времени (default: time.Now). Подменяется в тестах.
	Now func() time.Time
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		repo:     cfg.Repo,
		policy:   cfg.Policy,
		notifier: cfg.Notifier,
		logger:   logger,
		now:      now,
	}
}

// StatusUpdate — запрос одиночной смены статуса от тестера.
type StatusUpdate struct {
	// CorrelationID — непрозрачный идентификатор condition или stage.
	CorrelationID uuid.UUID

	// Status — желаемый статус.
	Status domain.ProcessStatus

	// Comment — комментарий смены статуса.
	Comment string

	// MaterialIssueFailed — переход в PAUSED вызван сбоем issue-шага.
	MaterialIssueFailed bool

	// IsIssueStep — callback только отмечает прогресс issue-шага,
	// статус не меняется.
	IsIssueStep bool
}

// UpdateStatus применяет одиночную смену статуса.
//
// Возвращает Resolution изменённой сущности; для IsIssueStep — (nil, nil),
// хранилище не затрагивается.
func (e *Engine) UpdateStatus(ctx context.Context, req StatusUpdate) (*Resolution, error) {
	if req.IsIssueStep {
		// Прогресс issue-шага подтверждается без смены статуса.
		e.logger.Debug("issue step acknowledged", "correlation_id", req.CorrelationID)
		telemetry.StatusUpdates.WithLabelValues("issue_step").Inc()
		return nil, nil
	}

	res, err := e.Resolve(ctx, req.CorrelationID)
	if err != nil {
		telemetry.StatusUpdates.WithLabelValues("error").Inc()
		return nil, err
	}

	holder := res.Holder()
	current := holder.CurrentStatus()

	if err := e.policy.ValidateUpdateStatusIsAllowed(current, req.Status); err != nil {
		telemetry.StatusUpdates.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	holder.ApplyStatus(req.Status, e.now())
	holder.SetStatusComment(req.Comment)

	if err := e.applyMaterialIssuePolicy(ctx, res, current, req); err != nil {
		telemetry.StatusUpdates.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := e.persistResolved(ctx, res); err != nil {
		telemetry.StatusUpdates.WithLabelValues("error").Inc()
		return nil, err
	}

	e.logger.Info("status updated",
		"correlation_id", req.CorrelationID,
		"group_id", res.Group.ID,
		"from", current,
		"to", req.Status,
	)
	telemetry.StatusUpdates.WithLabelValues("applied").Inc()
	return res, nil
}

// applyMaterialIssuePolicy применяет политику комментариев material issue.
//
// COMMITTED → PENDING_COMMIT при записанной ранее ошибке issue-шага —
// это повтор после сбоя: устаревшая ошибка очищается, требование
// материала остаётся. Переход в PAUSED с MaterialIssueFailed — комментарий
// живёт на material issue, а не на сущности (без дублирования).
func (e *Engine) applyMaterialIssuePolicy(ctx context.Context, res *Resolution, from domain.ProcessStatus, req StatusUpdate) error {
	exp := res.Experiment

	switch {
	case from == domain.StatusCommitted && req.Status == domain.StatusPendingCommit && exp.HasMaterialIssueError():
		issue := exp.Material.Issue
		issue.ErrorComments = ""
		if err := e.repo.UpdateExperimentMaterialIssue(ctx, res.Group.ID, exp.ID, issue); err != nil {
			return fmt.Errorf("%w: update material issue: %v", ErrRepository, err)
		}

	case req.Status == domain.StatusPaused && req.MaterialIssueFailed:
		issue := exp.EnsureMaterialIssue()
		issue.ErrorComments = req.Comment
		res.Holder().ClearStatusComment()
		if err := e.repo.UpdateExperimentMaterialIssue(ctx, res.Group.ID, exp.ID, issue); err != nil {
			return fmt.Errorf("%w: update material issue: %v", ErrRepository, err)
		}
	}
	return nil
}

// persistResolved сохраняет мутированную сущность: condition — через
// condition-scoped update, stage — через stage-scoped.
func (e *Engine) persistResolved(ctx context.Context, res *Resolution) error {
	if res.Condition != nil {
		err := e.repo.UpdateExperimentCondition(ctx, res.Group.ID, res.Experiment.ID, res.Stage.ID, res.Condition)
		if err != nil {
			return fmt.Errorf("%w: update condition: %v", ErrRepository, err)
		}
		return nil
	}
	if err := e.repo.UpdateExperimentStage(ctx, res.Group.ID, res.Experiment.ID, res.Stage); err != nil {
		return fmt.Errorf("%w: update stage: %v", ErrRepository, err)
	}
	return nil
}

// ResultUpdate — запрос записи результата condition.
type ResultUpdate struct {
	// CorrelationID — идентификатор condition.
	CorrelationID uuid.UUID

	// Passed — прошёл ли тест.
	Passed bool

	// Comment — комментарий к результату.
	Comment string
}

// UpdateResult записывает результат выполнения condition.
//
// Та же форма resolve → validate → persist, но валидация смотрит на
// сам condition, а не на пару статусов.
func (e *Engine) UpdateResult(ctx context.Context, req ResultUpdate) (*Resolution, error) {
	res, err := e.Resolve(ctx, req.CorrelationID)
	if err != nil {
		return nil, err
	}

	if err := e.policy.ValidateUpdateResultIsAllowed(res.Condition); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	res.Condition.Result = &domain.ConditionResult{Passed: req.Passed, Comment: req.Comment}

	err = e.repo.UpdateExperimentCondition(ctx, res.Group.ID, res.Experiment.ID, res.Stage.ID, res.Condition)
	if err != nil {
		return nil, fmt.Errorf("%w: update condition result: %v", ErrRepository, err)
	}

	e.logger.Info("result updated",
		"correlation_id", req.CorrelationID,
		"group_id", res.Group.ID,
		"passed", req.Passed,
	)
	return res, nil
}

// NotifyProgress пересылает статус эксперимента downstream-уведомителю.
//
// Разрешение идёт по id эксперимента, а не по correlation id. Сбой
// уведомителя — ErrExternalServer: хранилище к этому моменту консистентно,
// отказал только downstream.
func (e *Engine) NotifyProgress(ctx context.Context, experimentID uuid.UUID, status domain.ProcessStatus) error {
	group, err := e.repo.GetGroupByExperimentID(ctx, experimentID)
	if err != nil {
		return e.wrapLookup(err, "experiment", experimentID)
	}

	exp := group.FindExperiment(experimentID)
	if exp == nil {
		return fmt.Errorf("%w: experiment %s missing in group %s", ErrRepository, experimentID, group.ID)
	}

	if err := e.notifier.NotifyExperimentUpdated(ctx, group, exp, status); err != nil {
		return fmt.Errorf("%w: notify experiment updated: %v", ErrExternalServer, err)
	}

	e.logger.Info("progress notified", "experiment_id", experimentID, "status", status)
	return nil
}
