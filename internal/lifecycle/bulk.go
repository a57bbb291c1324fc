package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/repo"
	"github.com/shaiso/Waferline/internal/telemetry"
)

// CancelExperiments переводит в CANCELING все cancelable сущности
// указанных экспериментов группы и проставляет комментарий.
//
// Частичный эффект — успех: достаточно хотя бы одного реального изменения
// среди всех найденных экспериментов. Если не изменилось ничего
// (все сущности терминальны или уже CANCELING) — ErrValidation.
func (e *Engine) CancelExperiments(ctx context.Context, groupID uuid.UUID, experimentIDs []uuid.UUID, comment string) (*domain.ExperimentGroup, error) {
	group, matched, err := e.matchExperiments(ctx, groupID, experimentIDs)
	if err != nil {
		telemetry.BulkOperations.WithLabelValues("cancel", "error").Inc()
		return nil, err
	}

	now := e.now()
	var updated int
	for _, exp := range matched {
		updated += exp.CancelAll(comment, now)
	}

	if updated == 0 {
		telemetry.BulkOperations.WithLabelValues("cancel", "no_effect").Inc()
		return nil, fmt.Errorf("%w: No experiments were updated in group %s.", ErrValidation, groupID)
	}

	if err := e.repo.UpdateGroup(ctx, group); err != nil {
		telemetry.BulkOperations.WithLabelValues("cancel", "error").Inc()
		return nil, fmt.Errorf("%w: update group: %v", ErrRepository, err)
	}

	e.logger.Info("experiments canceled",
		"group_id", groupID,
		"experiments", len(matched),
		"entities_updated", updated,
	)
	telemetry.BulkOperations.WithLabelValues("cancel", "applied").Inc()
	return group, nil
}

// DeleteExperiments выполняет тот же cancelable-обход, что и Cancel,
// и дополнительно архивирует каждый найденный эксперимент.
//
// Архивация применяется независимо от того, было ли что отменять,
// поэтому у Delete нет отказа "нечего обновлять": найденный
// эксперимент архивируется всегда.
func (e *Engine) DeleteExperiments(ctx context.Context, groupID uuid.UUID, experimentIDs []uuid.UUID, comment string) (*domain.ExperimentGroup, error) {
	group, matched, err := e.matchExperiments(ctx, groupID, experimentIDs)
	if err != nil {
		telemetry.BulkOperations.WithLabelValues("delete", "error").Inc()
		return nil, err
	}

	now := e.now()
	for _, exp := range matched {
		exp.CancelAll(comment, now)
		exp.IsArchived = true
	}

	if err := e.repo.UpdateGroup(ctx, group); err != nil {
		telemetry.BulkOperations.WithLabelValues("delete", "error").Inc()
		return nil, fmt.Errorf("%w: update group: %v", ErrRepository, err)
	}

	e.logger.Info("experiments deleted",
		"group_id", groupID,
		"experiments", len(matched),
	)
	telemetry.BulkOperations.WithLabelValues("delete", "applied").Inc()
	return group, nil
}

// ResumeExperiment переводит в RESUMING все PAUSED сущности одного
// эксперимента. Единственная bulk-операция с гранулярностью эксперимента:
// запись идёт через experiment-scoped update, а не через всю группу.
func (e *Engine) ResumeExperiment(ctx context.Context, groupID, experimentID uuid.UUID, comment string) (*domain.Experiment, error) {
	group, err := e.repo.GetGroup(ctx, groupID)
	if err != nil {
		telemetry.BulkOperations.WithLabelValues("resume", "error").Inc()
		return nil, e.wrapLookup(err, "group", groupID)
	}

	exp := group.FindExperiment(experimentID)
	if exp == nil {
		telemetry.BulkOperations.WithLabelValues("resume", "error").Inc()
		return nil, fmt.Errorf("%w: experiment %s in group %s", ErrNotFound, experimentID, groupID)
	}

	if updated := exp.ResumeAll(comment, e.now()); updated == 0 {
		telemetry.BulkOperations.WithLabelValues("resume", "no_effect").Inc()
		return nil, fmt.Errorf("%w: no paused entities in experiment %s", ErrValidation, experimentID)
	}

	if err := e.repo.UpdateExperiment(ctx, groupID, exp); err != nil {
		telemetry.BulkOperations.WithLabelValues("resume", "error").Inc()
		return nil, fmt.Errorf("%w: update experiment: %v", ErrRepository, err)
	}

	e.logger.Info("experiment resumed", "group_id", groupID, "experiment_id", experimentID)
	telemetry.BulkOperations.WithLabelValues("resume", "applied").Inc()
	return exp, nil
}

// UpdateExperimentsState устанавливает ExperimentState на указанных
// экспериментах группы. Никакой per-entity логики: контракт совпадения id
// плюс присваивание поля.
func (e *Engine) UpdateExperimentsState(ctx context.Context, groupID uuid.UUID, experimentIDs []uuid.UUID, state domain.ExperimentState) (*domain.ExperimentGroup, error) {
	group, matched, err := e.matchExperiments(ctx, groupID, experimentIDs)
	if err != nil {
		telemetry.BulkOperations.WithLabelValues("state", "error").Inc()
		return nil, err
	}

	for _, exp := range matched {
		exp.State = state
	}

	if err := e.repo.UpdateGroup(ctx, group); err != nil {
		telemetry.BulkOperations.WithLabelValues("state", "error").Inc()
		return nil, fmt.Errorf("%w: update group: %v", ErrRepository, err)
	}

	e.logger.Info("experiments state updated",
		"group_id", groupID,
		"experiments", len(matched),
		"state", state,
	)
	telemetry.BulkOperations.WithLabelValues("state", "applied").Inc()
	return group, nil
}

// matchExperiments реализует общий контракт совпадения id bulk-операций.
//
// Группа отсутствует либо не совпал ни один id — ErrNotFound.
// Совпала только часть — ErrValidation с перечислением отсутствующих id,
// без единой мутации: по существованию операция all-or-nothing,
// независимо от того, применим ли к сущностям сам переход.
func (e *Engine) matchExperiments(ctx context.Context, groupID uuid.UUID, experimentIDs []uuid.UUID) (*domain.ExperimentGroup, []*domain.Experiment, error) {
	if len(experimentIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: no experiments requested", ErrBadRequest)
	}

	group, err := e.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, e.wrapLookup(err, "group", groupID)
	}

	var matched []*domain.Experiment
	var missing []string
	for _, id := range experimentIDs {
		if exp := group.FindExperiment(id); exp != nil {
			matched = append(matched, exp)
		} else {
			missing = append(missing, id.String())
		}
	}

	if len(matched) == 0 {
		return nil, nil, fmt.Errorf("%w: experiments %s in group %s", ErrNotFound, strings.Join(missing, ", "), groupID)
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: Could not find all experiments %s in group %s.", ErrValidation, strings.Join(missing, ", "), groupID)
	}

	return group, matched, nil
}

// wrapLookup переводит ошибку чтения хранилища в таксономию:
// repo.ErrNotFound → ErrNotFound, остальное → ErrRepository.
func (e *Engine) wrapLookup(err error, kind string, id uuid.UUID) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return fmt.Errorf("%w: get %s %s: %v", ErrRepository, kind, id, err)
}
