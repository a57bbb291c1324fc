package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/repo"
)

// Resolution — результат разрешения correlation id.
//
// Condition != nil, если id адресовал condition внутри Class stage;
// иначе id адресовал одностатусный stage и Condition == nil.
type Resolution struct {
	// Group — владеющий агрегат.
	Group *domain.ExperimentGroup

	// Experiment — владеющий эксперимент.
	Experiment *domain.Experiment

	// Stage — владеющий (или адресованный) stage.
	Stage *domain.Stage

	// Condition — адресованный condition, либо nil для stage-уровня.
	Condition *domain.Condition
}

// Holder возвращает StatusHolder разрешённой сущности.
func (r *Resolution) Holder() domain.StatusHolder {
	if r.Condition != nil {
		return r.Condition
	}
	return r.Stage.Holder()
}

// Resolve определяет, что именует correlation id — condition или
// не-Class stage — и находит владеющий агрегат.
//
// Correlation id непрозрачен: тестер присылает его, не зная, какой
// сущности он принадлежит, а пространства идентификаторов conditions и
// stages не пересекаются. Поэтому двухшаговый probe: сначала поиск по
// condition id, затем по stage id.
func (e *Engine) Resolve(ctx context.Context, correlationID uuid.UUID) (*Resolution, error) {
	group, err := e.repo.GetGroupByConditionID(ctx, correlationID)
	if err == nil {
		res := locateCondition(group, correlationID)
		if res == nil {
			// Индекс знает condition, а document — нет: хранилище несогласовано.
			return nil, fmt.Errorf("%w: condition %s missing in group %s", ErrRepository, correlationID, group.ID)
		}
		return res, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: lookup by condition id: %v", ErrRepository, err)
	}

	group, err = e.repo.GetGroupByStageID(ctx, correlationID)
	if err == nil {
		res := locateStage(group, correlationID)
		if res == nil {
			return nil, fmt.Errorf("%w: stage %s missing in group %s", ErrRepository, correlationID, group.ID)
		}
		return res, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: lookup by stage id: %v", ErrRepository, err)
	}

	return nil, fmt.Errorf("%w: correlation id %s", ErrNotFound, correlationID)
}

// locateCondition находит condition внутри загруженной группы.
func locateCondition(group *domain.ExperimentGroup, conditionID uuid.UUID) *Resolution {
	for i := range group.Experiments {
		exp := &group.Experiments[i]
		for j := range exp.Stages {
			stage := &exp.Stages[j]
			if cond := stage.FindCondition(conditionID); cond != nil {
				return &Resolution{Group: group, Experiment: exp, Stage: stage, Condition: cond}
			}
		}
	}
	return nil
}

// locateStage находит не-Class stage внутри загруженной группы.
func locateStage(group *domain.ExperimentGroup, stageID uuid.UUID) *Resolution {
	for i := range group.Experiments {
		exp := &group.Experiments[i]
		for j := range exp.Stages {
			stage := &exp.Stages[j]
			if stage.ID == stageID && stage.Holder() != nil {
				return &Resolution{Group: group, Experiment: exp, Stage: stage}
			}
		}
	}
	return nil
}
