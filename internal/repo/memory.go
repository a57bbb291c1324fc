package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
)

// Memory — потокобезопасное in-memory хранилище агрегатов.
// Используется в тестах и для локального запуска без PostgreSQL.
// Агрегаты глубоко копируются на входе и выходе, чтобы вызывающий
// код не делил память с хранилищем.
type Memory struct {
	mu     sync.RWMutex
	groups map[uuid.UUID]*domain.ExperimentGroup
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() *Memory {
	return &Memory{groups: make(map[uuid.UUID]*domain.ExperimentGroup)}
}

// AddGroup сохраняет новую группу.
func (m *Memory) AddGroup(_ context.Context, group *domain.ExperimentGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[group.ID]; ok {
		return fmt.Errorf("group %s: %w", group.ID, ErrAlreadyExists)
	}
	clone, err := cloneGroup(group)
	if err != nil {
		return err
	}
	m.groups[group.ID] = clone
	return nil
}

// RemoveGroup удаляет группу.
func (m *Memory) RemoveGroup(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[id]; !ok {
		return ErrNotFound
	}
	delete(m.groups, id)
	return nil
}

// UpdateGroup переписывает группу целиком.
func (m *Memory) UpdateGroup(_ context.Context, group *domain.ExperimentGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[group.ID]; !ok {
		return ErrNotFound
	}
	clone, err := cloneGroup(group)
	if err != nil {
		return err
	}
	m.groups[group.ID] = clone
	return nil
}

// GetGroup возвращает группу по ID.
func (m *Memory) GetGroup(_ context.Context, id uuid.UUID) (*domain.ExperimentGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGroup(group)
}

// GetGroupByConditionID возвращает группу, содержащую condition.
func (m *Memory) GetGroupByConditionID(_ context.Context, conditionID uuid.UUID) (*domain.ExperimentGroup, error) {
	return m.findGroup(func(group *domain.ExperimentGroup) bool {
		for i := range group.Experiments {
			for j := range group.Experiments[i].Stages {
				if group.Experiments[i].Stages[j].FindCondition(conditionID) != nil {
					return true
				}
			}
		}
		return false
	})
}

// GetGroupByStageID возвращает группу, содержащую не-Class stage.
func (m *Memory) GetGroupByStageID(_ context.Context, stageID uuid.UUID) (*domain.ExperimentGroup, error) {
	return m.findGroup(func(group *domain.ExperimentGroup) bool {
		for i := range group.Experiments {
			for j := range group.Experiments[i].Stages {
				stage := &group.Experiments[i].Stages[j]
				if stage.ID == stageID && stage.Class() == nil {
					return true
				}
			}
		}
		return false
	})
}

// GetGroupByExperimentID возвращает группу, содержащую эксперимент.
func (m *Memory) GetGroupByExperimentID(_ context.Context, experimentID uuid.UUID) (*domain.ExperimentGroup, error) {
	return m.findGroup(func(group *domain.ExperimentGroup) bool {
		return group.FindExperiment(experimentID) != nil
	})
}

// UpdateExperiment переписывает один эксперимент внутри группы.
func (m *Memory) UpdateExperiment(_ context.Context, groupID uuid.UUID, exp *domain.Experiment) error {
	return m.mutate(groupID, func(group *domain.ExperimentGroup) error {
		target := group.FindExperiment(exp.ID)
		if target == nil {
			return fmt.Errorf("experiment %s: %w", exp.ID, ErrNotFound)
		}
		*target = *exp
		return nil
	})
}

// UpdateExperimentCondition сохраняет мутированный condition.
func (m *Memory) UpdateExperimentCondition(_ context.Context, groupID, experimentID, stageID uuid.UUID, cond *domain.Condition) error {
	return m.mutate(groupID, func(group *domain.ExperimentGroup) error {
		exp := group.FindExperiment(experimentID)
		if exp == nil {
			return fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
		}
		for i := range exp.Stages {
			if exp.Stages[i].ID != stageID {
				continue
			}
			target := exp.Stages[i].FindCondition(cond.ID)
			if target == nil {
				return fmt.Errorf("condition %s: %w", cond.ID, ErrNotFound)
			}
			*target = *cond
			return nil
		}
		return fmt.Errorf("stage %s: %w", stageID, ErrNotFound)
	})
}

// UpdateExperimentStage сохраняет мутированный не-Class stage.
func (m *Memory) UpdateExperimentStage(_ context.Context, groupID, experimentID uuid.UUID, stage *domain.Stage) error {
	return m.mutate(groupID, func(group *domain.ExperimentGroup) error {
		exp := group.FindExperiment(experimentID)
		if exp == nil {
			return fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
		}
		for i := range exp.Stages {
			if exp.Stages[i].ID == stage.ID {
				exp.Stages[i] = *stage
				return nil
			}
		}
		return fmt.Errorf("stage %s: %w", stage.ID, ErrNotFound)
	})
}

// UpdateExperimentMaterialIssue сохраняет состояние выдачи материала.
func (m *Memory) UpdateExperimentMaterialIssue(_ context.Context, groupID, experimentID uuid.UUID, issue *domain.MaterialIssue) error {
	return m.mutate(groupID, func(group *domain.ExperimentGroup) error {
		exp := group.FindExperiment(experimentID)
		if exp == nil {
			return fmt.Errorf("experiment %s: %w", experimentID, ErrNotFound)
		}
		*exp.EnsureMaterialIssue() = *issue
		return nil
	})
}

// UpdateGroupQueueState сохраняет флаг отправки группы в очередь.
func (m *Memory) UpdateGroupQueueState(_ context.Context, groupID uuid.UUID, submitted bool) error {
	return m.mutate(groupID, func(group *domain.ExperimentGroup) error {
		group.SubmittedToQueue = submitted
		return nil
	})
}

// ListUnsubmitted возвращает группы, не отправленные в очередь,
// в порядке создания.
func (m *Memory) ListUnsubmitted(_ context.Context, limit int) ([]domain.ExperimentGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*domain.ExperimentGroup
	for _, group := range m.groups {
		if !group.SubmittedToQueue {
			pending = append(pending, group)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	groups := make([]domain.ExperimentGroup, 0, len(pending))
	for _, group := range pending {
		clone, err := cloneGroup(group)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *clone)
	}
	return groups, nil
}

func (m *Memory) findGroup(match func(*domain.ExperimentGroup) bool) (*domain.ExperimentGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, group := range m.groups {
		if match(group) {
			return cloneGroup(group)
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) mutate(groupID uuid.UUID, fn func(*domain.ExperimentGroup) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	clone, err := cloneGroup(group)
	if err != nil {
		return err
	}
	if err := fn(clone); err != nil {
		return err
	}
	m.groups[groupID] = clone
	return nil
}
