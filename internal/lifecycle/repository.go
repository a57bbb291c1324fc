package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
)

// Repository — контракт хранилища агрегатов ExperimentGroup.
//
// Реализации: internal/repo.GroupRepo (PostgreSQL) и internal/repo.Memory.
// "Не найдено" — это repo.ErrNotFound, отличимый через errors.Is от
// инфраструктурного сбоя хранилища.
//
// Гранулярность записи — целый агрегат (или целый эксперимент):
// Update*-методы принимают мутированную часть, но реализация переписывает
// владеющий document целиком. Конкурентные операции над одной группой
// соревнуются на уровне агрегата (last-writer-wins).
type Repository interface {
	// GetGroup возвращает группу по ID.
	GetGroup(ctx context.Context, id uuid.UUID) (*domain.ExperimentGroup, error)

	// GetGroupByConditionID возвращает группу, содержащую condition
	// с данным ID (поиск по condition-индексу).
	GetGroupByConditionID(ctx context.Context, conditionID uuid.UUID) (*domain.ExperimentGroup, error)

	// GetGroupByStageID возвращает группу, содержащую не-Class stage
	// с данным ID.
	GetGroupByStageID(ctx context.Context, stageID uuid.UUID) (*domain.ExperimentGroup, error)

	// GetGroupByExperimentID возвращает группу, содержащую эксперимент
	// с данным ID.
	GetGroupByExperimentID(ctx context.Context, experimentID uuid.UUID) (*domain.ExperimentGroup, error)

	// AddGroup сохраняет новую группу.
	AddGroup(ctx context.Context, group *domain.ExperimentGroup) error

	// RemoveGroup удаляет группу. Используется только компенсацией saga.
	RemoveGroup(ctx context.Context, id uuid.UUID) error

	// UpdateGroup переписывает группу целиком.
	UpdateGroup(ctx context.Context, group *domain.ExperimentGroup) error

	// UpdateExperiment переписывает один эксперимент группы.
	UpdateExperiment(ctx context.Context, groupID uuid.UUID, exp *domain.Experiment) error

	// UpdateExperimentCondition сохраняет мутированный condition,
	// адресованный через group/experiment/stage.
	UpdateExperimentCondition(ctx context.Context, groupID, experimentID, stageID uuid.UUID, cond *domain.Condition) error

	// UpdateExperimentStage сохраняет мутированный не-Class stage.
	UpdateExperimentStage(ctx context.Context, groupID, experimentID uuid.UUID, stage *domain.Stage) error

	// UpdateExperimentMaterialIssue сохраняет состояние выдачи материала.
	UpdateExperimentMaterialIssue(ctx context.Context, groupID, experimentID uuid.UUID, issue *domain.MaterialIssue) error

	// UpdateGroupQueueState сохраняет флаг отправки группы в очередь.
	UpdateGroupQueueState(ctx context.Context, groupID uuid.UUID, submitted bool) error

	// ListUnsubmitted возвращает группы, не отправленные в очередь.
	// Используется reconciler'ом.
	ListUnsubmitted(ctx context.Context, limit int) ([]domain.ExperimentGroup, error)
}

// Notifier — downstream-получатель уведомлений о прогрессе эксперимента.
type Notifier interface {
	// NotifyExperimentUpdated сообщает новый статус эксперимента.
	NotifyExperimentUpdated(ctx context.Context, group *domain.ExperimentGroup, exp *domain.Experiment, status domain.ProcessStatus) error
}
