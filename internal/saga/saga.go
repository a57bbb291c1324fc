package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/lifecycle"
	"github.com/shaiso/Waferline/internal/repo"
	"github.com/shaiso/Waferline/internal/telemetry"
)

// Phase — фаза saga.
//
// Жизненный цикл:
//
//	CREATED → SUBMITTED
//	        ↘ FAILED_COMPENSATING → COMPENSATED
//	                              ↘ INCONSISTENT
//
// INCONSISTENT — терминальная фаза "компенсация не удалась": агрегат
// существует в хранилище, но не был поставлен в очередь. Такое состояние
// не проглатывается молча — его разбирает reconciler.
type Phase string

const (
	// PhaseCreated — агрегат записан в хранилище.
	PhaseCreated Phase = "CREATED"

	// PhaseSubmitted — постановка в очередь подтверждена.
	PhaseSubmitted Phase = "SUBMITTED"

	// PhaseFailedCompensating — очередь отклонила постановку,
	// идёт компенсация.
	PhaseFailedCompensating Phase = "FAILED_COMPENSATING"

	// PhaseCompensated — компенсация удалась, хранилище консистентно.
	PhaseCompensated Phase = "COMPENSATED"

	// PhaseInconsistent — компенсация не удалась, состояние хранилища
	// требует внешней сверки.
	PhaseInconsistent Phase = "INCONSISTENT"
)

// Submitter — внешняя очередь постановки экспериментов.
type Submitter interface {
	// SubmitExperimentGroup ставит новую группу в очередь.
	SubmitExperimentGroup(ctx context.Context, group *domain.ExperimentGroup) error

	// SubmitUpdateExperimentGroup ставит обновление группы в очередь.
	SubmitUpdateExperimentGroup(ctx context.Context, group *domain.ExperimentGroup) error
}

// Saga выполняет двухфазный create-then-submit с компенсацией.
//
// Три терминальных категории отказа:
//   - lifecycle.ErrRepository — хранилище ненадёжно (включая сбой компенсации)
//   - lifecycle.ErrQueue — очередь отклонила, хранилище консистентно
//   - успех — агрегат записан и поставлен в очередь
type Saga struct {
	repo      lifecycle.Repository
	submitter Submitter
	logger    *slog.Logger
}

// Config — конфигурация Saga.
type Config struct {
	Repo      lifecycle.Repository
	Submitter Submitter
	Logger    *slog.Logger
}

// New создаёт новую Saga.
func New(cfg Config) *Saga {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{
		repo:      cfg.Repo,
		submitter: cfg.Submitter,
		logger:    logger,
	}
}

// Result — исход saga: агрегат и достигнутая терминальная фаза.
type Result struct {
	Group *domain.ExperimentGroup
	Phase Phase
}

// CreateGroup сохраняет новую группу и ставит её в очередь.
//
// Сбой постановки компенсируется удалением только что созданного агрегата.
// Сбой самой компенсации — более тяжёлое состояние, чем отказ очереди:
// он возвращается как ErrRepository, а не ErrQueue.
func (s *Saga) CreateGroup(ctx context.Context, group *domain.ExperimentGroup) (*Result, error) {
	if len(group.Experiments) == 0 {
		return nil, fmt.Errorf("%w: group has no experiments", lifecycle.ErrBadRequest)
	}

	if err := s.repo.AddGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("%w: add group: %v", lifecycle.ErrRepository, err)
	}
	phase := PhaseCreated

	if err := s.submitter.SubmitExperimentGroup(ctx, group); err != nil {
		phase = PhaseFailedCompensating
		s.logger.Warn("group submission failed, compensating",
			"group_id", group.ID,
			"error", err,
		)

		if removeErr := s.repo.RemoveGroup(ctx, group.ID); removeErr != nil {
			phase = PhaseInconsistent
			s.logger.Error("compensation failed, storage state unknown",
				"group_id", group.ID,
				"submit_error", err,
				"remove_error", removeErr,
			)
			telemetry.SagaOutcomes.WithLabelValues("create", string(phase)).Inc()
			return &Result{Group: group, Phase: phase},
				fmt.Errorf("%w: compensation failed for group %s: %v", lifecycle.ErrRepository, group.ID, removeErr)
		}

		phase = PhaseCompensated
		telemetry.SagaOutcomes.WithLabelValues("create", string(phase)).Inc()
		return &Result{Group: group, Phase: phase},
			fmt.Errorf("%w: submit group %s: %v", lifecycle.ErrQueue, group.ID, err)
	}

	if err := s.markSubmitted(ctx, group); err != nil {
		telemetry.SagaOutcomes.WithLabelValues("create", string(phase)).Inc()
		return &Result{Group: group, Phase: phase}, err
	}
	phase = PhaseSubmitted

	s.logger.Info("group created and submitted", "group_id", group.ID)
	telemetry.SagaOutcomes.WithLabelValues("create", string(phase)).Inc()
	return &Result{Group: group, Phase: phase}, nil
}

// UpdateGroup сохраняет изменённую группу и ставит обновление в очередь.
//
// Компенсирующего удаления нет: при отказе очереди поверхностью ошибки
// остаётся ранее записанное состояние (ErrQueue, хранилище консистентно).
func (s *Saga) UpdateGroup(ctx context.Context, group *domain.ExperimentGroup) (*Result, error) {
	if err := s.repo.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("%w: update group: %v", lifecycle.ErrRepository, err)
	}
	phase := PhaseCreated

	if err := s.submitter.SubmitUpdateExperimentGroup(ctx, group); err != nil {
		telemetry.SagaOutcomes.WithLabelValues("update", string(phase)).Inc()
		return &Result{Group: group, Phase: phase},
			fmt.Errorf("%w: submit group update %s: %v", lifecycle.ErrQueue, group.ID, err)
	}

	if err := s.markSubmitted(ctx, group); err != nil {
		telemetry.SagaOutcomes.WithLabelValues("update", string(phase)).Inc()
		return &Result{Group: group, Phase: phase}, err
	}
	phase = PhaseSubmitted

	s.logger.Info("group update submitted", "group_id", group.ID)
	telemetry.SagaOutcomes.WithLabelValues("update", string(phase)).Inc()
	return &Result{Group: group, Phase: phase}, nil
}

// AddExperiments добавляет эксперименты в существующую группу и ставит
// обновление в очередь тем же update-потоком.
func (s *Saga) AddExperiments(ctx context.Context, groupID uuid.UUID, experiments []domain.Experiment) (*Result, error) {
	if len(experiments) == 0 {
		return nil, fmt.Errorf("%w: no experiments to add", lifecycle.ErrBadRequest)
	}

	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, wrapGet(err, groupID)
	}

	group.Experiments = append(group.Experiments, experiments...)
	return s.UpdateGroup(ctx, group)
}

// markSubmitted фиксирует флаг постановки вторым write'ом.
// Сбой этой записи — ErrRepository, хотя доменные данные уже корректны.
func (s *Saga) markSubmitted(ctx context.Context, group *domain.ExperimentGroup) error {
	if err := s.repo.UpdateGroupQueueState(ctx, group.ID, true); err != nil {
		return fmt.Errorf("%w: mark group %s submitted: %v", lifecycle.ErrRepository, group.ID, err)
	}
	group.SubmittedToQueue = true
	return nil
}

// wrapGet переводит ошибку чтения группы в таксономию.
func wrapGet(err error, groupID uuid.UUID) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: group %s", lifecycle.ErrNotFound, groupID)
	}
	return fmt.Errorf("%w: get group %s: %v", lifecycle.ErrRepository, groupID, err)
}
