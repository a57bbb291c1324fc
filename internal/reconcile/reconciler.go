package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Waferline/internal/domain"
	"github.com/shaiso/Waferline/internal/lifecycle"
	"github.com/shaiso/Waferline/internal/saga"
	"github.com/shaiso/Waferline/internal/telemetry"
)

// Reconciler досылает оркестратору группы, застрявшие между фазами saga:
// группа записана в хранилище, но submitted_to_queue = false. Такое
// состояние остаётся после падения процесса между AddGroup и submit
// или после сбоя второй записи markSubmitted.
type Reconciler struct {
	repo      lifecycle.Repository
	submitter saga.Submitter
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Reconciler.
type Config struct {
	Repo      lifecycle.Repository
	Submitter saga.Submitter
	Logger    *slog.Logger
	BatchSize int // количество групп за один проход (default: 100)
}

// New создаёт новый Reconciler.
func New(cfg Config) *Reconciler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		repo:      cfg.Repo,
		submitter: cfg.Submitter,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Run запускает цикл сверки по cron-выражению до отмены контекста.
func (r *Reconciler) Run(ctx context.Context, cronExpr string) error {
	if err := ValidateCronExpr(cronExpr); err != nil {
		return err
	}

	for {
		next, err := NextRun(cronExpr, time.Now())
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		if err := r.Sweep(ctx); err != nil {
			r.logger.Error("reconcile sweep failed", "error", err)
		}
	}
}

// Sweep выполняет один проход сверки.
//
// 1. Находит группы с submitted_to_queue = false
// 2. Для каждой публикует group.submitted
// 3. Помечает группу отправленной
//
// Ошибки одной группы не блокируют обработку остальных.
func (r *Reconciler) Sweep(ctx context.Context) error {
	groups, err := r.repo.ListUnsubmitted(ctx, r.batchSize)
	if err != nil {
		telemetry.ReconcileRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("list unsubmitted groups: %w", err)
	}

	if len(groups) == 0 {
		telemetry.ReconcileRuns.WithLabelValues("empty").Inc()
		return nil
	}

	r.logger.Debug("found unsubmitted groups", "count", len(groups))

	var submitted int
	for i := range groups {
		if err := r.resubmit(ctx, &groups[i]); err != nil {
			r.logger.Error("failed to resubmit group",
				"group_id", groups[i].ID,
				"error", err,
			)
			continue
		}
		submitted++
	}

	r.logger.Info("reconcile sweep completed",
		"pending", len(groups),
		"submitted", submitted,
	)

	telemetry.ReconcileRuns.WithLabelValues("ok").Inc()
	return nil
}

// resubmit досылает одну группу и помечает её отправленной.
func (r *Reconciler) resubmit(ctx context.Context, group *domain.ExperimentGroup) error {
	if err := r.submitter.SubmitExperimentGroup(ctx, group); err != nil {
		return fmt.Errorf("submit group: %w", err)
	}

	if err := r.repo.UpdateGroupQueueState(ctx, group.ID, true); err != nil {
		// Группа отправлена, но флаг не записан: следующий проход
		// отправит её повторно, оркестратор дедуплицирует по group_id.
		return fmt.Errorf("mark group submitted: %w", err)
	}

	r.logger.Info("resubmitted group", "group_id", group.ID)
	return nil
}
