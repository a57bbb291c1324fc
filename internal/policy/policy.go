package policy

import (
	"fmt"

	"github.com/shaiso/Waferline/internal/domain"
)

// transitions — таблица допустимых переходов статуса.
//
// COMMITTED → PENDING_COMMIT — повтор постановки после сбойного issue-шага.
// Терминальные CANCELED и COMPLETED переходов не имеют.
var transitions = map[domain.ProcessStatus][]domain.ProcessStatus{
	domain.StatusNotStarted: {
		domain.StatusPendingMaterialIssue,
		domain.StatusPendingCommit,
		domain.StatusCanceling,
	},
	domain.StatusPendingMaterialIssue: {
		domain.StatusPendingCommit,
		domain.StatusPaused,
		domain.StatusCanceling,
	},
	domain.StatusPendingCommit: {
		domain.StatusCommitted,
		domain.StatusPaused,
		domain.StatusCanceling,
	},
	domain.StatusCommitted: {
		domain.StatusRunning,
		domain.StatusPendingCommit,
		domain.StatusPaused,
		domain.StatusCanceling,
	},
	domain.StatusRunning: {
		domain.StatusPaused,
		domain.StatusCompleted,
		domain.StatusCanceling,
	},
	domain.StatusPaused: {
		domain.StatusResuming,
		domain.StatusCanceling,
	},
	domain.StatusResuming: {
		domain.StatusRunning,
		domain.StatusCanceling,
	},
	domain.StatusCanceling: {
		domain.StatusCanceled,
	},
}

// StatusPolicy — оракул допустимости переходов статуса.
//
// Создаётся явно и передаётся в конструкторы потребителей;
// process-wide singleton'а нет.
type StatusPolicy struct {
	allowed map[domain.ProcessStatus]map[domain.ProcessStatus]bool
}

// New создаёт StatusPolicy со стандартной таблицей переходов.
func New() *StatusPolicy {
	allowed := make(map[domain.ProcessStatus]map[domain.ProcessStatus]bool, len(transitions))
	for from, tos := range transitions {
		set := make(map[domain.ProcessStatus]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		allowed[from] = set
	}
	return &StatusPolicy{allowed: allowed}
}

// ValidateUpdateStatusIsAllowed проверяет допустимость перехода from → to.
// Переход в тот же статус не допускается.
func (p *StatusPolicy) ValidateUpdateStatusIsAllowed(from, to domain.ProcessStatus) error {
	if p.allowed[from][to] {
		return nil
	}
	return fmt.Errorf("status transition %s -> %s is not allowed", from, to)
}

// ValidateUpdateResultIsAllowed проверяет, что condition может принять результат.
// Результат принимается только в RUNNING или COMPLETED.
func (p *StatusPolicy) ValidateUpdateResultIsAllowed(cond *domain.Condition) error {
	if cond == nil {
		return fmt.Errorf("result update requires a condition")
	}
	switch cond.Status {
	case domain.StatusRunning, domain.StatusCompleted:
		return nil
	default:
		return fmt.Errorf("condition in status %s cannot accept a result", cond.Status)
	}
}
