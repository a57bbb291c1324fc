package domain

// ProcessStatus — статус выполнения тестируемой сущности (condition или stage).
//
// Жизненный цикл:
//
//	NOT_STARTED → PENDING_MATERIAL_ISSUE → PENDING_COMMIT → COMMITTED → RUNNING → COMPLETED
//	                                              ↑              │
//	                                              └── (retry) ───┘
//	  PAUSED → RESUMING → RUNNING
//	  (любой не-терминальный) → CANCELING → CANCELED
type ProcessStatus string

const (
	// StatusNotStarted — сущность создана, выполнение не начиналось.
	StatusNotStarted ProcessStatus = "NOT_STARTED"

	// StatusPendingMaterialIssue — ожидается выдача материала (wafer lot).
	StatusPendingMaterialIssue ProcessStatus = "PENDING_MATERIAL_ISSUE"

	// StatusPendingCommit — ожидается подтверждение постановки на тестер.
	StatusPendingCommit ProcessStatus = "PENDING_COMMIT"

	// StatusCommitted — постановка подтверждена тестером.
	StatusCommitted ProcessStatus = "COMMITTED"

	// StatusRunning — тест выполняется.
	StatusRunning ProcessStatus = "RUNNING"

	// StatusPaused — выполнение приостановлено.
	StatusPaused ProcessStatus = "PAUSED"

	// StatusResuming — запрошено возобновление после паузы.
	StatusResuming ProcessStatus = "RESUMING"

	// StatusCanceling — запрошена отмена, ожидается подтверждение тестера.
	StatusCanceling ProcessStatus = "CANCELING"

	// StatusCanceled — отмена подтверждена. Терминальный статус.
	StatusCanceled ProcessStatus = "CANCELED"

	// StatusCompleted — тест успешно завершён. Терминальный статус.
	StatusCompleted ProcessStatus = "COMPLETED"
)

// cancelable — статусы, из которых допустима отмена.
// Терминальные CANCELED и COMPLETED игнорируют запрос отмены молча.
var cancelable = map[ProcessStatus]bool{
	StatusNotStarted:    true,
	StatusPendingCommit: true,
	StatusCommitted:     true,
	StatusRunning:       true,
	StatusPaused:        true,
	StatusResuming:      true,
	StatusCanceling:     true,
}

// IsTerminal возвращает true, если статус финальный.
func (s ProcessStatus) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsCancelable возвращает true, если сущность в этом статусе принимает отмену.
func (s ProcessStatus) IsCancelable() bool {
	return cancelable[s]
}

// IsResumable возвращает true, если сущность в этом статусе принимает возобновление.
// Возобновить можно только из PAUSED.
func (s ProcessStatus) IsResumable() bool {
	return s == StatusPaused
}

// ParseProcessStatus парсит строку в ProcessStatus.
// Возвращает false для неизвестного значения.
func ParseProcessStatus(s string) (ProcessStatus, bool) {
	switch status := ProcessStatus(s); status {
	case StatusNotStarted, StatusPendingMaterialIssue, StatusPendingCommit,
		StatusCommitted, StatusRunning, StatusPaused, StatusResuming,
		StatusCanceling, StatusCanceled, StatusCompleted:
		return status, true
	default:
		return "", false
	}
}

// ExperimentState — состояние готовности эксперимента.
type ExperimentState string

const (
	// ExperimentStateDraft — черновик, можно редактировать.
	ExperimentStateDraft ExperimentState = "DRAFT"

	// ExperimentStateReady — эксперимент готов к постановке.
	ExperimentStateReady ExperimentState = "READY"
)

// String возвращает строковое представление ExperimentState.
func (s ExperimentState) String() string {
	return string(s)
}

// ParseExperimentState парсит строку в ExperimentState.
func ParseExperimentState(s string) ExperimentState {
	switch s {
	case "READY":
		return ExperimentStateReady
	default:
		return ExperimentStateDraft
	}
}
