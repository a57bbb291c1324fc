package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики lifecycle-операций. Регистрируются в default registry,
// отдаются через /metrics в waferline-api.
var (
	// StatusUpdates — одиночные смены статуса по исходу
	// (applied / rejected / error / issue_step).
	StatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waferline_status_updates_total",
		Help: "Single-entity status updates by outcome",
	}, []string{"outcome"})

	// BulkOperations — bulk-операции по типу и исходу.
	BulkOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waferline_bulk_operations_total",
		Help: "Bulk lifecycle operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// SagaOutcomes — терминальные фазы create/update saga.
	SagaOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waferline_saga_outcomes_total",
		Help: "Create/update saga terminal phases",
	}, []string{"flow", "phase"})

	// ReconcileRuns — проходы reconciler'а по исходу.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "waferline_reconcile_runs_total",
		Help: "Submission reconciler sweeps by outcome",
	}, []string{"outcome"})
)
