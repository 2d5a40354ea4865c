// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_assignments_total",
			Help: "Total number of registration assignments",
		},
		[]string{"path", "session"},
	)

	CapacityRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_capacity_rejections_total",
			Help: "Assignments rejected because the session was full",
		},
	)

	ReconcileCorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_reconcile_corrections_total",
			Help: "Schedule counters corrected by reconciliation",
		},
	)

	SweepTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_sweep_transitions_total",
			Help: "Lifecycle transitions applied by sweeps",
		},
		[]string{"sweep"},
	)
)
