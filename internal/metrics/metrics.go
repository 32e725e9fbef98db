// Package metrics exposes the prometheus instruments for the expense core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProjectSaves counts gateway saves by persistence intent.
	ProjectSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallyup_project_saves_total",
		Help: "Number of project saves, labeled by persistence intent.",
	}, []string{"intent"})

	// SaveConflicts counts optimistic-lock conflicts surfaced to callers.
	SaveConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallyup_save_conflicts_total",
		Help: "Number of saves rejected due to a version mismatch.",
	})

	// SharingCalculations counts settlement computations.
	SharingCalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallyup_sharing_calculations_total",
		Help: "Number of settlement ledger computations.",
	})
)
