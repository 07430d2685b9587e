// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedCalculations counts pen feed calculations by outcome.
	FeedCalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheepfold",
		Name:      "feed_calculations_total",
		Help:      "Pen feed calculations performed, by outcome.",
	}, []string{"outcome"})

	// UnknownStageSheep counts sheep that contributed 0 kg because their stage had no ration.
	UnknownStageSheep = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sheepfold",
		Name:      "unknown_stage_sheep_total",
		Help:      "Sheep skipped by feed calculations because their stage has no ration.",
	})

	// MealAllocations counts meal allocation writes by outcome.
	MealAllocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheepfold",
		Name:      "meal_allocations_total",
		Help:      "Meal allocation saves, by outcome.",
	}, []string{"outcome"})

	// TenantProvisions counts provisioning requests by result.
	TenantProvisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheepfold",
		Name:      "tenant_provisions_total",
		Help:      "Tenant provisioning requests, by result.",
	}, []string{"result"})

	// ScheduledJobs counts cron job runs by job and outcome.
	ScheduledJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sheepfold",
		Name:      "scheduled_jobs_total",
		Help:      "Scheduled job runs, by job and outcome.",
	}, []string{"job", "outcome"})
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
