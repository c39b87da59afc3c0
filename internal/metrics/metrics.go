package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slotwarden"

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Member messages by classification outcome.",
	}, []string{"outcome"})

	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "points_awarded_total",
		Help:      "Points granted for slot completions.",
	})

	KnockoutPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "knockout_points_total",
		Help:      "Knockout points deducted, by reason.",
	}, []string{"reason"})

	Removals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "member_removals_total",
		Help:      "Members removed from groups, by reason.",
	}, []string{"reason"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Lifecycle sweep executions.",
	}, []string{"sweep"})

	SweepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_entity_failures_total",
		Help:      "Groups or members a sweep failed to process.",
	}, []string{"sweep"})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Time spent in a lifecycle sweep.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sweep"})

	TransportRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transport_retries_total",
		Help:      "Chat API calls retried, by cause.",
	}, []string{"cause"})

	TransportDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transport_dropped_total",
		Help:      "Chat API calls given up after retries.",
	})

	PendingConfirmations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_confirmations",
		Help:      "Submissions waiting for a yes/no answer.",
	})
)
