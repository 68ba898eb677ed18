package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zmartboard_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ReorderOperations counts position reorder transactions by entity and outcome.
	ReorderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zmartboard_reorder_operations_total",
			Help: "Total number of column/task reorder transactions",
		},
		[]string{"entity", "result"},
	)

	// InvitationTransitions counts invitation state transitions (accepted|rejected|expired|cancelled).
	InvitationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zmartboard_invitation_transitions_total",
			Help: "Total number of project invitation state transitions",
		},
		[]string{"state"},
	)

	// VerificationCodes counts verification code operations by type and outcome.
	VerificationCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zmartboard_verification_codes_total",
			Help: "Total number of verification code issues and checks",
		},
		[]string{"type", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zmartboard_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
