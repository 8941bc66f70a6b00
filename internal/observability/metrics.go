package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayLatency records persistence gateway latency by operation and table.
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitprove_gateway_latency_seconds",
		Help:    "Persistence gateway call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// GatewayErrors counts failed gateway calls by operation, table and error kind.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitprove_gateway_errors_total",
		Help: "Total number of failed persistence gateway calls",
	}, []string{"operation", "table", "kind"})

	// DegradedWrites counts inserts retried with the reduced column set.
	DegradedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitprove_degraded_writes_total",
		Help: "Total number of inserts retried without optional columns",
	}, []string{"table"})

	// OptimisticRollbacks counts optimistic feed mutations reverted after a failed write.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitprove_optimistic_rollbacks_total",
		Help: "Total number of optimistic updates rolled back",
	}, []string{"action"})

	// ReconciledReactions counts toggles where the server truth differed from the prediction.
	ReconciledReactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fitprove_reaction_reconciliations_total",
		Help: "Total number of reaction toggles corrected by server state",
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitprove_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})
)

// TrackGateway returns a function that records call latency when called (e.g. defer).
func TrackGateway(operation, table string) func() {
	start := time.Now()
	return func() {
		GatewayLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
