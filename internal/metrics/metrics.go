// Package metrics holds the Prometheus instrumentation for the scheduler
// core, registered once with the default registry via promauto the way
// router/metrics.go registers the border router's dataplane metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tmsched"

var (
	// NodeEnqueuedTotal counts descriptors inserted into a node's calendar
	// store.
	NodeEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_enqueued_total",
		Help:      "Total descriptors inserted into a node's calendar store.",
	}, []string{"node_id", "scheduler"})

	// NodeDequeuedTotal counts descriptors emitted from a node's calendar
	// store.
	NodeDequeuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "node_dequeued_total",
		Help:      "Total descriptors emitted from a node's calendar store.",
	}, []string{"node_id", "scheduler"})

	// NodeCalendarDepth tracks the current size of a node's calendar store.
	NodeCalendarDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "node_calendar_depth",
		Help:      "Current number of descriptors held in a node's calendar store.",
	}, []string{"node_id"})

	// PredicateEvaluationsTotal counts eval_predicate invocations per node.
	PredicateEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predicate_evaluations_total",
		Help:      "Total evaluate_predicate invocations.",
	}, []string{"node_id"})

	// PoolOccupancy tracks how many payloads sit in the packet pool for a
	// given egress port.
	PoolOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_occupancy",
		Help:      "Current number of payloads held in the packet pool for a port.",
	}, []string{"port"})

	// EgressDeliveredTotal counts payloads pushed to the egress buffer.
	EgressDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "egress_delivered_total",
		Help:      "Total payloads delivered to the egress buffer.",
	}, []string{"port"})

	// ReconfigurationsTotal counts reconfiguration attempts by outcome.
	ReconfigurationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconfigurations_total",
		Help:      "Total reconfiguration attempts by outcome.",
	}, []string{"result"})

	// ReconfigurationDrainSeconds measures how long the pool-drain wait of a
	// reconfiguration took.
	ReconfigurationDrainSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconfiguration_drain_seconds",
		Help:      "Duration of the pool-drain wait during reconfiguration.",
		Buckets:   prometheus.DefBuckets,
	})

	// ReconfigurationDurationSeconds measures the full gate-close-to-reopen
	// span of a reconfiguration attempt, including the drain wait.
	ReconfigurationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconfiguration_duration_seconds",
		Help:      "Duration of a full reconfiguration attempt, gate close to reopen.",
		Buckets:   prometheus.DefBuckets,
	})
)
