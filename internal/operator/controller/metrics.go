package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Reconcile results used as the result label.
const (
	resultSuccess = "success"
	resultInvalid = "invalid"
	resultError   = "error"
)

var (
	// Reconciliation metrics
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noria_operator",
			Subsystem: "controller",
			Name:      "reconcile_total",
			Help:      "Total number of reconciliations by result",
		},
		[]string{"cluster", "result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "noria_operator",
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"cluster"},
	)

	// Child metrics
	childrenAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noria_operator",
			Subsystem: "controller",
			Name:      "children_applied_total",
			Help:      "Total number of child objects applied by kind and action",
		},
		[]string{"kind", "action"},
	)

	clusterChildren = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "noria_operator",
			Subsystem: "cluster",
			Name:      "children",
			Help:      "Number of child objects synthesized for a cluster",
		},
		[]string{"cluster"},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		reconcileTotal,
		reconcileDuration,
		childrenAppliedTotal,
		clusterChildren,
	)
}

// recordReconcileMetric records a reconciliation result.
func recordReconcileMetric(cluster, result string, duration float64) {
	reconcileTotal.WithLabelValues(cluster, result).Inc()
	reconcileDuration.WithLabelValues(cluster).Observe(duration)
}

// recordChildAppliedMetric records one apply action on a child.
func recordChildAppliedMetric(kind, action string) {
	childrenAppliedTotal.WithLabelValues(kind, action).Inc()
}

// recordClusterChildrenMetric records the synthesized child count of a cluster.
func recordClusterChildrenMetric(cluster string, children int) {
	clusterChildren.WithLabelValues(cluster).Set(float64(children))
}

// Metrics helper methods that check enableMetrics before recording.

func (r *ClusterReconciler) recordReconcile(cluster, result string, duration float64) {
	if r.enableMetrics {
		recordReconcileMetric(cluster, result, duration)
	}
}

func (r *ClusterReconciler) recordChildApplied(kind, action string) {
	if r.enableMetrics {
		recordChildAppliedMetric(kind, action)
	}
}

func (r *ClusterReconciler) recordClusterChildren(cluster string, children int) {
	if r.enableMetrics {
		recordClusterChildrenMetric(cluster, children)
	}
}
