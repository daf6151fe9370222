// internal/app/system/metrics/metrics.go
//
// Package metrics defines the Prometheus collectors for the sync layer and
// small helpers that record into them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eduverse"

var (
	// remoteOps counts remote document operations.
	// Labels: op (initialize, read, update, reset, next_id, migrate), status (ok, error, skipped)
	remoteOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "remote",
		Name:      "operations_total",
		Help:      "Remote document operations by outcome",
	}, []string{"op", "status"})

	// remoteLatency measures remote document operation latency.
	// Labels: op
	remoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "remote",
		Name:      "latency_seconds",
		Help:      "Remote document operation latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op"})

	// snapshotsDelivered counts snapshots handed to subscribers.
	// Labels: source (remote, cache)
	snapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "snapshots_delivered_total",
		Help:      "Snapshots delivered to subscribers by source",
	}, []string{"source"})

	// mutations counts Mutation API calls.
	// Labels: op (add_batch, delete_subject, ...), path (remote, fallback)
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mutations",
		Name:      "total",
		Help:      "Mutations applied, by operation and commit path",
	}, []string{"op", "path"})

	// subscriptions is the number of live remote subscriptions.
	subscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "subscriptions",
		Help:      "Live remote subscriptions",
	})

	// liveClients is the number of connected push clients.
	liveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "clients",
		Help:      "Connected live snapshot clients",
	})

	// resubscribes counts resubscribe attempts by the background worker.
	// Labels: status (ok, error)
	resubscribes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "resubscribe_attempts_total",
		Help:      "Resubscribe attempts after a lost subscription",
	}, []string{"status"})
)

// ObserveRemote records the outcome and latency of one remote operation.
func ObserveRemote(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	remoteOps.WithLabelValues(op, status).Inc()
	remoteLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SkipRemote records a remote operation that was not attempted (local mode).
func SkipRemote(op string) {
	remoteOps.WithLabelValues(op, "skipped").Inc()
}

// SnapshotDelivered records one delivery to a subscriber.
func SnapshotDelivered(source string) {
	snapshotsDelivered.WithLabelValues(source).Inc()
}

// Mutation records one committed mutation. fallback is true when the change
// was applied to the in-process store because the remote write failed.
func Mutation(op string, fallback bool) {
	path := "remote"
	if fallback {
		path = "fallback"
	}
	mutations.WithLabelValues(op, path).Inc()
}

// SubscriptionOpened and SubscriptionClosed track live remote subscriptions.
func SubscriptionOpened() { subscriptions.Inc() }
func SubscriptionClosed() { subscriptions.Dec() }

// LiveClientConnected and LiveClientDisconnected track push clients.
func LiveClientConnected()    { liveClients.Inc() }
func LiveClientDisconnected() { liveClients.Dec() }

// Resubscribe records one resubscribe attempt.
func Resubscribe(err error) {
	if err != nil {
		resubscribes.WithLabelValues("error").Inc()
		return
	}
	resubscribes.WithLabelValues("ok").Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
