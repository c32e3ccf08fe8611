// Package metrics holds the Prometheus collectors for the timeline client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_api_requests_total",
			Help: "Total number of REST API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	TimelineOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_operations_total",
			Help: "Total number of timeline operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	TimelineSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeline_items",
			Help: "Number of tweets currently held in the in-memory timeline",
		},
	)

	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_store_writes_total",
			Help: "Total number of queued store writes by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	StoreQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timeline_store_queue_depth",
			Help: "Number of store writes waiting in the queue",
		},
	)
)

// RecordAPICall matches twitter.ClientConfig.MetricsHook.
func RecordAPICall(endpoint string, success, rateLimited bool) {
	APIRequestsTotal.WithLabelValues(endpoint, outcome(success, rateLimited)).Inc()
}

// RecordOperation counts a timeline operation by its result.
func RecordOperation(operation string, err error) {
	TimelineOperationsTotal.WithLabelValues(operation, errOutcome(err)).Inc()
}

// RecordStoreWrite counts a finished store write job.
func RecordStoreWrite(job string, err error) {
	StoreWritesTotal.WithLabelValues(job, errOutcome(err)).Inc()
}

func outcome(success, rateLimited bool) string {
	switch {
	case success:
		return "success"
	case rateLimited:
		return "rate_limited"
	}
	return "error"
}

func errOutcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
