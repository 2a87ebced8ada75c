// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection Metrics
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "octosync_connection_state",
			Help: "Push channel state (0=idle, 1=connecting, 2=connected, 3=retrying, 4=failed)",
		},
	)

	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "octosync_reconnect_attempts_total",
			Help: "Total number of scheduled reconnect attempts",
		},
	)

	ConnectionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_connection_failures_total",
			Help: "Total number of terminal connection failures",
		},
		[]string{"kind"}, // transport, authentication, tunnel, ...
	)

	// Frame Metrics
	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_frames_received_total",
			Help: "Total number of push frames received",
		},
		[]string{"kind"}, // current, history, plugin, event, connected, reauth
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_frames_dropped_total",
			Help: "Total number of push frames dropped",
		},
		[]string{"reason"}, // protocol, stale
	)

	// Synchronization Metrics
	BaselineFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_baseline_fetches_total",
			Help: "Total number of REST baseline fetches",
		},
		[]string{"result"}, // ok, offline, error
	)

	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_stale_responses_total",
			Help: "REST responses discarded because a newer connect superseded them",
		},
		[]string{"request"},
	)

	ReconcileChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_reconcile_changes_total",
			Help: "Total number of changed capability domains",
		},
		[]string{"domain"},
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "octosync_reconcile_duration_seconds",
			Help:    "Duration of capability reconciliation passes",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)

	// REST Metrics
	RESTRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_rest_requests_total",
			Help: "Total number of REST requests to OctoPrint",
		},
		[]string{"method", "endpoint", "status"},
	)

	RESTRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "octosync_rest_request_duration_seconds",
			Help:    "REST request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Local API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octosync_api_requests_total",
			Help: "Total number of local API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "octosync_api_request_duration_seconds",
			Help:    "Local API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "octosync_ws_clients",
			Help: "Number of connected local websocket clients",
		},
	)
)

// RecordRESTRequest records one OctoPrint REST call. status 0 means no response.
func RecordRESTRequest(method, endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	RESTRequestsTotal.WithLabelValues(method, endpoint, label).Inc()
	RESTRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records one local API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordReconcile records a reconciliation pass and the domains it changed.
func RecordReconcile(duration time.Duration, changedDomains []string) {
	ReconcileDuration.Observe(duration.Seconds())
	for _, d := range changedDomains {
		ReconcileChanges.WithLabelValues(d).Inc()
	}
}

// SetConnectionState publishes the numeric connection state.
func SetConnectionState(state int) {
	ConnectionState.Set(float64(state))
}
