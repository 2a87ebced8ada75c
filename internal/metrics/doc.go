// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package metrics provides Prometheus instrumentation for OctoSync.

All collectors are registered with the default registry via promauto and are
exposed by the local API at /metrics.

Connection Metrics:
  - octosync_connection_state: Current push channel state (gauge, 0=idle 1=connecting 2=connected 3=retrying 4=failed)
  - octosync_reconnect_attempts_total: Scheduled reconnects (counter)
  - octosync_connection_failures_total: Terminal connection failures by error kind (counter)

Frame Metrics:
  - octosync_frames_received_total: Push frames by kind (counter)
  - octosync_frames_dropped_total: Frames dropped by reason (counter)

Synchronization Metrics:
  - octosync_baseline_fetches_total: REST baseline results (counter)
  - octosync_stale_responses_total: Discarded REST responses from superseded connects (counter)
  - octosync_reconcile_changes_total: Changed capability domains (counter)
  - octosync_reconcile_duration_seconds: Reconciliation pass latency (histogram)

REST Metrics:
  - octosync_rest_requests_total: Requests to OctoPrint by endpoint and status (counter)
  - octosync_rest_request_duration_seconds: Request latency (histogram)

Circuit Breaker Metrics:
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total

Local API Metrics:
  - octosync_api_requests_total, octosync_api_request_duration_seconds
  - octosync_ws_clients: Connected local websocket clients (gauge)

Example Prometheus alert:

	- alert: OctoPrintConnectionFailed
	  expr: octosync_connection_state == 4
	  for: 1m
*/
package metrics
