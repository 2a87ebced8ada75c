// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package api

import (
	"net/http"

	statesync "github.com/tomtom215/octosync/internal/sync"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status     string `json:"status"`
	Connection string `json:"connection"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthResponse{
		Status:     "ok",
		Connection: h.engine.ConnectionState().String(),
	})
}

// HealthReady reports ready only while the push channel is connected.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	state := h.engine.ConnectionState()
	if state != statesync.StateConnected {
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"printer not connected", HealthResponse{Status: "not_ready", Connection: state.String()})
		return
	}
	NewResponseWriter(w, r).Success(HealthResponse{Status: "ready", Connection: state.String()})
}
