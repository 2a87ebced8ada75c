// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package api serves the local HTTP API over the state synchronizer.

Routes (Chi router, go-chi/httprate rate limiting):

	GET  /metrics                          Prometheus metrics
	GET  /api/v1/health/live               Liveness
	GET  /api/v1/health/ready              Ready while the push channel is connected
	GET  /api/v1/ws                        WebSocket state relay
	GET  /api/v1/state                     Current StateSnapshot and connection state
	GET  /api/v1/version                   Discovered server version (?require=X.Y.Z)
	GET  /api/v1/temperatures              Temperature history (400 samples)
	GET  /api/v1/temperatures/soc          Host SoC temperature history
	GET  /api/v1/terminal                  Terminal lines (?view=raw|filtered&limit=N)
	GET  /api/v1/terminal/filters          Available and active filters
	PUT  /api/v1/terminal/filters          Replace active filters
	GET  /api/v1/commands                  Command history, most recent first
	POST /api/v1/commands                  Send G-code
	GET  /api/v1/printers                  Persisted printers
	GET  /api/v1/printers/{printerID}      Printer with reconciled capabilities
	POST /api/v1/printers/{printerID}/connect
	POST /api/v1/disconnect

All JSON responses use the APIResponse envelope. Printer API keys never leave
the process.
*/
package api
