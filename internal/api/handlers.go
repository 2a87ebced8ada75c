// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/octosync/internal/history"
	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/store"
	statesync "github.com/tomtom215/octosync/internal/sync"
	ws "github.com/tomtom215/octosync/internal/websocket"
)

// Engine is the synchronizer surface the API needs. *sync.Manager satisfies it.
type Engine interface {
	Snapshot() models.StateSnapshot
	Printer() (models.Printer, bool)
	Version() (models.VersionInfo, bool)
	IsVersionAtLeast(major, minor, patch int) models.VersionComparison
	ConnectionState() statesync.ConnState
	Temperatures() []models.TemperatureSample
	SoCTemperatures() []models.SoCTemperature
	Terminal() *history.Terminal
	Commands() []string
	AvailableFilters() []models.TerminalFilter
	ActiveFilters() []string
	SetTerminalFilters(ctx context.Context, names []string) error
	SendCommand(ctx context.Context, gcode string) error
	ConnectToServer(printer models.Printer) error
	Disconnect()
}

// Handler serves the local API.
type Handler struct {
	engine         Engine
	printers       *store.PrinterStore
	wsHub          *ws.Hub
	allowedOrigins []string
	commandTimeout time.Duration
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// AllowedOrigins lists websocket origins; "*" accepts any.
	AllowedOrigins []string

	// CommandTimeout bounds SendCommand and SetTerminalFilters.
	CommandTimeout time.Duration
}

// NewHandler creates a Handler. hub may be nil, in which case /ws answers 503.
func NewHandler(engine Engine, printers *store.PrinterStore, hub *ws.Hub, cfg HandlerConfig) *Handler {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	return &Handler{
		engine:         engine,
		printers:       printers,
		wsHub:          hub,
		allowedOrigins: cfg.AllowedOrigins,
		commandTimeout: cfg.CommandTimeout,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts requests without an Origin header (local
// tools) and browser requests from an allowed origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// WebSocket upgrades the request and attaches the client to the relay hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable(ErrHubUnavailable.Error())
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}

// redact clears credentials before a printer record leaves the process.
func redact(p models.Printer) models.Printer {
	p.APIKey = ""
	return p
}
