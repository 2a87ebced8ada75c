// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
)

// StateResponse is the body of GET /api/v1/state.
type StateResponse struct {
	PrinterID  string               `json:"printer_id,omitempty"`
	Connection string               `json:"connection"`
	Snapshot   models.StateSnapshot `json:"snapshot"`
}

// State returns the canonical state snapshot.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Connection: h.engine.ConnectionState().String(),
		Snapshot:   h.engine.Snapshot(),
	}
	if p, ok := h.engine.Printer(); ok {
		resp.PrinterID = p.ID
	}
	NewResponseWriter(w, r).Success(resp)
}

// Temperatures returns the temperature history, oldest first.
func (h *Handler) Temperatures(w http.ResponseWriter, r *http.Request) {
	temps := h.engine.Temperatures()
	NewResponseWriter(w, r).SuccessList(temps, len(temps))
}

// SoCTemperatures returns the host SoC temperature history, oldest first.
func (h *Handler) SoCTemperatures(w http.ResponseWriter, r *http.Request) {
	temps := h.engine.SoCTemperatures()
	NewResponseWriter(w, r).SuccessList(temps, len(temps))
}

// Terminal returns terminal lines. view=raw returns the unfiltered buffer,
// view=filtered the filtered one; by default the view matching the active
// filters is returned. limit keeps only the newest lines.
func (h *Handler) Terminal(w http.ResponseWriter, r *http.Request) {
	q, ok := parseTerminalQuery(w, r)
	if !ok {
		return
	}

	term := h.engine.Terminal()
	var lines []string
	switch q.View {
	case "raw":
		lines = term.Raw()
	case "filtered":
		lines = term.Filtered()
	default:
		lines = term.Lines()
	}
	if q.Limit > 0 && len(lines) > q.Limit {
		lines = lines[len(lines)-q.Limit:]
	}
	NewResponseWriter(w, r).SuccessList(lines, len(lines))
}

// FiltersResponse is the body of GET /api/v1/terminal/filters.
type FiltersResponse struct {
	Available []models.TerminalFilter `json:"available"`
	Active    []string                `json:"active"`
}

// Filters lists the available and active terminal filters.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(FiltersResponse{
		Available: h.engine.AvailableFilters(),
		Active:    h.engine.ActiveFilters(),
	})
}

// SetFilters replaces the active terminal filters.
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()
	if err := h.engine.SetTerminalFilters(ctx, req.Filters); err != nil {
		respondDomainError(NewResponseWriter(w, r), err)
		return
	}
	h.Filters(w, r)
}

// Commands returns the command history, most recent first.
func (h *Handler) Commands(w http.ResponseWriter, r *http.Request) {
	cmds := h.engine.Commands()
	NewResponseWriter(w, r).SuccessList(cmds, len(cmds))
}

// SendCommand sends G-code to the printer.
func (h *Handler) SendCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()
	if err := h.engine.SendCommand(ctx, strings.Join(req.Commands, "\n")); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int("lines", len(req.Commands)).Msg("Command rejected")
		respondDomainError(NewResponseWriter(w, r), err)
		return
	}
	NewResponseWriter(w, r).Accepted(map[string]int{"lines": len(req.Commands)})
}

// VersionResponse is the body of GET /api/v1/version.
type VersionResponse struct {
	Known      bool               `json:"known"`
	Version    models.VersionInfo `json:"version"`
	Required   string             `json:"required,omitempty"`
	Comparison string             `json:"comparison,omitempty"`
}

// Version returns the discovered server version. With ?require=X.Y.Z the
// response also carries the comparison against that version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	info, known := h.engine.Version()
	resp := VersionResponse{Known: known, Version: info}

	if req := r.URL.Query().Get("require"); req != "" {
		var major, minor, patch int
		if n, _ := fmt.Sscanf(req, "%d.%d.%d", &major, &minor, &patch); n < 2 {
			NewResponseWriter(w, r).BadRequest("require must be MAJOR.MINOR[.PATCH]")
			return
		}
		resp.Required = req
		resp.Comparison = h.engine.IsVersionAtLeast(major, minor, patch).String()
	}
	NewResponseWriter(w, r).Success(resp)
}
