// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
)

// ListPrinters returns every persisted printer without credentials.
func (h *Handler) ListPrinters(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	printers, err := h.printers.List(r.Context())
	if err != nil {
		rw.StoreError(err)
		return
	}

	out := make([]models.Printer, 0, len(printers))
	for _, p := range printers {
		out = append(out, redact(p))
	}
	rw.SuccessList(out, len(out))
}

// GetPrinter returns one printer with its reconciled capabilities.
func (h *Handler) GetPrinter(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "printerID")

	printer, err := h.printers.Get(r.Context(), id)
	if err != nil {
		respondDomainError(rw, err)
		return
	}
	caps, err := h.printers.Capabilities(r.Context(), id)
	if err != nil {
		rw.StoreError(err)
		return
	}

	rw.Success(struct {
		Printer      models.Printer       `json:"printer"`
		Capabilities models.CapabilitySet `json:"capabilities"`
	}{redact(printer), caps})
}

// Connect switches the synchronizer to the given printer.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "printerID")

	printer, err := h.printers.Get(r.Context(), id)
	if err != nil {
		respondDomainError(rw, err)
		return
	}
	if err := h.engine.ConnectToServer(printer); err != nil {
		respondDomainError(rw, err)
		return
	}

	logging.Info().
		Str("printer_id", id).
		Str("url", logging.SanitizeURL(printer.BaseURL)).
		Msg("Connect requested via API")
	rw.Accepted(map[string]string{"printer_id": id})
}

// Disconnect closes the push channel. The last snapshot stays readable.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.engine.Disconnect()
	logging.Info().Msg("Disconnect requested via API")
	NewResponseWriter(w, r).Accepted(map[string]string{"connection": "closing"})
}
