// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

// Package api provides HTTP handlers for the OctoSync local API.
//
// errors.go - Mapping of domain errors to HTTP responses
package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/store"
	statesync "github.com/tomtom215/octosync/internal/sync"
)

// ErrHubUnavailable indicates the websocket relay was not configured.
var ErrHubUnavailable = errors.New("websocket hub not available")

// respondDomainError writes the response matching err's category.
func respondDomainError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, statesync.ErrNotConnected):
		rw.Error(http.StatusConflict, ErrCodeNotConnected, err.Error())
	case errors.Is(err, statesync.ErrUnknownFilter):
		rw.NotFound(err.Error())
	case errors.Is(err, statesync.ErrEmptyCommand), errors.Is(err, statesync.ErrInvalidPrinter):
		rw.BadRequest(err.Error())
	case errors.Is(err, store.ErrNotFound):
		rw.NotFound("printer not found")
	case errors.Is(err, models.ErrNotOperational):
		rw.Conflict("printer is not operational")
	case errors.Is(err, models.ErrAuthentication):
		rw.ExternalServiceError("octoprint", err)
	case errors.Is(err, models.ErrTransport), errors.Is(err, models.ErrTunnel), errors.Is(err, models.ErrProtocol):
		rw.ExternalServiceError("octoprint", err)
	default:
		rw.InternalError("internal error")
	}
}
