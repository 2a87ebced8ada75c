// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/validation"
)

// maxRequestBody bounds request bodies; commands and filter lists are small.
const maxRequestBody = 64 * 1024

// CommandRequest is the body of POST /api/v1/commands. All lines are sent as
// one command and recorded as one history entry.
type CommandRequest struct {
	Commands []string `json:"commands" validate:"required,min=1,max=50,dive,gcode,max=256"`
}

// FilterRequest is the body of PUT /api/v1/terminal/filters. An empty list
// disables filtering.
type FilterRequest struct {
	Filters []string `json:"filters" validate:"max=32,dive,filtername,max=64"`
}

// TerminalQuery selects which terminal buffer to return.
type TerminalQuery struct {
	View  string `validate:"omitempty,oneof=raw filtered"`
	Limit int    `validate:"gte=0,lte=200"`
}

// decodeAndValidate decodes a JSON body into dst and validates it. It writes
// the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return false
	}
	if len(body) > maxRequestBody {
		rw.BadRequest("request body too large")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		rw.BadRequest("invalid JSON body")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.ValidationError(verr.Error(), verr.ToAPIError().Details)
		return false
	}
	return true
}

// parseTerminalQuery reads ?view= and ?limit= for the terminal endpoint.
func parseTerminalQuery(w http.ResponseWriter, r *http.Request) (TerminalQuery, bool) {
	q := TerminalQuery{View: r.URL.Query().Get("view")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			NewResponseWriter(w, r).BadRequest("limit must be an integer")
			return q, false
		}
		q.Limit = n
	}
	if verr := validation.ValidateStruct(q); verr != nil {
		NewResponseWriter(w, r).ValidationError(verr.Error(), verr.ToAPIError().Details)
		return q, false
	}
	return q, true
}
