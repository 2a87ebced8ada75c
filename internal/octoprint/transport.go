// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package octoprint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/octosync/internal/models"
)

// Request is one REST call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Body   interface{}
}

// Op returns "METHOD /path" for logs and errors.
func (r Request) Op() string {
	return r.Method + " " + r.Path
}

// Response is the outcome of a Request. Err is set when no HTTP response was
// received; Status and Body are set otherwise.
type Response struct {
	Status int
	Body   []byte
	Err    error
}

// Doer executes REST requests. Client implements it; tests substitute fakes.
type Doer interface {
	Do(ctx context.Context, req Request) Response
}

// maxErrorBody bounds the body excerpt included in error messages.
const maxErrorBody = 200

// Error classifies the response. It returns nil for 2xx.
func (r Response) Error(op string) error {
	if r.Err != nil {
		var me *models.Error
		if errors.As(r.Err, &me) {
			return r.Err
		}
		return models.NewError(models.KindTransport, op, 0, r.Err)
	}

	kind, failed := models.KindForStatus(r.Status)
	if !failed {
		return nil
	}

	excerpt := strings.TrimSpace(string(r.Body))
	if len(excerpt) > maxErrorBody {
		excerpt = excerpt[:maxErrorBody] + "..."
	}
	var cause error
	if excerpt != "" {
		cause = fmt.Errorf("server replied: %s", excerpt)
	}
	return models.NewError(kind, op, r.Status, cause)
}
