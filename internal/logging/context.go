// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	printerIDKey     contextKey = "printer_id"
)

// GenerateCorrelationID creates a short correlation ID.
// Returns the first 8 characters of a UUID for readability.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithPrinterID tags the context with the printer being synchronized.
func ContextWithPrinterID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, printerIDKey, id)
}

// PrinterIDFromContext retrieves the printer ID from context.
func PrinterIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(printerIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger with context values (correlation_id, printer_id) added.
//
//	logging.Ctx(ctx).Info().Msg("Baseline applied")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := PrinterIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("printer_id", id)
	}
	l := logCtx.Logger()
	return &l
}
