// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

// Package logging provides centralized zerolog-based structured logging for OctoSync.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("printer_id", id).Msg("Connecting")
//	logging.Error().Err(err).Msg("Baseline fetch failed")
//
//	// Context-aware logging carries the printer ID and correlation ID
//	ctx = logging.ContextWithPrinterID(ctx, printer.ID)
//	logging.Ctx(ctx).Info().Msg("Reconciling capabilities")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// # Suture Integration
//
// The supervisor tree logs through sutureslog, which requires an slog.Logger.
// NewSlogLogger returns one backed by the global zerolog logger.
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
