// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Configuration sections and local
// API request bodies are validated through ValidateStruct.
//
// Custom tags:
//
//	gcode      - a single non-empty line of printable ASCII (no CR/LF)
//	filtername - a terminal filter name (printable, no leading/trailing space)
//
// Example:
//
//	type commandRequest struct {
//	    Command string `json:"command" validate:"required,max=256,gcode"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    ...
//	}
package validation
