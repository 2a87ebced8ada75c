// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

// Package parser turns OctoPrint payloads into typed models.
//
// Every function here is pure. Input is decoded into private wire structs
// with goccy/go-json, checked for the fields the rest of OctoSync relies on,
// and mapped to models types. Absent optional values stay nil. Any decode or
// shape failure is returned as a *models.Error of kind KindProtocol, so a
// caller can drop the payload and keep its previous state.
package parser
