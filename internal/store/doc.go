// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package store persists printer records and their reconciled capabilities.

Repository is the narrow key/value contract (get, upsert, delete, list by
prefix) the rest of OctoSync depends on. BadgerRepository implements it on
BadgerDB with JSON values.

Key layout:

	printers/<printerID>                                 models.Printer
	capabilities/<printerID>/cameras/<index>             models.Camera
	capabilities/<printerID>/enclosure_inputs/<index>    models.EnclosureInput
	capabilities/<printerID>/enclosure_outputs/<index>   models.EnclosureOutput
	capabilities/<printerID>/plugs/<plugin>/<key>        models.SmartPlug
	capabilities/<printerID>/terminal_filters/<name>     models.TerminalFilter
	commands/<printerID>                                 []string (most recent first)

PrinterStore adds typed access on top and encrypts API keys at rest.
*/
package store
