// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package reconcile compares what an OctoPrint server advertises (settings,
plugin settings, active printer profile) with the locally persisted printer
record and capability records.

Each capability domain is diffed independently:

	cameras            webcam settings or multicam profiles, keyed by index
	enclosure_inputs   enclosure rpi_inputs, keyed by index_id
	enclosure_outputs  enclosure rpi_outputs, keyed by index_id; hide_btn_ui entries are skipped
	plugs/<plugin>     arrSmartplugs of each smart plug plugin, keyed by IP (and idx for tasmota)
	terminal_filters   terminalFilters, keyed by name
	flags              plugin-installed flags on the printer record
	orientation        webcam flips and profile axis inversion on the printer record
	printer            SD support, presets, color, extruder layout on the printer record

A domain appears in the ChangeSet only if something in it differs. Running
Reconcile twice with the same input yields an empty ChangeSet the second time.

Migrations force a domain through the write path once per printer, regardless
of whether anything differs.
*/
package reconcile
