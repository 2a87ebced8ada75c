// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package store

import (
	"fmt"
	"strings"
)

// Key prefixes
const (
	printerPrefix    = "printers/"
	capabilityPrefix = "capabilities/"
	commandPrefix    = "commands/"
)

// Capability domains stored under capabilities/<printerID>/.
const (
	DomainCameras          = "cameras"
	DomainEnclosureInputs  = "enclosure_inputs"
	DomainEnclosureOutputs = "enclosure_outputs"
	DomainPlugs            = "plugs"
	DomainTerminalFilters  = "terminal_filters"
)

// PrinterKey is the key of a printer record.
func PrinterKey(printerID string) string {
	return printerPrefix + printerID
}

// CommandHistoryKey is the key of a printer's command history.
func CommandHistoryKey(printerID string) string {
	return commandPrefix + printerID
}

// CapabilityPrefix returns the prefix of all records of domain for a printer.
// An empty domain returns the prefix of all the printer's capabilities.
func CapabilityPrefix(printerID, domain string) string {
	if domain == "" {
		return capabilityPrefix + printerID + "/"
	}
	return capabilityPrefix + printerID + "/" + domain + "/"
}

// CapabilityKey returns the key of one capability record. Slashes in the
// natural key are escaped so they cannot create extra path segments.
func CapabilityKey(printerID, domain, key string) string {
	return CapabilityPrefix(printerID, domain) + escapeSegment(key)
}

// IndexKey formats a numeric index so keys sort numerically.
func IndexKey(index int) string {
	return fmt.Sprintf("%06d", index)
}

var segmentEscaper = strings.NewReplacer("%", "%25", "/", "%2F")

func escapeSegment(s string) string {
	return segmentEscaper.Replace(s)
}

// PlugKey returns the key of a smart plug: plugs/<plugin>/<plug key>.
func PlugKey(printerID, plugin, plugKey string) string {
	return CapabilityPrefix(printerID, DomainPlugs) + escapeSegment(plugin) + "/" + escapeSegment(plugKey)
}
