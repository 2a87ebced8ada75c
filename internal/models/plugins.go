// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

// Plugin identifiers OctoSync understands.
const (
	PluginOctoPod              = "octopod"
	PluginCancelObject         = "cancelobject"
	PluginOctoRelay            = "octorelay"
	PluginPSUControl           = "psucontrol"
	PluginEnclosure            = "enclosure"
	PluginMultiCam             = "multicam"
	PluginFilamentManager      = "filamentmanager"
	PluginSpoolManager         = "SpoolManager"
	PluginPalette2             = "palette2"
	PluginBLTouch              = "BLTouch"
	PluginDisplayLayerProgress = "DisplayLayerProgress"
	PluginTPLinkSmartPlug      = "tplinksmartplug"
	PluginTuyaSmartPlug        = "tuyasmartplug"
	PluginWemoSwitch           = "wemoswitch"
	PluginDomoticz             = "domoticz"
	PluginTasmota              = "tasmota"
)

// PrintFile is a reference to a file known to OctoPrint.
type PrintFile struct {
	Name    string `json:"name"`
	Display string `json:"display,omitempty"`
	Path    string `json:"path,omitempty"`
	Origin  string `json:"origin"` // local or sdcard
	Size    *int64 `json:"size,omitempty"`
	Date    *int64 `json:"date,omitempty"`
}

// DisplayName returns Display when set, else Name.
func (f *PrintFile) DisplayName() string {
	if f.Display != "" {
		return f.Display
	}
	return f.Name
}

// CancelObject is one object reported by the Cancel Objects plugin.
type CancelObject struct {
	ID     int    `json:"id"`
	Object string `json:"object"`
	Active bool   `json:"active"`
	Ignore bool   `json:"ignore"`
}

// Relay is one relay reported by the OctoRelay plugin.
type Relay struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Active   bool   `json:"active"`
	Disabled bool   `json:"disabled,omitempty"`
}

// PlugPower is the power state of an IP smart plug.
type PlugPower string

const (
	PlugOn      PlugPower = "on"
	PlugOff     PlugPower = "off"
	PlugUnknown PlugPower = "unknown"
)

// IPPlugState is a state update pushed by a smart plug plugin.
type IPPlugState struct {
	Plugin string    `json:"plugin"`
	IP     string    `json:"ip"`
	Idx    string    `json:"idx,omitempty"`
	State  PlugPower `json:"state"`
}
