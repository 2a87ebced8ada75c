// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

import "time"

// Printer is the persisted record for one OctoPrint server.
type Printer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BaseURL  string `json:"baseUrl"`
	APIKey   string `json:"apiKey"` // encrypted at rest by the store
	Username string `json:"username,omitempty"`

	// Reconciled from settings and the active printer profile.
	SDSupport          bool                `json:"sdSupport"`
	ExtruderCount      int                 `json:"extruderCount"`
	SharedNozzle       bool                `json:"sharedNozzle"`
	TemperaturePresets []TemperaturePreset `json:"temperaturePresets,omitempty"`
	Color              string              `json:"color,omitempty"`
	Orientation        Orientation         `json:"orientation"`

	// Plugins maps plugin-installed flags by plugin identifier.
	Plugins map[string]bool `json:"plugins,omitempty"`

	// Migrations lists the one-shot migrations already applied.
	Migrations []string `json:"migrations,omitempty"`

	OctoPrintVersion string    `json:"octoprintVersion,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasMigration reports whether migration id was applied.
func (p *Printer) HasMigration(id string) bool {
	for _, m := range p.Migrations {
		if m == id {
			return true
		}
	}
	return false
}

// PluginInstalled reports the reconciled flag for plugin id.
func (p *Printer) PluginInstalled(id string) bool {
	return p.Plugins[id]
}

// Orientation holds camera flips and axis inversion.
type Orientation struct {
	FlipH    bool `json:"flipH"`
	FlipV    bool `json:"flipV"`
	Rotate90 bool `json:"rotate90"`
	InvertX  bool `json:"invertX"`
	InvertY  bool `json:"invertY"`
	InvertZ  bool `json:"invertZ"`
}

// Camera is a webcam advertised by OctoPrint or the MultiCam plugin.
type Camera struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	StreamURL   string `json:"streamUrl"`
	SnapshotURL string `json:"snapshotUrl,omitempty"`
	StreamRatio string `json:"streamRatio,omitempty"`
	FlipH       bool   `json:"flipH"`
	FlipV       bool   `json:"flipV"`
	Rotate90    bool   `json:"rotate90"`
}

// EnclosureInput is a GPIO input or sensor from the Enclosure plugin.
type EnclosureInput struct {
	IndexID        int    `json:"indexId"`
	Label          string `json:"label"`
	InputType      string `json:"inputType"`
	TempSensorType string `json:"tempSensorType,omitempty"`
	UseFahrenheit  bool   `json:"useFahrenheit"`
}

// EnclosureOutput is a GPIO output from the Enclosure plugin.
type EnclosureOutput struct {
	IndexID    int    `json:"indexId"`
	Label      string `json:"label"`
	OutputType string `json:"outputType"`
	GPIOPin    int    `json:"gpioPin"`
	Inverted   bool   `json:"inverted"`
}

// SmartPlug is a network power plug managed by one of the smart plug plugins.
type SmartPlug struct {
	Plugin string `json:"plugin"`
	IP     string `json:"ip"`
	Idx    string `json:"idx,omitempty"`
	Label  string `json:"label"`
}

// Key identifies the plug within its plugin.
func (p SmartPlug) Key() string {
	if p.Idx == "" {
		return p.IP
	}
	return p.IP + "#" + p.Idx
}

// TerminalFilter is a named terminal suppression rule.
type TerminalFilter struct {
	Name  string `json:"name"`
	Regex string `json:"regex"`
}

// CapabilitySet holds the keyed capability records of one printer.
type CapabilitySet struct {
	Cameras          []Camera               `json:"cameras"`
	EnclosureInputs  []EnclosureInput       `json:"enclosureInputs"`
	EnclosureOutputs []EnclosureOutput      `json:"enclosureOutputs"`
	Plugs            map[string][]SmartPlug `json:"plugs"`
	TerminalFilters  []TerminalFilter       `json:"terminalFilters"`
}
