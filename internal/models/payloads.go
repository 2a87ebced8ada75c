// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

import "github.com/goccy/go-json"

// OctoPrint REST and push payload models.
// Settings: GET /api/settings
// Profiles: GET /api/printerprofiles
// Push:     /sockjs/websocket

// Settings is the subset of /api/settings that OctoSync reconciles.
type Settings struct {
	Feature         FeatureSettings            `json:"feature"`
	Temperature     TemperatureSettings        `json:"temperature"`
	Webcam          WebcamSettings             `json:"webcam"`
	Appearance      AppearanceSettings         `json:"appearance"`
	TerminalFilters []TerminalFilter           `json:"terminalFilters"`
	Plugins         map[string]json.RawMessage `json:"plugins"`
}

// HasPlugin reports whether the server advertises a settings section for plugin id.
func (s *Settings) HasPlugin(id string) bool {
	_, ok := s.Plugins[id]
	return ok
}

type FeatureSettings struct {
	SDSupport *bool `json:"sdSupport,omitempty"`
}

type TemperatureSettings struct {
	Profiles []TemperaturePreset `json:"profiles"`
}

// TemperaturePreset is a named bed/extruder preheat preset.
type TemperaturePreset struct {
	Name     string  `json:"name"`
	Bed      float64 `json:"bed"`
	Extruder float64 `json:"extruder"`
	Chamber  float64 `json:"chamber,omitempty"`
}

type WebcamSettings struct {
	WebcamEnabled *bool  `json:"webcamEnabled,omitempty"`
	StreamURL     string `json:"streamUrl"`
	SnapshotURL   string `json:"snapshotUrl"`
	StreamRatio   string `json:"streamRatio"`
	FlipH         bool   `json:"flipH"`
	FlipV         bool   `json:"flipV"`
	Rotate90      bool   `json:"rotate90"`
}

type AppearanceSettings struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PrinterProfiles is the /api/printerprofiles payload plus the active profile
// ID reported by /api/connection.
type PrinterProfiles struct {
	Current  *ConnectionCurrent        `json:"current,omitempty"`
	Profiles map[string]PrinterProfile `json:"profiles"`
}

// ConnectionCurrent is the "current" object of /api/connection.
type ConnectionCurrent struct {
	State          string `json:"state"`
	Port           string `json:"port"`
	PrinterProfile string `json:"printerProfile"`
}

// ActiveProfile returns the profile in use: the one named by Current, else the
// one flagged current, else the default one.
func (p *PrinterProfiles) ActiveProfile() (PrinterProfile, bool) {
	if p.Current != nil {
		if prof, ok := p.Profiles[p.Current.PrinterProfile]; ok {
			return prof, true
		}
	}
	var fallback *PrinterProfile
	for id := range p.Profiles {
		prof := p.Profiles[id]
		if prof.Current {
			return prof, true
		}
		if prof.Default && fallback == nil {
			fallback = &prof
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return PrinterProfile{}, false
}

// PrinterProfile is one OctoPrint printer profile.
type PrinterProfile struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Model         string          `json:"model"`
	Color         string          `json:"color"`
	Current       bool            `json:"current"`
	Default       bool            `json:"default"`
	HeatedBed     bool            `json:"heatedBed"`
	HeatedChamber bool            `json:"heatedChamber"`
	Axes          ProfileAxes     `json:"axes"`
	Extruder      ProfileExtruder `json:"extruder"`
}

type ProfileAxes struct {
	X ProfileAxis `json:"x"`
	Y ProfileAxis `json:"y"`
	Z ProfileAxis `json:"z"`
}

type ProfileAxis struct {
	Inverted bool    `json:"inverted"`
	Speed    float64 `json:"speed,omitempty"`
}

type ProfileExtruder struct {
	Count        int  `json:"count"`
	SharedNozzle bool `json:"sharedNozzle"`
}

// Session is the result of a passive login.
type Session struct {
	Name    string `json:"name"`
	Session string `json:"session"`
}

// AuthToken is the value sent in the push channel auth frame.
func (s Session) AuthToken() string {
	return s.Name + ":" + s.Session
}

// Event is a push "event" frame.
type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Events that trigger capability reconciliation.
const (
	EventSettingsUpdated        = "SettingsUpdated"
	EventPrinterProfileModified = "PrinterProfileModified"
	EventConnected              = "Connected"
	EventDisconnected           = "Disconnected"
)

// PluginMessage is a push "plugin" frame.
type PluginMessage struct {
	Plugin string          `json:"plugin"`
	Data   json.RawMessage `json:"data"`
}

// ConnectedInfo is the push "connected" frame sent once per channel.
type ConnectedInfo struct {
	Version        string `json:"version"`
	DisplayVersion string `json:"display_version"`
	Branch         string `json:"branch,omitempty"`
	PluginHash     string `json:"plugin_hash,omitempty"`
	ConfigHash     string `json:"config_hash,omitempty"`
	Safemode       bool   `json:"safe_mode,omitempty"`
}
