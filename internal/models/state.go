// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

import "time"

// MaxTools is the number of tool heaters tracked (tool0..tool4).
const MaxTools = 5

// SnapshotSource records which input produced a snapshot.
type SnapshotSource string

const (
	SourceNone     SnapshotSource = ""
	SourceBaseline SnapshotSource = "baseline"
	SourcePush     SnapshotSource = "push"
	SourceOffline  SnapshotSource = "offline"
)

// OfflineStateText is the state text of a synthesized offline snapshot.
const OfflineStateText = "Offline"

// StateFlags mirrors OctoPrint's state.flags object.
type StateFlags struct {
	Operational   bool `json:"operational"`
	Printing      bool `json:"printing"`
	Paused        bool `json:"paused"`
	Pausing       bool `json:"pausing"`
	Cancelling    bool `json:"cancelling"`
	ClosedOrError bool `json:"closedOrError"`
	Ready         bool `json:"ready"`
	Error         bool `json:"error"`
	Finishing     bool `json:"finishing"`
	SDReady       bool `json:"sdReady"`
}

// PrinterState is the textual and flag state of the printer.
type PrinterState struct {
	Text  string     `json:"text"`
	Flags StateFlags `json:"flags"`
	Error string     `json:"error,omitempty"`
}

// TemperatureReading is one heater's actual and target value.
type TemperatureReading struct {
	Actual *float64 `json:"actual,omitempty"`
	Target *float64 `json:"target,omitempty"`
}

// TemperatureSample is one point of the temperature series.
type TemperatureSample struct {
	Time    int64                         `json:"time"` // unix seconds
	Bed     *TemperatureReading           `json:"bed,omitempty"`
	Tools   [MaxTools]*TemperatureReading `json:"tools"`
	Chamber *TemperatureReading           `json:"chamber,omitempty"`
}

// Tool returns the reading for tool i, or nil.
func (s *TemperatureSample) Tool(i int) *TemperatureReading {
	if i < 0 || i >= MaxTools {
		return nil
	}
	return s.Tools[i]
}

// SoCTemperature is a host system-on-chip temperature sample.
type SoCTemperature struct {
	Time int64   `json:"time"`
	Temp float64 `json:"temp"`
}

// JobProgress mirrors OctoPrint's progress object.
type JobProgress struct {
	Completion          *float64 `json:"completion,omitempty"`    // percent
	PrintTime           *int64   `json:"printTime,omitempty"`     // seconds
	PrintTimeLeft       *int64   `json:"printTimeLeft,omitempty"` // seconds
	FilePos             *int64   `json:"filepos,omitempty"`
	PrintTimeLeftOrigin string   `json:"printTimeLeftOrigin,omitempty"`
}

// StateSnapshot is the canonical current printer and job state.
// A new snapshot replaces the previous one wholesale.
type StateSnapshot struct {
	State       PrinterState       `json:"state"`
	Temperature *TemperatureSample `json:"temperature,omitempty"`
	CurrentZ    *float64           `json:"currentZ,omitempty"`
	Progress    JobProgress        `json:"progress"`
	File        *PrintFile         `json:"file,omitempty"`
	Logs        []string           `json:"logs,omitempty"`
	Source      SnapshotSource     `json:"source"`
	ReceivedAt  time.Time          `json:"receivedAt"`
}

// IsEmpty reports whether the snapshot carries no data.
func (s *StateSnapshot) IsEmpty() bool {
	return s.Source == SourceNone && s.State.Text == ""
}

// OfflineSnapshot returns the snapshot used when the server reports the
// printer is not operational.
func OfflineSnapshot(now time.Time) StateSnapshot {
	return StateSnapshot{
		State: PrinterState{
			Text:  OfflineStateText,
			Flags: StateFlags{ClosedOrError: true},
		},
		Source:     SourceOffline,
		ReceivedAt: now,
	}
}
