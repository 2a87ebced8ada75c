// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package parser

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/models"
)

// ========================================
// REST payloads
// ========================================

type wirePrinter struct {
	State       *wireState                 `json:"state"`
	Temperature map[string]json.RawMessage `json:"temperature"`
	SD          *struct {
		Ready bool `json:"ready"`
	} `json:"sd"`
}

// ParsePrinterState decodes GET /api/printer into a baseline snapshot.
// The temperature history embedded in the payload is returned separately.
func ParsePrinterState(body []byte, now time.Time) (models.StateSnapshot, []models.TemperatureSample, error) {
	const op = "parse printer state"

	var p wirePrinter
	if err := decodeObject(op, body, &p); err != nil {
		return models.StateSnapshot{}, nil, err
	}
	if p.State == nil || p.State.Text == nil {
		return models.StateSnapshot{}, nil, models.ProtocolErrorf(op, "missing state.text")
	}

	snap := models.StateSnapshot{
		State:      mapState(p.State),
		Source:     models.SourceBaseline,
		ReceivedAt: now,
	}
	if p.SD != nil {
		snap.State.Flags.SDReady = p.SD.Ready
	}

	var history []models.TemperatureSample
	if len(p.Temperature) > 0 {
		current := make(map[string]json.RawMessage, len(p.Temperature))
		for k, v := range p.Temperature {
			if k == "history" {
				var entries []map[string]json.RawMessage
				if err := json.Unmarshal(v, &entries); err != nil {
					return models.StateSnapshot{}, nil, models.NewError(models.KindProtocol, op, 0, err)
				}
				h, err := parseTemps(op, entries)
				if err != nil {
					return models.StateSnapshot{}, nil, err
				}
				history = h
				continue
			}
			current[k] = v
		}
		sample, err := parseTempEntry(op, current)
		if err != nil {
			return models.StateSnapshot{}, nil, err
		}
		if sample.Time == 0 {
			sample.Time = now.Unix()
		}
		snap.Temperature = &sample
	}

	return snap, history, nil
}

// ParseSettings decodes GET /api/settings.
func ParseSettings(body []byte) (models.Settings, error) {
	var s models.Settings
	if err := decodeObject("parse settings", body, &s); err != nil {
		return models.Settings{}, err
	}
	if s.Plugins == nil {
		s.Plugins = map[string]json.RawMessage{}
	}
	return s, nil
}

// ParsePrinterProfiles decodes GET /api/printerprofiles.
func ParsePrinterProfiles(body []byte) (models.PrinterProfiles, error) {
	const op = "parse printer profiles"

	var p models.PrinterProfiles
	if err := decodeObject(op, body, &p); err != nil {
		return models.PrinterProfiles{}, err
	}
	if p.Profiles == nil {
		return models.PrinterProfiles{}, models.ProtocolErrorf(op, "missing profiles")
	}
	for id, prof := range p.Profiles {
		if prof.ID == "" {
			prof.ID = id
			p.Profiles[id] = prof
		}
	}
	return p, nil
}

// ParseConnection decodes GET /api/connection and returns its "current" object.
func ParseConnection(body []byte) (models.ConnectionCurrent, error) {
	var c struct {
		Current *models.ConnectionCurrent `json:"current"`
	}
	if err := decodeObject("parse connection", body, &c); err != nil {
		return models.ConnectionCurrent{}, err
	}
	if c.Current == nil {
		return models.ConnectionCurrent{}, models.ProtocolErrorf("parse connection", "missing current")
	}
	return *c.Current, nil
}

// ParseVersion decodes GET /api/version.
func ParseVersion(body []byte) (models.VersionInfo, error) {
	var v models.VersionInfo
	if err := decodeObject("parse version", body, &v); err != nil {
		return models.VersionInfo{}, err
	}
	if v.Server == "" {
		return models.VersionInfo{}, models.ProtocolErrorf("parse version", "missing server version")
	}
	return v, nil
}

// ParseSession decodes the POST /api/login response.
func ParseSession(body []byte) (models.Session, error) {
	const op = "parse login"

	var s models.Session
	if err := decodeObject(op, body, &s); err != nil {
		return models.Session{}, err
	}
	if s.Name == "" || s.Session == "" {
		return models.Session{}, models.ProtocolErrorf(op, "missing name or session")
	}
	return s, nil
}
