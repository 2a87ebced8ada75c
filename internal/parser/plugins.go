// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package parser

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/models"
)

// ========================================
// Plugin message payloads
// ========================================

type wireCancelObject struct {
	ID     *int    `json:"id"`
	Object *string `json:"object"`
	Active bool    `json:"active"`
	Ignore bool    `json:"ignore"`
}

// ParseCancelObjects decodes a Cancel Objects plugin message: {"objects":[...]}.
func ParseCancelObjects(data []byte) ([]models.CancelObject, error) {
	const op = "parse cancelobject message"

	var msg struct {
		Objects *[]wireCancelObject `json:"objects"`
	}
	if err := decodeObject(op, data, &msg); err != nil {
		return nil, err
	}
	if msg.Objects == nil {
		return nil, models.ProtocolErrorf(op, "missing objects")
	}

	out := make([]models.CancelObject, 0, len(*msg.Objects))
	for i, o := range *msg.Objects {
		if o.ID == nil || o.Object == nil {
			return nil, models.ProtocolErrorf(op, "object %d missing id or name", i)
		}
		out = append(out, models.CancelObject{
			ID:     *o.ID,
			Object: *o.Object,
			Active: o.Active,
			Ignore: o.Ignore,
		})
	}
	return out, nil
}

type wireRelay struct {
	Label     *string   `json:"label"`
	LabelText *string   `json:"label_text"`
	Active    *flexBool `json:"active"`
	Status    *flexBool `json:"status"`
	Disabled  flexBool  `json:"disabled"`
}

var relayKey = regexp.MustCompile(`^r\d+$`)

// ParseRelays decodes an OctoRelay status message keyed by relay id ("r1".."r8").
// Both the label/status and label_text/active field spellings are accepted.
func ParseRelays(data []byte) ([]models.Relay, error) {
	const op = "parse octorelay message"

	var raw map[string]json.RawMessage
	if err := decodeObject(op, data, &raw); err != nil {
		return nil, err
	}

	relays := make([]models.Relay, 0, len(raw))
	for _, id := range sortedKeys(raw) {
		if !relayKey.MatchString(id) {
			continue
		}
		var r wireRelay
		if err := decodeObject(op, raw[id], &r); err != nil {
			return nil, err
		}
		relay := models.Relay{ID: id, Disabled: bool(r.Disabled)}
		switch {
		case r.Label != nil:
			relay.Label = *r.Label
		case r.LabelText != nil:
			relay.Label = *r.LabelText
		default:
			relay.Label = id
		}
		switch {
		case r.Status != nil:
			relay.Active = bool(*r.Status)
		case r.Active != nil:
			relay.Active = bool(*r.Active)
		default:
			return nil, models.ProtocolErrorf(op, "relay %s missing status", id)
		}
		relays = append(relays, relay)
	}
	if len(relays) == 0 {
		return nil, models.ProtocolErrorf(op, "no relays in message")
	}
	return relays, nil
}

// ParseIPPlugState decodes a smart plug plugin message such as
// {"currentState":"on","ip":"192.168.1.20","idx":"1"}. Plugins that key plugs
// by label (tuyasmartplug) report the label in place of the IP.
func ParseIPPlugState(plugin string, data []byte) (models.IPPlugState, error) {
	op := "parse " + plugin + " message"

	var msg struct {
		CurrentState *string    `json:"currentState"`
		IP           flexString `json:"ip"`
		Label        flexString `json:"label"`
		Idx          flexString `json:"idx"`
	}
	if err := decodeObject(op, data, &msg); err != nil {
		return models.IPPlugState{}, err
	}
	if msg.CurrentState == nil {
		return models.IPPlugState{}, models.ProtocolErrorf(op, "missing currentState")
	}

	ip := string(msg.IP)
	if ip == "" {
		ip = string(msg.Label)
	}
	if ip == "" {
		return models.IPPlugState{}, models.ProtocolErrorf(op, "missing ip")
	}

	state := models.PlugUnknown
	switch strings.ToLower(*msg.CurrentState) {
	case "on":
		state = models.PlugOn
	case "off":
		state = models.PlugOff
	}
	return models.IPPlugState{Plugin: plugin, IP: ip, Idx: string(msg.Idx), State: state}, nil
}

// ParsePrintFile decodes a file reference from /api/files or a job's "file" object.
func ParsePrintFile(data []byte) (models.PrintFile, error) {
	const op = "parse print file"

	var f struct {
		Name    *string  `json:"name"`
		Display string   `json:"display"`
		Path    string   `json:"path"`
		Origin  string   `json:"origin"`
		Size    *float64 `json:"size"`
		Date    *float64 `json:"date"`
	}
	if err := decodeObject(op, data, &f); err != nil {
		return models.PrintFile{}, err
	}
	if f.Name == nil || *f.Name == "" {
		return models.PrintFile{}, models.ProtocolErrorf(op, "missing name")
	}

	origin := f.Origin
	switch origin {
	case "", "local":
		origin = "local"
	case "sdcard":
	default:
		return models.PrintFile{}, models.ProtocolErrorf(op, "unknown origin %q", origin)
	}

	return models.PrintFile{
		Name:    *f.Name,
		Display: f.Display,
		Path:    f.Path,
		Origin:  origin,
		Size:    int64Ptr(f.Size),
		Date:    int64Ptr(f.Date),
	}, nil
}

// SoCUpdate is a decoded octopod SoC temperature message.
type SoCUpdate struct {
	Samples []models.SoCTemperature
	// Replace is true when Samples is a full history that replaces the buffer.
	Replace bool
}

type wireSoC struct {
	Time *float64 `json:"time"`
	Temp *float64 `json:"temp"`
}

// ParseSoCTemperature decodes an octopod plugin message. Two shapes are
// accepted: {"soc_temp": 48.3, "time": 1700000000} for a single sample and
// {"soc_temps": [{"time":..,"temp":..}, ...]} for the full history.
// Other octopod messages yield an empty update with no error.
func ParseSoCTemperature(data []byte) (SoCUpdate, error) {
	const op = "parse octopod message"

	var msg struct {
		SoCTemp  *float64   `json:"soc_temp"`
		Time     *float64   `json:"time"`
		SoCTemps *[]wireSoC `json:"soc_temps"`
	}
	if err := decodeObject(op, data, &msg); err != nil {
		return SoCUpdate{}, err
	}

	switch {
	case msg.SoCTemps != nil:
		samples := make([]models.SoCTemperature, 0, len(*msg.SoCTemps))
		for i, s := range *msg.SoCTemps {
			if s.Time == nil || s.Temp == nil {
				return SoCUpdate{}, models.ProtocolErrorf(op, "sample %d missing time or temp", i)
			}
			samples = append(samples, models.SoCTemperature{Time: int64(*s.Time), Temp: *s.Temp})
		}
		return SoCUpdate{Samples: samples, Replace: true}, nil
	case msg.SoCTemp != nil:
		sample := models.SoCTemperature{Temp: *msg.SoCTemp}
		if msg.Time != nil {
			sample.Time = int64(*msg.Time)
		}
		return SoCUpdate{Samples: []models.SoCTemperature{sample}}, nil
	default:
		return SoCUpdate{}, nil
	}
}
