// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package parser

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/models"
)

// FrameKind identifies the top-level type of a push frame.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameCurrent
	FrameHistory
	FramePlugin
	FrameEvent
	FrameConnected
	FrameReauthRequired
)

func (k FrameKind) String() string {
	switch k {
	case FrameCurrent:
		return "current"
	case FrameHistory:
		return "history"
	case FramePlugin:
		return "plugin"
	case FrameEvent:
		return "event"
	case FrameConnected:
		return "connected"
	case FrameReauthRequired:
		return "reauth"
	default:
		return "unknown"
	}
}

// Frame is a decoded push message. Only the fields for Kind are set.
type Frame struct {
	Kind FrameKind

	// current and history
	Snapshot     *models.StateSnapshot
	Temperatures []models.TemperatureSample
	Logs         []string

	Plugin       *models.PluginMessage
	Event        *models.Event
	Connected    *models.ConnectedInfo
	ReauthReason string
}

// wireFrame is the envelope of a push message. OctoPrint sends one key per message.
type wireFrame struct {
	Current        json.RawMessage `json:"current"`
	History        json.RawMessage `json:"history"`
	Plugin         json.RawMessage `json:"plugin"`
	Data           json.RawMessage `json:"data"`
	Event          json.RawMessage `json:"event"`
	Connected      json.RawMessage `json:"connected"`
	ReauthRequired json.RawMessage `json:"reauthRequired"`
}

type wireState struct {
	Text  *string        `json:"text"`
	Flags wireStateFlags `json:"flags"`
	Error string         `json:"error"`
}

type wireStateFlags struct {
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

type wireProgress struct {
	Completion          *float64 `json:"completion"`
	PrintTime           *float64 `json:"printTime"`
	PrintTimeLeft       *float64 `json:"printTimeLeft"`
	FilePos             *float64 `json:"filepos"`
	PrintTimeLeftOrigin *string  `json:"printTimeLeftOrigin"`
}

type wireJob struct {
	File json.RawMessage `json:"file"`
}

type wireCurrent struct {
	State    *wireState                   `json:"state"`
	Job      *wireJob                     `json:"job"`
	Progress *wireProgress                `json:"progress"`
	CurrentZ *float64                     `json:"currentZ"`
	Temps    []map[string]json.RawMessage `json:"temps"`
	Logs     []string                     `json:"logs"`
}

// ParseFrame decodes one push message. Unrecognized message types return
// FrameUnknown without error.
func ParseFrame(raw []byte, now time.Time) (Frame, error) {
	var env wireFrame
	if err := decodeObject("parse frame", raw, &env); err != nil {
		return Frame{}, err
	}

	switch {
	case !isNull(env.Current):
		return parseStateFrame(FrameCurrent, env.Current, now)
	case !isNull(env.History):
		return parseStateFrame(FrameHistory, env.History, now)
	case !isNull(env.Plugin):
		return parsePluginFrame(env.Plugin, env.Data)
	case !isNull(env.Event):
		return parseEventFrame(env.Event)
	case !isNull(env.Connected):
		return parseConnectedFrame(env.Connected)
	case env.ReauthRequired != nil:
		var r struct {
			Reason string `json:"reason"`
		}
		if !isNull(env.ReauthRequired) {
			if err := decodeObject("parse reauthRequired frame", env.ReauthRequired, &r); err != nil {
				return Frame{}, err
			}
		}
		return Frame{Kind: FrameReauthRequired, ReauthReason: r.Reason}, nil
	default:
		return Frame{Kind: FrameUnknown}, nil
	}
}

func parseStateFrame(kind FrameKind, raw json.RawMessage, now time.Time) (Frame, error) {
	op := "parse " + kind.String() + " frame"

	var cur wireCurrent
	if err := decodeObject(op, raw, &cur); err != nil {
		return Frame{}, err
	}
	if cur.State == nil || cur.State.Text == nil {
		return Frame{}, models.ProtocolErrorf(op, "missing state.text")
	}

	temps, err := parseTemps(op, cur.Temps)
	if err != nil {
		return Frame{}, err
	}

	snap := &models.StateSnapshot{
		State:      mapState(cur.State),
		CurrentZ:   cur.CurrentZ,
		Logs:       cur.Logs,
		Source:     models.SourcePush,
		ReceivedAt: now,
	}
	if cur.Progress != nil {
		snap.Progress = mapProgress(cur.Progress)
	}
	if cur.Job != nil && !isNull(cur.Job.File) {
		// A job without a file name is OctoPrint's "no job selected".
		if f, err := ParsePrintFile(cur.Job.File); err == nil {
			snap.File = &f
		}
	}
	if len(temps) > 0 {
		last := temps[len(temps)-1]
		snap.Temperature = &last
	}

	return Frame{Kind: kind, Snapshot: snap, Temperatures: temps, Logs: cur.Logs}, nil
}

func mapState(s *wireState) models.PrinterState {
	f := s.Flags
	return models.PrinterState{
		Text:  *s.Text,
		Error: s.Error,
		Flags: models.StateFlags{
			Operational:   f.Operational,
			Printing:      f.Printing,
			Paused:        f.Paused,
			Pausing:       f.Pausing,
			Cancelling:    f.Cancelling,
			ClosedOrError: f.ClosedOrError,
			Ready:         f.Ready,
			Error:         f.Error,
			Finishing:     f.Finishing,
			SDReady:       f.SDReady,
		},
	}
}

func mapProgress(p *wireProgress) models.JobProgress {
	out := models.JobProgress{
		Completion:    p.Completion,
		PrintTime:     int64Ptr(p.PrintTime),
		PrintTimeLeft: int64Ptr(p.PrintTimeLeft),
		FilePos:       int64Ptr(p.FilePos),
	}
	if p.PrintTimeLeftOrigin != nil {
		out.PrintTimeLeftOrigin = *p.PrintTimeLeftOrigin
	}
	return out
}

// parseTemps maps entries like {"time":..., "bed":{...}, "tool0":{...}} to samples.
func parseTemps(op string, entries []map[string]json.RawMessage) ([]models.TemperatureSample, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]models.TemperatureSample, 0, len(entries))
	for _, entry := range entries {
		sample, err := parseTempEntry(op, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, nil
}

func parseTempEntry(op string, entry map[string]json.RawMessage) (models.TemperatureSample, error) {
	var sample models.TemperatureSample
	for key, raw := range entry {
		if isNull(raw) {
			continue
		}
		switch {
		case key == "time":
			var t float64
			if err := json.Unmarshal(raw, &t); err != nil {
				return sample, models.NewError(models.KindProtocol, op, 0, err)
			}
			sample.Time = int64(t)
		case key == "bed":
			r, err := parseReading(op, raw)
			if err != nil {
				return sample, err
			}
			sample.Bed = r
		case key == "chamber":
			r, err := parseReading(op, raw)
			if err != nil {
				return sample, err
			}
			sample.Chamber = r
		case strings.HasPrefix(key, "tool"):
			idx, err := strconv.Atoi(strings.TrimPrefix(key, "tool"))
			if err != nil || idx < 0 || idx >= models.MaxTools {
				continue
			}
			r, err := parseReading(op, raw)
			if err != nil {
				return sample, err
			}
			sample.Tools[idx] = r
		}
	}
	return sample, nil
}

func parseReading(op string, raw json.RawMessage) (*models.TemperatureReading, error) {
	var r struct {
		Actual *float64 `json:"actual"`
		Target *float64 `json:"target"`
	}
	if err := decodeObject(op, raw, &r); err != nil {
		return nil, err
	}
	return &models.TemperatureReading{Actual: r.Actual, Target: r.Target}, nil
}

// parsePluginFrame accepts {"plugin":{"plugin":id,"data":{}}} and the flat
// {"plugin":id,"data":{}} form.
func parsePluginFrame(raw, flatData json.RawMessage) (Frame, error) {
	const op = "parse plugin frame"

	msg := models.PluginMessage{}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		if err := json.Unmarshal(raw, &msg.Plugin); err != nil {
			return Frame{}, models.NewError(models.KindProtocol, op, 0, err)
		}
		msg.Data = flatData
	} else if err := decodeObject(op, raw, &msg); err != nil {
		return Frame{}, err
	}

	if msg.Plugin == "" {
		return Frame{}, models.ProtocolErrorf(op, "missing plugin identifier")
	}
	return Frame{Kind: FramePlugin, Plugin: &msg}, nil
}

func parseEventFrame(raw json.RawMessage) (Frame, error) {
	const op = "parse event frame"

	var ev models.Event
	if err := decodeObject(op, raw, &ev); err != nil {
		return Frame{}, err
	}
	if ev.Type == "" {
		return Frame{}, models.ProtocolErrorf(op, "missing event type")
	}
	return Frame{Kind: FrameEvent, Event: &ev}, nil
}

func parseConnectedFrame(raw json.RawMessage) (Frame, error) {
	var info models.ConnectedInfo
	if err := decodeObject("parse connected frame", raw, &info); err != nil {
		return Frame{}, err
	}
	return Frame{Kind: FrameConnected, Connected: &info}, nil
}

// sortedKeys returns map keys in natural order ("r2" before "r10").
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		na, ea := strconv.Atoi(strings.TrimLeft(a, "abcdefghijklmnopqrstuvwxyz_"))
		nb, eb := strconv.Atoi(strings.TrimLeft(b, "abcdefghijklmnopqrstuvwxyz_"))
		if ea == nil && eb == nil && na != nb {
			return na < nb
		}
		return a < b
	})
	return keys
}
