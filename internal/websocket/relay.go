// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package websocket

import (
	"context"
	"sync"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/parser"
	"github.com/tomtom215/octosync/internal/reconcile"
	statesync "github.com/tomtom215/octosync/internal/sync"
)

// Source is the canonical state the relay forwards. *sync.Manager satisfies it.
type Source interface {
	Snapshot() models.StateSnapshot
	Printer() (models.Printer, bool)
	ConnectionState() statesync.ConnState
	SubscribeState(fn func(models.StateSnapshot)) statesync.Handle
	SubscribeConnection(fn func(statesync.ConnectionEvent)) statesync.Handle
	SubscribeCapabilities(fn func(reconcile.Notification)) statesync.Handle
	SubscribePlugin(plugin string, fn func(models.PluginMessage)) statesync.Handle
	Unsubscribe(h statesync.Handle) bool
}

// DefaultRelayPlugins are the plugins whose push messages are forwarded.
var DefaultRelayPlugins = []string{
	models.PluginCancelObject,
	models.PluginOctoRelay,
	models.PluginPSUControl,
	models.PluginDisplayLayerProgress,
	models.PluginTPLinkSmartPlug,
	models.PluginTuyaSmartPlug,
	models.PluginWemoSwitch,
	models.PluginDomoticz,
	models.PluginTasmota,
}

// StateData is the payload of a "state" message.
type StateData struct {
	PrinterID string               `json:"printer_id"`
	Snapshot  models.StateSnapshot `json:"snapshot"`
}

// ConnectionData is the payload of a "connection" message.
type ConnectionData struct {
	PrinterID string `json:"printer_id"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
	Terminal  bool   `json:"terminal,omitempty"`
}

// CapabilityData is the payload of a "capabilities" message.
type CapabilityData struct {
	PrinterID string      `json:"printer_id"`
	Domain    string      `json:"domain"`
	State     interface{} `json:"state"`
}

// PluginData is the payload of a "plugin" message. Data is decoded for
// plugins with a known message shape and passed through otherwise.
type PluginData struct {
	PrinterID string      `json:"printer_id"`
	Plugin    string      `json:"plugin"`
	Data      interface{} `json:"data"`
}

// Relay subscribes to a Source and rebroadcasts every change through a Hub.
type Relay struct {
	hub     *Hub
	source  Source
	plugins []string

	mu      sync.Mutex
	handles []statesync.Handle
}

// NewRelay creates a relay. With no plugins given, DefaultRelayPlugins are used.
func NewRelay(hub *Hub, source Source, plugins ...string) *Relay {
	if len(plugins) == 0 {
		plugins = DefaultRelayPlugins
	}
	return &Relay{hub: hub, source: source, plugins: plugins}
}

// Start subscribes to the source. Calling Start twice is a no-op.
func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles != nil {
		return
	}

	r.hub.SetWelcome(r.welcome)
	r.handles = append(r.handles,
		r.source.SubscribeState(r.onState),
		r.source.SubscribeConnection(r.onConnection),
		r.source.SubscribeCapabilities(r.onCapabilities),
	)
	for _, plugin := range r.plugins {
		r.handles = append(r.handles, r.source.SubscribePlugin(plugin, r.onPlugin))
	}
	logging.Debug().Int("subscriptions", len(r.handles)).Msg("websocket relay started")
}

// Stop removes every subscription.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handles {
		r.source.Unsubscribe(h)
	}
	r.handles = nil
	r.hub.SetWelcome(nil)
}

// Serve runs the relay until ctx is done. It implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	r.Start()
	<-ctx.Done()
	r.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (r *Relay) String() string {
	return "websocket-relay"
}

func (r *Relay) printerID() string {
	p, _ := r.source.Printer()
	return p.ID
}

// welcome gives a new client the current state and connection status.
func (r *Relay) welcome() []Message {
	id := r.printerID()
	return []Message{
		{Type: MessageTypeConnection, Data: ConnectionData{
			PrinterID: id,
			Event:     "snapshot",
			State:     r.source.ConnectionState().String(),
		}},
		{Type: MessageTypeState, Data: StateData{PrinterID: id, Snapshot: r.source.Snapshot()}},
	}
}

func (r *Relay) onState(snap models.StateSnapshot) {
	r.hub.Broadcast(MessageTypeState, StateData{PrinterID: r.printerID(), Snapshot: snap})
}

func (r *Relay) onConnection(ev statesync.ConnectionEvent) {
	data := ConnectionData{
		PrinterID: ev.PrinterID,
		Event:     ev.Type.String(),
		State:     ev.State.String(),
		Terminal:  ev.Terminal,
	}
	if ev.Err != nil {
		data.Error = ev.Err.Error()
	}
	r.hub.Broadcast(MessageTypeConnection, data)
}

func (r *Relay) onCapabilities(n reconcile.Notification) {
	r.hub.Broadcast(MessageTypeCapabilities, CapabilityData{PrinterID: n.PrinterID, Domain: n.Domain, State: n.State})
}

func (r *Relay) onPlugin(msg models.PluginMessage) {
	data, err := decodePlugin(msg)
	if err != nil {
		logging.Debug().Err(err).Str("plugin", msg.Plugin).Msg("not relaying malformed plugin message")
		return
	}
	r.hub.Broadcast(MessageTypePlugin, PluginData{PrinterID: r.printerID(), Plugin: msg.Plugin, Data: data})
}

func decodePlugin(msg models.PluginMessage) (interface{}, error) {
	switch msg.Plugin {
	case models.PluginCancelObject:
		return parser.ParseCancelObjects(msg.Data)
	case models.PluginOctoRelay:
		return parser.ParseRelays(msg.Data)
	case models.PluginTPLinkSmartPlug, models.PluginTuyaSmartPlug, models.PluginWemoSwitch,
		models.PluginDomoticz, models.PluginTasmota:
		return parser.ParseIPPlugState(msg.Plugin, msg.Data)
	default:
		return msg.Data, nil
	}
}
