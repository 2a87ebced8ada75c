// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
manager.go - State Synchronizer

Manager owns the canonical printer state for one OctoPrint server. It merges
the REST baseline (GET /api/printer) with push frames from the Connection,
keeps the bounded histories and terminal, runs capability reconciliation and
fans changes out to subscribers.

Lifecycle Methods:
  - ConnectToServer(): reset state, open the channel, fetch the baseline
  - Disconnect(): caller-initiated close, last snapshot is kept

Thread Safety:
  - All mutations run on the executor
  - REST calls run on their own goroutines and post continuations back,
    tagged with the connect generation; stale continuations are dropped
  - mu protects values read by other goroutines (snapshot, printer, version)
  - Baseline and push are unordered: last write wins
*/

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/octosync/internal/history"
	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/metrics"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/octoprint"
	"github.com/tomtom215/octosync/internal/parser"
	"github.com/tomtom215/octosync/internal/reconcile"
	"github.com/tomtom215/octosync/internal/store"
)

var (
	// ErrNotConnected is returned when an operation needs a target printer.
	ErrNotConnected = errors.New("no printer connected")

	// ErrInvalidPrinter is returned by ConnectToServer for an incomplete printer record.
	ErrInvalidPrinter = errors.New("printer requires id and base url")

	// ErrUnknownFilter is returned when a terminal filter name is not available.
	ErrUnknownFilter = errors.New("unknown terminal filter")

	// ErrEmptyCommand is returned by SendCommand for blank input.
	ErrEmptyCommand = errors.New("command is empty")
)

// Transport executes REST requests against OctoPrint.
type Transport interface {
	Do(ctx context.Context, req octoprint.Request) octoprint.Response
}

// TransportFactory builds the REST transport for a printer.
type TransportFactory func(printer models.Printer) Transport

// ConnectionEventType distinguishes connection notifications.
type ConnectionEventType int

const (
	EventAboutToConnect ConnectionEventType = iota
	EventStateChanged
	EventConnectionFailed
)

func (t ConnectionEventType) String() string {
	switch t {
	case EventAboutToConnect:
		return "about_to_connect"
	case EventStateChanged:
		return "state_changed"
	case EventConnectionFailed:
		return "connection_failed"
	default:
		return "unknown"
	}
}

// ConnectionEvent is delivered to connection subscribers.
type ConnectionEvent struct {
	Type      ConnectionEventType
	PrinterID string
	State     ConnState
	Err       error
	// Terminal is set on the single failure after which no retry follows.
	Terminal bool
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Connection     ConnectionConfig
	RequestTimeout time.Duration
}

// Manager is the state synchronizer.
type Manager struct {
	cfg        ManagerConfig
	exec       Executor
	clock      Clock
	printers   *store.PrinterStore
	reconciler *reconcile.Reconciler
	transports TransportFactory
	conn       *Connection

	// executor-owned
	generation uint64

	mu            sync.RWMutex
	printer       *models.Printer
	api           *octoprint.API
	snapshot      models.StateSnapshot
	version       *models.VersionInfo
	available     []models.TerminalFilter
	activeFilters []string

	temps    *history.RingBuffer[models.TemperatureSample]
	soc      *history.RingBuffer[models.SoCTemperature]
	terminal *history.Terminal
	commands *history.CommandHistory

	stateSubs      *registry[models.StateSnapshot]
	connectionSubs *registry[ConnectionEvent]
	capabilitySubs *registry[reconcile.Notification]
	pluginMu       sync.RWMutex
	pluginSubs     map[string]*registry[models.PluginMessage]
}

// NewManager creates a manager. Nothing is connected until ConnectToServer.
func NewManager(cfg ManagerConfig, exec Executor, clock Clock, printers *store.PrinterStore,
	reconciler *reconcile.Reconciler, transports TransportFactory, channels ChannelFactory) *Manager {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if reconciler == nil {
		reconciler = reconcile.NewDefault()
	}

	m := &Manager{
		cfg:            cfg,
		exec:           exec,
		clock:          clock,
		printers:       printers,
		reconciler:     reconciler,
		transports:     transports,
		available:      mergeFilters(nil),
		temps:          history.NewRingBuffer[models.TemperatureSample](history.TemperatureCapacity),
		soc:            history.NewRingBuffer[models.SoCTemperature](history.SoCCapacity),
		terminal:       history.NewTerminal(history.LogCapacity),
		commands:       history.NewCommandHistory(history.CommandCapacity),
		stateSubs:      newRegistry[models.StateSnapshot](),
		connectionSubs: newRegistry[ConnectionEvent](),
		capabilitySubs: newRegistry[reconcile.Notification](),
		pluginSubs:     make(map[string]*registry[models.PluginMessage]),
	}

	m.conn = NewConnection(exec, clock, cfg.Connection, channels, m.login, ConnectionHandler{
		OnState:  m.handleConnectionState,
		OnText:   m.handleFrame,
		OnFailed: m.handleConnectionFailed,
	})
	return m
}

// ========================================
// Lifecycle
// ========================================

// ConnectToServer resets state and connects to printer. When already
// connected or connecting to the same target only the baseline is refetched.
func (m *Manager) ConnectToServer(printer models.Printer) error {
	if printer.ID == "" || printer.BaseURL == "" {
		return ErrInvalidPrinter
	}
	m.exec.Post(func() { m.connect(printer) })
	return nil
}

func (m *Manager) connect(printer models.Printer) {
	m.mu.Lock()
	m.snapshot = models.StateSnapshot{}
	current := m.printer
	m.mu.Unlock()
	m.temps.Clear()
	m.soc.Clear()
	m.terminal.Reset()

	m.connectionSubs.notify(ConnectionEvent{Type: EventAboutToConnect, PrinterID: printer.ID, State: m.conn.State()})

	target := Target{BaseURL: printer.BaseURL, APIKey: printer.APIKey}
	state := m.conn.State()
	if current != nil && current.ID == printer.ID && m.conn.Target() == target &&
		(state == StateConnecting || state == StateConnected) {
		logging.Debug().Str("printer_id", printer.ID).Msg("Already connected to printer, refreshing baseline")
		m.fetchBaseline(m.generation)
		return
	}

	m.generation++
	api := octoprint.NewAPI(m.transports(printer))

	m.mu.Lock()
	p := printer
	m.printer = &p
	m.api = api
	m.version = nil
	m.mu.Unlock()

	ctx, cancel := m.requestContext(printer.ID)
	cmds, err := m.printers.CommandHistory(ctx, printer.ID)
	cancel()
	if err != nil {
		logging.Warn().Err(err).Str("printer_id", printer.ID).Msg("Failed to load command history")
	}
	m.commands.Replace(cmds)

	logging.Info().Str("printer_id", printer.ID).Str("url", logging.SanitizeURL(printer.BaseURL)).Msg("Connecting to OctoPrint")
	m.conn.Connect(target)
	m.fetchBaseline(m.generation)
}

// Disconnect closes the push channel. The last snapshot stays readable.
func (m *Manager) Disconnect() {
	m.exec.Post(m.conn.Close)
}

// ========================================
// REST continuations
// ========================================

func (m *Manager) requestContext(printerID string) (context.Context, context.CancelFunc) {
	ctx := logging.ContextWithPrinterID(context.Background(), printerID)
	return context.WithTimeout(ctx, m.cfg.RequestTimeout)
}

func (m *Manager) current() (*octoprint.API, models.Printer) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.printer == nil {
		return m.api, models.Printer{}
	}
	return m.api, *m.printer
}

func (m *Manager) login(ctx context.Context, _ Target) (models.Session, error) {
	api, _ := m.current()
	if api == nil {
		return models.Session{}, ErrNotConnected
	}
	return api.Login(ctx)
}

// stale reports and counts a continuation from a superseded connect.
func (m *Manager) stale(gen uint64, request string) bool {
	if gen == m.generation {
		return false
	}
	metrics.StaleResponses.WithLabelValues(request).Inc()
	logging.Debug().Str("request", request).Msg("Discarding stale response")
	return true
}

func (m *Manager) fetchBaseline(gen uint64) {
	api, printer := m.current()
	if api == nil {
		return
	}
	go func() {
		ctx, cancel := m.requestContext(printer.ID)
		defer cancel()

		snap, temps, err := api.PrinterState(ctx, m.clock.Now())
		m.exec.Post(func() {
			if m.stale(gen, "printer") {
				return
			}
			m.applyBaseline(gen, snap, temps, err)
		})
	}()
}

func (m *Manager) applyBaseline(gen uint64, snap models.StateSnapshot, temps []models.TemperatureSample, err error) {
	switch {
	case err == nil:
		metrics.BaselineFetches.WithLabelValues("ok").Inc()
		m.temps.ReplaceAll(temps)
		m.publishSnapshot(snap)
	case errors.Is(err, models.ErrNotOperational):
		metrics.BaselineFetches.WithLabelValues("offline").Inc()
		logging.Info().Msg("Printer not operational, using offline snapshot")
		m.publishSnapshot(models.OfflineSnapshot(m.clock.Now()))
	default:
		metrics.BaselineFetches.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Msg("Baseline fetch failed")
		return
	}

	m.reconcileCapabilities(gen, "baseline")
	m.fetchVersion(gen)
}

func (m *Manager) fetchVersion(gen uint64) {
	api, printer := m.current()
	go func() {
		ctx, cancel := m.requestContext(printer.ID)
		defer cancel()

		info, err := api.Version(ctx)
		m.exec.Post(func() {
			if m.stale(gen, "version") {
				return
			}
			if err != nil {
				logging.Warn().Err(err).Msg("Failed to fetch OctoPrint version")
				return
			}
			m.setVersion(info)
		})
	}()
}

// setVersion records info and persists a changed server version on the
// stored printer record.
func (m *Manager) setVersion(info models.VersionInfo) {
	m.mu.Lock()
	m.version = &info
	var current models.Printer
	changed := m.printer != nil && info.Server != "" && m.printer.OctoPrintVersion != info.Server
	if changed {
		m.printer.OctoPrintVersion = info.Server
		current = *m.printer
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	ctx, cancel := m.requestContext(current.ID)
	defer cancel()

	p, err := m.printers.Get(ctx, current.ID)
	if errors.Is(err, store.ErrNotFound) {
		p = current
	} else if err != nil {
		logging.Warn().Err(err).Str("printer_id", current.ID).Msg("Failed to load printer for version update")
		return
	}
	p.OctoPrintVersion = info.Server
	if err := m.printers.Save(ctx, p); err != nil {
		logging.Warn().Err(err).Str("printer_id", p.ID).Msg("Failed to save printer version")
		return
	}
	logging.Info().Str("printer_id", p.ID).Str("version", info.Server).Msg("OctoPrint version discovered")
}

// ========================================
// Capability reconciliation
// ========================================

func (m *Manager) reconcileCapabilities(gen uint64, reason string) {
	api, printer := m.current()
	if api == nil {
		return
	}
	go func() {
		ctx, cancel := m.requestContext(printer.ID)
		defer cancel()

		settings, err := api.Settings(ctx)
		var profiles models.PrinterProfiles
		if err == nil {
			profiles, err = api.PrinterProfiles(ctx)
		}
		m.exec.Post(func() {
			if m.stale(gen, "settings") {
				return
			}
			if err != nil {
				logging.Warn().Err(err).Str("reason", reason).Msg("Failed to fetch settings for reconciliation")
				return
			}
			m.applyReconcile(settings, profiles)
		})
	}()
}

// applyReconcile re-resolves the printer by ID so edits made since connect are
// not overwritten, then diffs and persists.
func (m *Manager) applyReconcile(settings models.Settings, profiles models.PrinterProfiles) {
	start := m.clock.Now()
	_, current := m.current()
	ctx, cancel := m.requestContext(current.ID)
	defer cancel()

	printer, err := m.printers.Get(ctx, current.ID)
	if errors.Is(err, store.ErrNotFound) {
		printer = current
	} else if err != nil {
		logging.Error().Err(err).Str("printer_id", current.ID).Msg("Failed to load printer for reconciliation")
		return
	}
	caps, err := m.printers.Capabilities(ctx, printer.ID)
	if err != nil {
		logging.Error().Err(err).Str("printer_id", printer.ID).Msg("Failed to load capabilities for reconciliation")
		return
	}

	state, cs := m.reconciler.Reconcile(settings, profiles, reconcile.State{Printer: printer, Capabilities: caps})
	if err := reconcile.Persist(ctx, m.printers.Repository(), printer.ID, cs); err != nil {
		logging.Error().Err(err).Str("printer_id", printer.ID).Msg("Failed to persist capabilities")
		return
	}
	if cs.PrinterDirty {
		if err := m.printers.Save(ctx, state.Printer); err != nil {
			logging.Error().Err(err).Str("printer_id", printer.ID).Msg("Failed to save reconciled printer")
			return
		}
	}

	m.mu.Lock()
	p := state.Printer
	m.printer = &p
	m.available = mergeFilters(state.Capabilities.TerminalFilters)
	active := m.activeFilters
	m.mu.Unlock()

	if len(active) > 0 {
		if err := m.applyFilters(active); err != nil {
			logging.Warn().Err(err).Msg("Active terminal filters changed on the server")
		}
	}

	metrics.RecordReconcile(m.clock.Now().Sub(start), cs.Domains())
	for _, n := range cs.Notifications {
		m.capabilitySubs.notify(n)
	}
}

// mergeFilters returns the server filters followed by the built-in defaults.
func mergeFilters(server []models.TerminalFilter) []models.TerminalFilter {
	out := make([]models.TerminalFilter, 0, len(server)+len(history.DefaultFilters))
	out = append(out, server...)
	return append(out, history.DefaultFilters...)
}

// ========================================
// Push frames
// ========================================

func (m *Manager) handleConnectionState(s ConnState) {
	if s == StateConnected {
		m.terminal.Reset()
	}
	_, printer := m.current()
	m.connectionSubs.notify(ConnectionEvent{Type: EventStateChanged, PrinterID: printer.ID, State: s})
}

func (m *Manager) handleConnectionFailed(err error, terminal bool) {
	_, printer := m.current()
	m.connectionSubs.notify(ConnectionEvent{
		Type:      EventConnectionFailed,
		PrinterID: printer.ID,
		State:     m.conn.State(),
		Err:       err,
		Terminal:  terminal,
	})
}

func (m *Manager) handleFrame(data []byte) {
	frame, err := parser.ParseFrame(data, m.clock.Now())
	if err != nil {
		metrics.FramesDropped.WithLabelValues("protocol").Inc()
		logging.Debug().Err(err).Msg("Dropping malformed push frame")
		return
	}
	metrics.FramesReceived.WithLabelValues(frame.Kind.String()).Inc()

	switch frame.Kind {
	case parser.FrameCurrent:
		m.temps.AppendAll(frame.Temperatures)
		m.terminal.Append(frame.Logs)
		m.publishSnapshot(*frame.Snapshot)
	case parser.FrameHistory:
		m.temps.ReplaceAll(frame.Temperatures)
		m.terminal.Reset()
		m.terminal.Append(frame.Logs)
		m.publishSnapshot(*frame.Snapshot)
	case parser.FramePlugin:
		m.handlePlugin(*frame.Plugin)
	case parser.FrameEvent:
		switch frame.Event.Type {
		case models.EventSettingsUpdated, models.EventPrinterProfileModified:
			logging.Debug().Str("event", frame.Event.Type).Msg("Server settings changed, reconciling")
			m.reconcileCapabilities(m.generation, frame.Event.Type)
		}
	case parser.FrameConnected:
		m.setVersion(models.VersionInfo{Server: frame.Connected.Version, Text: frame.Connected.DisplayVersion})
	case parser.FrameReauthRequired:
		logging.Info().Str("reason", frame.ReauthReason).Msg("Server requested reauthentication")
		m.conn.Reauthenticate()
	}
}

// handlePlugin records octopod SoC temperatures before fanning out.
func (m *Manager) handlePlugin(msg models.PluginMessage) {
	if msg.Plugin == models.PluginOctoPod {
		upd, err := parser.ParseSoCTemperature(msg.Data)
		switch {
		case err != nil:
			logging.Debug().Err(err).Msg("Ignoring malformed octopod message")
		case upd.Replace:
			m.soc.ReplaceAll(upd.Samples)
		default:
			now := m.clock.Now().Unix()
			for _, s := range upd.Samples {
				if s.Time == 0 {
					s.Time = now
				}
				m.soc.Append(s)
			}
		}
	}

	m.pluginMu.RLock()
	reg := m.pluginSubs[msg.Plugin]
	m.pluginMu.RUnlock()
	if reg != nil {
		reg.notify(msg)
	}
}

func (m *Manager) publishSnapshot(snap models.StateSnapshot) {
	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()
	m.stateSubs.notify(snap)
}

// ========================================
// Commands and terminal filters
// ========================================

// await runs fn on the executor and waits for its result.
func (m *Manager) await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	m.exec.Post(func() { done <- fn() })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendCommand records gcode in the command history and sends it to the
// printer. Multi-line input is sent as one command per line.
func (m *Manager) SendCommand(ctx context.Context, gcode string) error {
	var lines []string
	for _, line := range strings.Split(gcode, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ErrEmptyCommand
	}

	var api *octoprint.API
	err := m.await(ctx, func() error {
		var printer models.Printer
		api, printer = m.current()
		if api == nil {
			return ErrNotConnected
		}
		m.commands.Add(strings.TrimSpace(gcode))
		if err := m.printers.SaveCommandHistory(ctx, printer.ID, m.commands.All()); err != nil {
			logging.Warn().Err(err).Str("printer_id", printer.ID).Msg("Failed to save command history")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := api.SendCommands(ctx, lines...); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// SetTerminalFilters activates the named filters. An empty list disables
// filtering.
func (m *Manager) SetTerminalFilters(ctx context.Context, names []string) error {
	return m.await(ctx, func() error {
		if err := m.applyFilters(names); err != nil {
			return err
		}
		m.mu.Lock()
		m.activeFilters = append([]string(nil), names...)
		m.mu.Unlock()
		return nil
	})
}

func (m *Manager) applyFilters(names []string) error {
	m.mu.RLock()
	available := m.available
	m.mu.RUnlock()

	selected, missing := history.SelectFilters(available, names)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, strings.Join(missing, ", "))
	}
	fs, err := history.NewFilterSet(selected)
	if err != nil {
		return err
	}
	m.terminal.SetFilters(fs)
	return nil
}

// ========================================
// Read access
// ========================================

// Snapshot returns the current state snapshot.
func (m *Manager) Snapshot() models.StateSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Printer returns the connected printer record.
func (m *Manager) Printer() (models.Printer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.printer == nil {
		return models.Printer{}, false
	}
	return *m.printer, true
}

// Version returns the discovered server version.
func (m *Manager) Version() (models.VersionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.version == nil {
		return models.VersionInfo{}, false
	}
	return *m.version, true
}

// IsVersionAtLeast compares the discovered server version with major.minor.patch.
func (m *Manager) IsVersionAtLeast(major, minor, patch int) models.VersionComparison {
	v, ok := m.Version()
	if !ok {
		return models.VersionUnknown
	}
	return models.CompareVersion(v.Server, major, minor, patch)
}

// ConnectionState returns the supervisor state.
func (m *Manager) ConnectionState() ConnState {
	return m.conn.State()
}

// Temperatures returns the temperature history, oldest first.
func (m *Manager) Temperatures() []models.TemperatureSample {
	return m.temps.All()
}

// SoCTemperatures returns the host SoC temperature history, oldest first.
func (m *Manager) SoCTemperatures() []models.SoCTemperature {
	return m.soc.All()
}

// Terminal returns the terminal buffers.
func (m *Manager) Terminal() *history.Terminal {
	return m.terminal
}

// Commands returns the command history, most recent first.
func (m *Manager) Commands() []string {
	return m.commands.All()
}

// AvailableFilters returns the filters SetTerminalFilters accepts.
func (m *Manager) AvailableFilters() []models.TerminalFilter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.TerminalFilter(nil), m.available...)
}

// ActiveFilters returns the names of the active terminal filters.
func (m *Manager) ActiveFilters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.activeFilters...)
}

// ========================================
// Subscriptions
// ========================================

// SubscribeState registers fn for every new snapshot. Callbacks run on the
// executor and must not block.
func (m *Manager) SubscribeState(fn func(models.StateSnapshot)) Handle {
	h := newHandle()
	m.stateSubs.add(h, fn)
	return h
}

// SubscribeConnection registers fn for connection events.
func (m *Manager) SubscribeConnection(fn func(ConnectionEvent)) Handle {
	h := newHandle()
	m.connectionSubs.add(h, fn)
	return h
}

// SubscribeCapabilities registers fn for reconciliation notifications.
func (m *Manager) SubscribeCapabilities(fn func(reconcile.Notification)) Handle {
	h := newHandle()
	m.capabilitySubs.add(h, fn)
	return h
}

// SubscribePlugin registers fn for push messages from plugin.
func (m *Manager) SubscribePlugin(plugin string, fn func(models.PluginMessage)) Handle {
	h := newHandle()
	m.pluginMu.Lock()
	defer m.pluginMu.Unlock()
	reg, ok := m.pluginSubs[plugin]
	if !ok {
		reg = newRegistry[models.PluginMessage]()
		m.pluginSubs[plugin] = reg
	}
	reg.add(h, fn)
	return h
}

// Unsubscribe removes the subscription h from whichever registry holds it.
func (m *Manager) Unsubscribe(h Handle) bool {
	if m.stateSubs.remove(h) || m.connectionSubs.remove(h) || m.capabilitySubs.remove(h) {
		return true
	}
	m.pluginMu.Lock()
	defer m.pluginMu.Unlock()
	for plugin, reg := range m.pluginSubs {
		if reg.remove(h) {
			if reg.len() == 0 {
				delete(m.pluginSubs, plugin)
			}
			return true
		}
	}
	return false
}
