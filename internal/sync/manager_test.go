// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package sync

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/octosync/internal/config"
	"github.com/tomtom215/octosync/internal/metrics"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/octoprint"
	"github.com/tomtom215/octosync/internal/reconcile"
	"github.com/tomtom215/octosync/internal/store"
)

const testSecret = "test-secret-that-is-at-least-32-characters-long"

const (
	operationalJSON = `{"state":{"text":"Operational","flags":{"operational":true,"ready":true}},
		"temperature":{"bed":{"actual":21.5,"target":0},"tool0":{"actual":22.1,"target":0},
		"history":[{"time":1700000000,"bed":{"actual":21.4,"target":0}},{"time":1700000001,"bed":{"actual":21.5,"target":0}}]}}`

	printingFrame = `{"current":{"state":{"text":"Printing","flags":{"operational":true,"printing":true}},
		"progress":{"completion":12.5,"printTime":300,"printTimeLeft":2100},
		"temps":[{"time":1700000010,"bed":{"actual":60,"target":60},"tool0":{"actual":215,"target":215}}],
		"logs":["Send: M105","Recv: wait","Recv: ok T:215.0 /215.0 B:60.0 /60.0"]}}`

	settingsJSON = `{"feature":{"sdSupport":true},
		"temperature":{"profiles":[{"name":"PLA","bed":60,"extruder":210}]},
		"webcam":{"webcamEnabled":true,"streamUrl":"/webcam/?action=stream"},
		"terminalFilters":[{"name":"Suppress M27","regex":"M27"}],
		"plugins":{"psucontrol":{}}}`

	profilesJSON = `{"profiles":{"_default":{"id":"_default","name":"Default","default":true,
		"axes":{"x":{"inverted":false},"y":{"inverted":false},"z":{"inverted":true}},
		"extruder":{"count":1,"sharedNozzle":false}}}}`
)

type managerHarness struct {
	m            *Manager
	exec         *InlineExecutor
	clock        *FakeClock
	transport    *fakeTransport
	transportFor func(models.Printer) Transport
	chans        *fakeChannels
	printers     *store.PrinterStore
	printer      models.Printer
}

func newManagerHarness(t *testing.T) *managerHarness {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open BadgerDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	enc, err := config.NewCredentialEncryptor(testSecret)
	if err != nil {
		t.Fatalf("NewCredentialEncryptor: %v", err)
	}

	h := &managerHarness{
		exec:      NewInlineExecutor(),
		clock:     NewFakeClock(time.Unix(1700000000, 0)),
		transport: newFakeTransport(),
		chans:     &fakeChannels{},
		printers:  store.NewPrinterStore(store.NewBadgerRepository(db), enc),
		printer: models.Printer{
			ID:      "printer-1",
			Name:    "Prusa MK3",
			BaseURL: "http://octopi.local",
			APIKey:  "0123456789ABCDEF",
		},
	}
	h.transportFor = func(models.Printer) Transport { return h.transport }

	h.transport.handle("POST "+octoprint.PathLogin, 200, `{"name":"octo","session":"abc123"}`)
	h.transport.handle("GET "+octoprint.PathPrinter, 200, operationalJSON)
	h.transport.handle("GET "+octoprint.PathSettings, 200, settingsJSON)
	h.transport.handle("GET "+octoprint.PathPrinterProfiles, 200, profilesJSON)
	h.transport.handle("GET "+octoprint.PathConnection, 200, `{"current":{"state":"Operational","port":"/dev/ttyACM0","printerProfile":"_default"}}`)
	h.transport.handle("GET "+octoprint.PathVersion, 200, `{"server":"1.9.3","api":"0.1","text":"OctoPrint 1.9.3"}`)
	h.transport.handle("POST "+octoprint.PathPrinterCommand, 204, "")

	if err := h.printers.Save(context.Background(), h.printer); err != nil {
		t.Fatalf("Save printer: %v", err)
	}

	cfg := ManagerConfig{
		Connection: ConnectionConfig{
			HeartbeatInterval: 40 * time.Second,
			RetryBaseDelay:    5 * time.Second,
			MaxRetries:        6,
		},
		RequestTimeout: 5 * time.Second,
	}
	h.m = NewManager(cfg, h.exec, h.clock, h.printers, reconcile.NewDefault(),
		func(p models.Printer) Transport { return h.transportFor(p) }, h.chans.factory)
	return h
}

// connectAndWait connects and waits for the baseline snapshot.
func (h *managerHarness) connectAndWait(t *testing.T) {
	t.Helper()
	if err := h.m.ConnectToServer(h.printer); err != nil {
		t.Fatalf("ConnectToServer: %v", err)
	}
	eventually(t, "baseline snapshot", func() bool {
		snap := h.m.Snapshot()
		return snap.Source == models.SourceBaseline || snap.Source == models.SourceOffline
	})
}

func TestManager_BaselineThenPush(t *testing.T) {
	h := newManagerHarness(t)
	states := &recorder[models.StateSnapshot]{}
	h.m.SubscribeState(states.add)

	h.connectAndWait(t)
	time.Sleep(50 * time.Millisecond)
	ch := h.chans.last()
	ch.open()
	ch.push(printingFrame)

	got := states.all()
	if len(got) != 2 {
		t.Fatalf("state notifications = %d, want 2", len(got))
	}
	if got[0].State.Text != "Operational" || got[1].State.Text != "Printing" {
		t.Errorf("notifications = %q, %q", got[0].State.Text, got[1].State.Text)
	}
	snap := h.m.Snapshot()
	if snap.State.Text != "Printing" || !snap.State.Flags.Printing || snap.Source != models.SourcePush {
		t.Errorf("final snapshot = %+v", snap.State)
	}
	if got := len(h.m.Temperatures()); got != 3 {
		t.Errorf("temperature history = %d, want 2 baseline + 1 push", got)
	}
	if got := len(h.m.Terminal().Raw()); got != 3 {
		t.Errorf("terminal lines = %d, want 3", got)
	}
}

func TestManager_PushThenBaselineLastWriteWins(t *testing.T) {
	h := newManagerHarness(t)
	release := make(chan struct{})
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()
	h.transport.handleFunc("GET "+octoprint.PathPrinter, func() octoprint.Response {
		<-release
		return octoprint.Response{Status: 200, Body: []byte(operationalJSON)}
	})

	if err := h.m.ConnectToServer(h.printer); err != nil {
		t.Fatalf("ConnectToServer: %v", err)
	}
	h.chans.last().push(printingFrame)
	if got := h.m.Snapshot().State.Text; got != "Printing" {
		t.Fatalf("snapshot = %q, want Printing", got)
	}

	close(release)
	eventually(t, "baseline applied", func() bool { return h.m.Snapshot().Source == models.SourceBaseline })
	if got := h.m.Snapshot().State.Text; got != "Operational" {
		t.Errorf("snapshot = %q, want the later baseline", got)
	}
}

func TestManager_NotOperationalSynthesizesOffline(t *testing.T) {
	h := newManagerHarness(t)
	h.transport.handle("GET "+octoprint.PathPrinter, 409, "Printer is not operational")

	h.connectAndWait(t)

	snap := h.m.Snapshot()
	if snap.State.Text != models.OfflineStateText || !snap.State.Flags.ClosedOrError {
		t.Errorf("snapshot = %+v, want offline", snap.State)
	}
	if snap.Source != models.SourceOffline {
		t.Errorf("source = %q", snap.Source)
	}
}

func TestManager_ConnectResetsState(t *testing.T) {
	h := newManagerHarness(t)
	events := &recorder[ConnectionEvent]{}
	h.m.SubscribeConnection(events.add)

	h.connectAndWait(t)
	first := h.chans.last()
	first.open()
	first.push(printingFrame)

	other := models.Printer{ID: "printer-2", Name: "Ender", BaseURL: "http://ender.local", APIKey: "FEDCBA9876543210"}
	h.transport.handleFunc("GET "+octoprint.PathPrinter, func() octoprint.Response {
		time.Sleep(20 * time.Millisecond)
		return octoprint.Response{Status: 200, Body: []byte(`{"state":{"text":"Operational","flags":{"operational":true}}}`)}
	})
	if err := h.m.ConnectToServer(other); err != nil {
		t.Fatalf("ConnectToServer: %v", err)
	}

	if !first.isClosed() {
		t.Error("previous channel should be closed")
	}
	if got := len(h.m.Temperatures()); got != 0 {
		t.Errorf("temperatures after connect = %d, want 0", got)
	}
	if got := len(h.m.Terminal().Raw()); got != 0 {
		t.Errorf("terminal after connect = %d, want 0", got)
	}
	if snap := h.m.Snapshot(); !snap.IsEmpty() {
		t.Errorf("snapshot after connect = %+v, want empty", snap)
	}
	if p, _ := h.m.Printer(); p.ID != "printer-2" {
		t.Errorf("printer = %q", p.ID)
	}

	about := 0
	for _, ev := range events.all() {
		if ev.Type == EventAboutToConnect {
			about++
		}
	}
	if about != 2 {
		t.Errorf("about-to-connect events = %d, want 2", about)
	}
}

func TestManager_SameTargetDoesNotReconnect(t *testing.T) {
	h := newManagerHarness(t)

	h.connectAndWait(t)
	h.chans.last().open()
	if err := h.m.ConnectToServer(h.printer); err != nil {
		t.Fatalf("ConnectToServer: %v", err)
	}
	eventually(t, "baseline refetch", func() bool {
		return len(h.transport.calls("GET "+octoprint.PathPrinter)) == 2
	})

	if got := h.chans.count(); got != 1 {
		t.Errorf("channels opened = %d, want 1", got)
	}
	if got := h.m.ConnectionState(); got != StateConnected {
		t.Errorf("state = %v", got)
	}
}

func TestManager_StaleBaselineDiscarded(t *testing.T) {
	h := newManagerHarness(t)
	slow := newFakeTransport()
	release := make(chan struct{})
	slow.handleFunc("GET "+octoprint.PathPrinter, func() octoprint.Response {
		<-release
		return octoprint.Response{Status: 200, Body: []byte(`{"state":{"text":"Printing","flags":{"printing":true}}}`)}
	})
	h.transportFor = func(p models.Printer) Transport {
		if p.ID == h.printer.ID {
			return slow
		}
		return h.transport
	}
	before := testutil.ToFloat64(metrics.StaleResponses.WithLabelValues("printer"))

	if err := h.m.ConnectToServer(h.printer); err != nil {
		t.Fatalf("ConnectToServer: %v", err)
	}
	other := models.Printer{ID: "printer-2", Name: "Ender", BaseURL: "http://ender.local", APIKey: "FEDCBA9876543210"}
	if err := h.m.ConnectToServer(other); err != nil {
		t.Fatalf("ConnectToServer: %v", err)
	}
	eventually(t, "second baseline", func() bool { return h.m.Snapshot().Source == models.SourceBaseline })

	close(release)
	eventually(t, "stale response counted", func() bool {
		return testutil.ToFloat64(metrics.StaleResponses.WithLabelValues("printer")) == before+1
	})
	if got := h.m.Snapshot().State.Text; got != "Operational" {
		t.Errorf("snapshot = %q, stale baseline must not apply", got)
	}
}

func TestManager_ReconcileAfterBaselineAndOnSettingsUpdated(t *testing.T) {
	h := newManagerHarness(t)
	notes := &recorder[reconcile.Notification]{}
	h.m.SubscribeCapabilities(notes.add)

	h.connectAndWait(t)
	eventually(t, "first reconciliation", func() bool {
		for _, n := range notes.all() {
			if n.Domain == reconcile.DomainPrinter {
				return true
			}
		}
		return false
	})
	first := notes.len()

	p, _ := h.m.Printer()
	if !p.PluginInstalled(models.PluginPSUControl) || !p.SDSupport || !p.Orientation.InvertZ {
		t.Errorf("reconciled printer = %+v", p)
	}
	caps, err := h.printers.Capabilities(context.Background(), h.printer.ID)
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if len(caps.TerminalFilters) != 1 || len(caps.Cameras) != 1 {
		t.Errorf("persisted capabilities = %+v", caps)
	}

	eventually(t, "version persisted", func() bool {
		p, err := h.printers.Get(context.Background(), h.printer.ID)
		return err == nil && p.OctoPrintVersion != ""
	})

	// An edit made elsewhere must survive the next reconciliation.
	stored, err := h.printers.Get(context.Background(), h.printer.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	stored.Name = "Renamed"
	if err := h.printers.Save(context.Background(), stored); err != nil {
		t.Fatalf("Save: %v", err)
	}

	h.transport.handle("GET "+octoprint.PathSettings, 200, strings.Replace(settingsJSON,
		`[{"name":"Suppress M27","regex":"M27"}]`,
		`[{"name":"Suppress M27","regex":"M27"},{"name":"Suppress busy","regex":"busy"}]`, 1))
	h.chans.last().push(`{"event":{"type":"SettingsUpdated","payload":{"config_hash":"x"}}}`)

	eventually(t, "second reconciliation", func() bool { return notes.len() > first })
	second := notes.all()[first:]
	if len(second) != 1 || second[0].Domain != reconcile.DomainTerminalFilters {
		t.Errorf("second pass notifications = %+v", second)
	}
	if filters, ok := second[0].State.([]models.TerminalFilter); !ok || len(filters) != 2 {
		t.Errorf("notification state = %#v", second[0].State)
	}

	eventually(t, "reconciled printer", func() bool {
		p, _ := h.m.Printer()
		return p.Name == "Renamed"
	})
	names := make([]string, 0)
	for _, f := range h.m.AvailableFilters() {
		names = append(names, f.Name)
	}
	if names[0] != "Suppress M27" || names[1] != "Suppress busy" {
		t.Errorf("available filters = %v", names)
	}
}

func TestManager_VersionDiscovery(t *testing.T) {
	h := newManagerHarness(t)

	if got := h.m.IsVersionAtLeast(1, 0, 0); got != models.VersionUnknown {
		t.Errorf("before connect = %v, want unknown", got)
	}
	h.connectAndWait(t)
	eventually(t, "version", func() bool {
		_, ok := h.m.Version()
		return ok
	})

	tests := []struct {
		major, minor, patch int
		want                models.VersionComparison
	}{
		{1, 5, 0, models.VersionNewerOrEqual},
		{1, 9, 3, models.VersionNewerOrEqual},
		{1, 10, 0, models.VersionOlder},
	}
	for _, tt := range tests {
		if got := h.m.IsVersionAtLeast(tt.major, tt.minor, tt.patch); got != tt.want {
			t.Errorf("IsVersionAtLeast(%d,%d,%d) = %v, want %v", tt.major, tt.minor, tt.patch, got, tt.want)
		}
	}

	eventually(t, "version persisted", func() bool {
		p, err := h.printers.Get(context.Background(), h.printer.ID)
		return err == nil && p.OctoPrintVersion == "1.9.3"
	})
}

func TestManager_SendCommand(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	if err := h.m.SendCommand(ctx, "G28"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("before connect = %v, want ErrNotConnected", err)
	}
	h.connectAndWait(t)

	if err := h.m.SendCommand(ctx, "  \n "); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("blank = %v, want ErrEmptyCommand", err)
	}
	for _, cmd := range []string{"G28", "M105\nM114", "G28"} {
		if err := h.m.SendCommand(ctx, cmd); err != nil {
			t.Fatalf("SendCommand(%q): %v", cmd, err)
		}
	}

	want := []string{"G28", "M105\nM114"}
	if got := h.m.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Commands = %q, want %q", got, want)
	}
	persisted, err := h.printers.CommandHistory(ctx, h.printer.ID)
	if err != nil || !reflect.DeepEqual(persisted, want) {
		t.Errorf("persisted = %q, %v", persisted, err)
	}

	reqs := h.transport.calls("POST " + octoprint.PathPrinterCommand)
	if len(reqs) != 3 {
		t.Fatalf("command requests = %d", len(reqs))
	}
	if body := reqs[1].Body; !reflect.DeepEqual(body, map[string][]string{"commands": {"M105", "M114"}}) {
		t.Errorf("multi-line body = %#v", body)
	}

	h.transport.handle("POST "+octoprint.PathPrinterCommand, 409, "Printer is not operational")
	if err := h.m.SendCommand(ctx, "M112"); !errors.Is(err, models.ErrNotOperational) {
		t.Errorf("409 = %v, want ErrNotOperational", err)
	}
}

func TestManager_CommandHistoryRestoredOnConnect(t *testing.T) {
	h := newManagerHarness(t)
	if err := h.printers.SaveCommandHistory(context.Background(), h.printer.ID, []string{"M503", "G28"}); err != nil {
		t.Fatalf("SaveCommandHistory: %v", err)
	}
	h.connectAndWait(t)
	if got := h.m.Commands(); !reflect.DeepEqual(got, []string{"M503", "G28"}) {
		t.Errorf("Commands = %q", got)
	}
}

func TestManager_TerminalFilters(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()
	h.connectAndWait(t)

	if err := h.m.SetTerminalFilters(ctx, []string{"No such filter"}); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("unknown filter = %v, want ErrUnknownFilter", err)
	}
	if err := h.m.SetTerminalFilters(ctx, []string{"Suppress wait responses"}); err != nil {
		t.Fatalf("SetTerminalFilters: %v", err)
	}

	h.chans.last().push(printingFrame)
	want := []string{"Send: M105", "Recv: ok T:215.0 /215.0 B:60.0 /60.0"}
	if got := h.m.Terminal().Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("filtered lines = %q, want %q", got, want)
	}
	if got := h.m.ActiveFilters(); !reflect.DeepEqual(got, []string{"Suppress wait responses"}) {
		t.Errorf("ActiveFilters = %v", got)
	}

	if err := h.m.SetTerminalFilters(ctx, nil); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	if got := len(h.m.Terminal().Lines()); got != 3 {
		t.Errorf("lines after clearing filters = %d, want 3", got)
	}
}

func TestManager_PluginRouting(t *testing.T) {
	h := newManagerHarness(t)
	h.connectAndWait(t)

	octopod := &recorder[models.PluginMessage]{}
	psu := &recorder[models.PluginMessage]{}
	handle := h.m.SubscribePlugin(models.PluginOctoPod, octopod.add)
	h.m.SubscribePlugin(models.PluginPSUControl, psu.add)

	ch := h.chans.last()
	ch.push(`{"plugin":{"plugin":"octopod","data":{"soc_temp":48.5,"time":1700000100}}}`)
	ch.push(`{"plugin":{"plugin":"octopod","data":{"soc_temp":49}}}`)

	soc := h.m.SoCTemperatures()
	if len(soc) != 2 || soc[0].Temp != 48.5 || soc[0].Time != 1700000100 {
		t.Fatalf("SoC history = %+v", soc)
	}
	if soc[1].Time != h.clock.Now().Unix() {
		t.Errorf("untimed sample time = %d, want now", soc[1].Time)
	}
	if octopod.len() != 2 || psu.len() != 0 {
		t.Errorf("octopod=%d psu=%d", octopod.len(), psu.len())
	}

	ch.push(`{"plugin":{"plugin":"octopod","data":{"soc_temps":[{"time":1,"temp":40},{"time":2,"temp":41},{"time":3,"temp":42}]}}}`)
	if got := len(h.m.SoCTemperatures()); got != 3 {
		t.Errorf("SoC history after full replace = %d, want 3", got)
	}

	if !h.m.Unsubscribe(handle) {
		t.Fatal("Unsubscribe returned false")
	}
	if h.m.Unsubscribe(handle) {
		t.Error("second Unsubscribe should return false")
	}
	ch.push(`{"plugin":{"plugin":"octopod","data":{"soc_temp":50}}}`)
	if octopod.len() != 3 {
		t.Errorf("octopod deliveries after unsubscribe = %d, want 3", octopod.len())
	}
}

func TestManager_HistoryFrameReplaces(t *testing.T) {
	h := newManagerHarness(t)
	h.connectAndWait(t)
	ch := h.chans.last()
	ch.push(printingFrame)

	ch.push(`{"history":{"state":{"text":"Operational","flags":{"operational":true}},
		"temps":[{"time":1,"bed":{"actual":20,"target":0}}],"logs":["Recv: start"]}}`)

	if got := len(h.m.Temperatures()); got != 1 {
		t.Errorf("temperatures = %d, want 1", got)
	}
	if got := h.m.Terminal().Raw(); !reflect.DeepEqual(got, []string{"Recv: start"}) {
		t.Errorf("terminal = %q", got)
	}
}

func TestManager_MalformedFrameLeavesState(t *testing.T) {
	h := newManagerHarness(t)
	h.connectAndWait(t)
	before := h.m.Snapshot()
	dropped := testutil.ToFloat64(metrics.FramesDropped.WithLabelValues("protocol"))

	ch := h.chans.last()
	ch.push(`{"current":{"state":{}}}`)
	ch.push(`not json`)

	if got := h.m.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Errorf("snapshot changed: %+v", got.State)
	}
	if got := testutil.ToFloat64(metrics.FramesDropped.WithLabelValues("protocol")); got != dropped+2 {
		t.Errorf("dropped = %v, want %v", got, dropped+2)
	}
}

func TestManager_ReauthRequired(t *testing.T) {
	h := newManagerHarness(t)
	h.connectAndWait(t)
	ch := h.chans.last()
	ch.open()
	eventually(t, "auth frame", func() bool { return len(ch.frames()) == 1 })

	ch.push(`{"reauthRequired":{"reason":"logout"}}`)
	eventually(t, "second auth frame", func() bool { return len(ch.frames()) == 2 })
	if got := len(h.transport.calls("POST " + octoprint.PathLogin)); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
}

func TestManager_DisconnectKeepsSnapshot(t *testing.T) {
	h := newManagerHarness(t)
	h.connectAndWait(t)
	ch := h.chans.last()
	ch.open()
	ch.push(printingFrame)

	h.m.Disconnect()
	ch.fail()

	if got := h.m.ConnectionState(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if got := h.m.Snapshot().State.Text; got != "Printing" {
		t.Errorf("snapshot = %q, want last state kept", got)
	}
}

func TestManager_ConnectToServerValidates(t *testing.T) {
	h := newManagerHarness(t)
	if err := h.m.ConnectToServer(models.Printer{ID: "x"}); !errors.Is(err, ErrInvalidPrinter) {
		t.Errorf("err = %v, want ErrInvalidPrinter", err)
	}
}
