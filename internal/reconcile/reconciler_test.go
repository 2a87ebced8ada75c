// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package reconcile

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/parser"
)

const fullSettings = `{
  "feature": {"sdSupport": true},
  "temperature": {"profiles": [{"name": "PLA", "bed": 60, "extruder": 210}]},
  "webcam": {"webcamEnabled": true, "streamUrl": "/webcam/?action=stream", "flipH": true},
  "appearance": {"color": "orange"},
  "terminalFilters": [{"name": "Suppress wait responses", "regex": "Recv: wait"}],
  "plugins": {
    "psucontrol": {},
    "cancelobject": {},
    "multicam": {"multicam_profiles": [
      {"name": "Front", "URL": "http://cam/front", "snapshot": "http://cam/front.jpg", "streamRatio": "16:9", "flipH": false},
      {"name": "Top", "URL": "http://cam/top", "rotate90": true}
    ]},
    "enclosure": {
      "rpi_inputs": [{"index_id": 1, "label": "Chamber", "input_type": "temperature_sensor", "temp_sensor_type": "18b20", "use_fahrenheit": false}],
      "rpi_outputs": [
        {"index_id": 2, "label": "Light", "output_type": "regular", "gpio_pin": 17, "active_low": true, "hide_btn_ui": false},
        {"index_id": 3, "label": "Hidden fan", "output_type": "pwm", "gpio_pin": "18", "hide_btn_ui": true}
      ]
    },
    "tasmota": {"arrSmartplugs": [{"ip": "10.0.0.5", "idx": "1", "label": "Printer"}, {"ip": "10.0.0.5", "idx": "2", "label": "Lights"}]},
    "tuyasmartplug": {"arrSmartplugs": [{"label": "dryer", "id": "abc"}]}
  }
}`

const profilesJSON = `{"profiles": {"mk3": {"id": "mk3", "name": "MK3", "current": true,
  "axes": {"x": {"inverted": false}, "y": {"inverted": true}, "z": {"inverted": false}},
  "extruder": {"count": 1, "sharedNozzle": false}}}}`

func mustInputs(t *testing.T) (models.Settings, models.PrinterProfiles) {
	t.Helper()
	s, err := parser.ParseSettings([]byte(fullSettings))
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	p, err := parser.ParsePrinterProfiles([]byte(profilesJSON))
	if err != nil {
		t.Fatalf("ParsePrinterProfiles: %v", err)
	}
	return s, p
}

func TestReconcile_FirstRunAndIdempotence(t *testing.T) {
	settings, profiles := mustInputs(t)
	r := NewDefault()
	persisted := State{Printer: models.Printer{ID: "p1", Name: "Prusa"}}

	state, cs := r.Reconcile(settings, profiles, persisted)

	wantDomains := []string{
		DomainCameras,
		DomainEnclosureInputs,
		DomainEnclosureOutputs,
		PlugDomain(models.PluginTuyaSmartPlug),
		PlugDomain(models.PluginTasmota),
		DomainTerminalFilters,
		DomainFlags,
		DomainOrientation,
		DomainPrinter,
	}
	if got := cs.Domains(); !reflect.DeepEqual(got, wantDomains) {
		t.Errorf("Domains = %v, want %v", got, wantDomains)
	}
	if !cs.PrinterDirty {
		t.Error("printer record should be dirty")
	}

	caps := state.Capabilities
	if len(caps.Cameras) != 2 || caps.Cameras[1].Name != "Top" || !caps.Cameras[1].Rotate90 {
		t.Errorf("Cameras = %+v", caps.Cameras)
	}
	if len(caps.EnclosureOutputs) != 1 || !caps.EnclosureOutputs[0].Inverted {
		t.Errorf("EnclosureOutputs = %+v; hidden output must be skipped", caps.EnclosureOutputs)
	}
	if len(caps.Plugs[models.PluginTasmota]) != 2 {
		t.Errorf("tasmota plugs = %+v", caps.Plugs[models.PluginTasmota])
	}
	if tuya := caps.Plugs[models.PluginTuyaSmartPlug]; len(tuya) != 1 || tuya[0].Key() != "dryer" {
		t.Errorf("tuya plugs = %+v", tuya)
	}

	p := state.Printer
	if !p.SDSupport || p.Color != "orange" || p.ExtruderCount != 1 || len(p.TemperaturePresets) != 1 {
		t.Errorf("printer = %+v", p)
	}
	if !p.PluginInstalled(models.PluginPSUControl) || p.PluginInstalled(models.PluginOctoRelay) {
		t.Errorf("plugins = %v", p.Plugins)
	}
	if !p.Orientation.FlipH || !p.Orientation.InvertY {
		t.Errorf("orientation = %+v", p.Orientation)
	}
	if !p.HasMigration(OrientationMigration.ID) {
		t.Error("migration should be recorded")
	}
	if persisted.Printer.Plugins != nil || persisted.Printer.Migrations != nil {
		t.Error("Reconcile must not modify its input")
	}

	_, again := r.Reconcile(settings, profiles, state)
	if !again.Empty() {
		t.Errorf("second run should be empty, got domains %v dirty=%v", again.Domains(), again.PrinterDirty)
	}
}

func TestReconcile_DiffCorrectness(t *testing.T) {
	filter := func(name string) models.TerminalFilter {
		return models.TerminalFilter{Name: name, Regex: name}
	}
	persisted := State{
		Printer:      models.Printer{ID: "p1"},
		Capabilities: models.CapabilitySet{TerminalFilters: []models.TerminalFilter{filter("A"), filter("B"), filter("C")}},
	}
	settings := models.Settings{
		TerminalFilters: []models.TerminalFilter{filter("B"), filter("C"), filter("D")},
		Plugins:         map[string]json.RawMessage{},
	}

	state, cs := New().Reconcile(settings, models.PrinterProfiles{}, persisted)

	if len(cs.Notifications) != 1 {
		t.Fatalf("notifications = %+v, want exactly one", cs.Notifications)
	}
	n := cs.Notifications[0]
	want := []models.TerminalFilter{filter("B"), filter("C"), filter("D")}
	if n.Domain != DomainTerminalFilters || !reflect.DeepEqual(n.State, want) || n.PrinterID != "p1" {
		t.Errorf("notification = %+v", n)
	}
	d := cs.TerminalFilters
	if !reflect.DeepEqual(d.Delete, []models.TerminalFilter{filter("A")}) ||
		!reflect.DeepEqual(d.Create, []models.TerminalFilter{filter("D")}) ||
		len(d.Update) != 0 {
		t.Errorf("diff = %+v", d)
	}
	if !reflect.DeepEqual(state.Capabilities.TerminalFilters, want) {
		t.Errorf("state = %+v", state.Capabilities.TerminalFilters)
	}
	if cs.PrinterDirty {
		t.Error("printer record should not be dirty")
	}
}

func TestReconcile_PluginRemovedDeletesPlugs(t *testing.T) {
	persisted := State{
		Printer: models.Printer{ID: "p1", Migrations: []string{OrientationMigration.ID}},
		Capabilities: models.CapabilitySet{Plugs: map[string][]models.SmartPlug{
			models.PluginWemoSwitch: {{Plugin: models.PluginWemoSwitch, IP: "10.0.0.9", Label: "Wemo"}},
		}},
	}
	state, cs := NewDefault().Reconcile(models.Settings{}, models.PrinterProfiles{}, persisted)

	if got := cs.Domains(); !reflect.DeepEqual(got, []string{PlugDomain(models.PluginWemoSwitch)}) {
		t.Fatalf("Domains = %v", got)
	}
	if len(cs.Plugs[models.PluginWemoSwitch].Delete) != 1 {
		t.Errorf("plug diff = %+v", cs.Plugs[models.PluginWemoSwitch])
	}
	if _, ok := state.Capabilities.Plugs[models.PluginWemoSwitch]; ok {
		t.Error("removed plugin should have no plugs")
	}
}

func TestReconcile_MalformedPluginSettingsKeepsDomain(t *testing.T) {
	persisted := State{
		Printer: models.Printer{ID: "p1", Migrations: []string{OrientationMigration.ID}},
		Capabilities: models.CapabilitySet{EnclosureInputs: []models.EnclosureInput{{IndexID: 1, Label: "Chamber"}}},
	}
	settings := models.Settings{Plugins: map[string]json.RawMessage{
		models.PluginEnclosure: json.RawMessage(`{"rpi_inputs": "not a list"}`),
	}}

	state, cs := NewDefault().Reconcile(settings, models.PrinterProfiles{}, persisted)
	for _, d := range cs.Domains() {
		if d == DomainEnclosureInputs {
			t.Error("malformed settings must not change the domain")
		}
	}
	if len(state.Capabilities.EnclosureInputs) != 1 {
		t.Errorf("inputs = %+v", state.Capabilities.EnclosureInputs)
	}
}

func TestReconcile_WebcamFallback(t *testing.T) {
	enabled := false
	settings := models.Settings{Webcam: models.WebcamSettings{StreamURL: "/webcam/?action=stream", WebcamEnabled: &enabled}}
	cams, err := remoteCameras(settings)
	if err != nil || len(cams) != 0 {
		t.Errorf("disabled webcam = %+v, %v", cams, err)
	}

	enabled = true
	cams, err = remoteCameras(settings)
	if err != nil || len(cams) != 1 || cams[0].StreamURL != "/webcam/?action=stream" {
		t.Errorf("enabled webcam = %+v, %v", cams, err)
	}
}
