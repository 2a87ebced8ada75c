// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package reconcile

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/models"
)

// PlugPlugins are the smart plug plugins whose arrSmartplugs are reconciled.
var PlugPlugins = []string{
	models.PluginTPLinkSmartPlug,
	models.PluginTuyaSmartPlug,
	models.PluginWemoSwitch,
	models.PluginDomoticz,
	models.PluginTasmota,
}

// FlagPlugins are the plugins tracked as installed flags on the printer.
var FlagPlugins = []string{
	models.PluginPSUControl,
	models.PluginCancelObject,
	models.PluginOctoRelay,
	models.PluginFilamentManager,
	models.PluginSpoolManager,
	models.PluginPalette2,
	models.PluginBLTouch,
	models.PluginDisplayLayerProgress,
	models.PluginOctoPod,
	models.PluginEnclosure,
	models.PluginMultiCam,
}

// numeric accepts a JSON number or numeric string.
type numeric int

func (n *numeric) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = numeric(int(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = numeric(v)
	return nil
}

// text accepts a JSON string or number.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

// pluginSection decodes the settings of plugin id into v. It returns false
// when the plugin is not installed.
func pluginSection(s models.Settings, id string, v interface{}) (bool, error) {
	raw, ok := s.Plugins[id]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s settings: %w", id, err)
	}
	return true, nil
}

type wireMultiCamProfile struct {
	Name        string `json:"name"`
	URL         string `json:"URL"`
	Snapshot    string `json:"snapshot"`
	StreamRatio string `json:"streamRatio"`
	FlipH       bool   `json:"flipH"`
	FlipV       bool   `json:"flipV"`
	Rotate90    bool   `json:"rotate90"`
}

// remoteCameras returns the multicam profiles when present, otherwise the
// single webcam from the core settings.
func remoteCameras(s models.Settings) ([]models.Camera, error) {
	var mc struct {
		Profiles []wireMultiCamProfile `json:"multicam_profiles"`
	}
	installed, err := pluginSection(s, models.PluginMultiCam, &mc)
	if err != nil {
		return nil, err
	}
	if installed && len(mc.Profiles) > 0 {
		cams := make([]models.Camera, 0, len(mc.Profiles))
		for i, p := range mc.Profiles {
			cams = append(cams, models.Camera{
				Index:       i,
				Name:        p.Name,
				StreamURL:   p.URL,
				SnapshotURL: p.Snapshot,
				StreamRatio: p.StreamRatio,
				FlipH:       p.FlipH,
				FlipV:       p.FlipV,
				Rotate90:    p.Rotate90,
			})
		}
		return cams, nil
	}

	w := s.Webcam
	if w.StreamURL == "" || (w.WebcamEnabled != nil && !*w.WebcamEnabled) {
		return nil, nil
	}
	return []models.Camera{{
		Index:       0,
		Name:        "Default",
		StreamURL:   w.StreamURL,
		SnapshotURL: w.SnapshotURL,
		StreamRatio: w.StreamRatio,
		FlipH:       w.FlipH,
		FlipV:       w.FlipV,
		Rotate90:    w.Rotate90,
	}}, nil
}

type wireEnclosureInput struct {
	IndexID        numeric `json:"index_id"`
	Label          string  `json:"label"`
	InputType      string  `json:"input_type"`
	TempSensorType text    `json:"temp_sensor_type"`
	UseFahrenheit  bool    `json:"use_fahrenheit"`
}

type wireEnclosureOutput struct {
	IndexID    numeric `json:"index_id"`
	Label      string  `json:"label"`
	OutputType string  `json:"output_type"`
	GPIOPin    numeric `json:"gpio_pin"`
	ActiveLow  bool    `json:"active_low"`
	HideBtnUI  bool    `json:"hide_btn_ui"`
}

// enclosureOutput pairs a record with its hidden flag, which is not persisted.
type enclosureOutput struct {
	models.EnclosureOutput
	hidden bool
}

func remoteEnclosure(s models.Settings) ([]models.EnclosureInput, []enclosureOutput, error) {
	var enc struct {
		Inputs  []wireEnclosureInput  `json:"rpi_inputs"`
		Outputs []wireEnclosureOutput `json:"rpi_outputs"`
	}
	if _, err := pluginSection(s, models.PluginEnclosure, &enc); err != nil {
		return nil, nil, err
	}

	inputs := make([]models.EnclosureInput, 0, len(enc.Inputs))
	for _, in := range enc.Inputs {
		inputs = append(inputs, models.EnclosureInput{
			IndexID:        int(in.IndexID),
			Label:          in.Label,
			InputType:      in.InputType,
			TempSensorType: string(in.TempSensorType),
			UseFahrenheit:  in.UseFahrenheit,
		})
	}

	outputs := make([]enclosureOutput, 0, len(enc.Outputs))
	for _, out := range enc.Outputs {
		outputs = append(outputs, enclosureOutput{
			EnclosureOutput: models.EnclosureOutput{
				IndexID:    int(out.IndexID),
				Label:      out.Label,
				OutputType: out.OutputType,
				GPIOPin:    int(out.GPIOPin),
				Inverted:   out.ActiveLow,
			},
			hidden: out.HideBtnUI,
		})
	}
	return inputs, outputs, nil
}

type wireSmartPlug struct {
	IP    text `json:"ip"`
	Idx   text `json:"idx"`
	Label text `json:"label"`
}

// remotePlugs returns the plugs configured in plugin id. Tuya plugs have no
// IP and are keyed by label. Only tasmota distinguishes relays by idx.
func remotePlugs(s models.Settings, plugin string) ([]models.SmartPlug, error) {
	var cfg struct {
		Plugs []wireSmartPlug `json:"arrSmartplugs"`
	}
	if _, err := pluginSection(s, plugin, &cfg); err != nil {
		return nil, err
	}

	plugs := make([]models.SmartPlug, 0, len(cfg.Plugs))
	for _, p := range cfg.Plugs {
		plug := models.SmartPlug{Plugin: plugin, IP: string(p.IP), Label: string(p.Label)}
		if plugin == models.PluginTasmota {
			plug.Idx = string(p.Idx)
		}
		if plug.IP == "" {
			plug.IP = plug.Label
		}
		if plug.IP == "" {
			continue
		}
		plugs = append(plugs, plug)
	}
	return plugs, nil
}

// remoteFlags reports which tracked plugins the server has installed.
func remoteFlags(s models.Settings) map[string]bool {
	flags := make(map[string]bool, len(FlagPlugins))
	for _, id := range FlagPlugins {
		flags[id] = s.HasPlugin(id)
	}
	return flags
}

func remoteOrientation(s models.Settings, profile models.PrinterProfile, hasProfile bool, current models.Orientation) models.Orientation {
	o := models.Orientation{
		FlipH:    s.Webcam.FlipH,
		FlipV:    s.Webcam.FlipV,
		Rotate90: s.Webcam.Rotate90,
		InvertX:  current.InvertX,
		InvertY:  current.InvertY,
		InvertZ:  current.InvertZ,
	}
	if hasProfile {
		o.InvertX = profile.Axes.X.Inverted
		o.InvertY = profile.Axes.Y.Inverted
		o.InvertZ = profile.Axes.Z.Inverted
	}
	return o
}
