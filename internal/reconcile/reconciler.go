// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package reconcile

import (
	"slices"
	"strconv"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/store"
)

// Domain names used in notifications and metrics.
const (
	DomainCameras          = store.DomainCameras
	DomainEnclosureInputs  = store.DomainEnclosureInputs
	DomainEnclosureOutputs = store.DomainEnclosureOutputs
	DomainTerminalFilters  = store.DomainTerminalFilters
	DomainFlags            = "flags"
	DomainOrientation      = "orientation"
	DomainPrinter          = "printer"
)

// PlugDomain returns the domain name of a smart plug plugin.
func PlugDomain(plugin string) string {
	return store.DomainPlugs + "/" + plugin
}

// State is the persisted side of a reconciliation.
type State struct {
	Printer      models.Printer
	Capabilities models.CapabilitySet
}

// Notification announces the final state of one changed domain.
type Notification struct {
	PrinterID string
	Domain    string
	// State is []models.Camera, []models.EnclosureInput, []models.EnclosureOutput,
	// []models.SmartPlug, []models.TerminalFilter, map[string]bool (flags),
	// models.Orientation or models.Printer depending on Domain.
	State interface{}
}

// ChangeSet records what a reconciliation changed.
type ChangeSet struct {
	Cameras          Diff[models.Camera]
	EnclosureInputs  Diff[models.EnclosureInput]
	EnclosureOutputs Diff[models.EnclosureOutput]
	Plugs            map[string]Diff[models.SmartPlug]
	TerminalFilters  Diff[models.TerminalFilter]

	// PrinterDirty is set when the printer record must be saved.
	PrinterDirty bool

	// Notifications holds one entry per changed domain, in evaluation order.
	Notifications []Notification
}

// Domains returns the changed domain names.
func (c ChangeSet) Domains() []string {
	out := make([]string, len(c.Notifications))
	for i, n := range c.Notifications {
		out[i] = n.Domain
	}
	return out
}

// Empty reports whether nothing needs to be written or announced.
func (c ChangeSet) Empty() bool {
	return len(c.Notifications) == 0 && !c.PrinterDirty
}

// Reconciler diffs remote capabilities against persisted state.
type Reconciler struct {
	migrations []Migration
}

// New creates a reconciler applying the given one-shot migrations.
func New(migrations ...Migration) *Reconciler {
	return &Reconciler{migrations: migrations}
}

// NewDefault creates a reconciler with the migrations OctoSync ships.
func NewDefault() *Reconciler {
	return New(DefaultMigrations...)
}

// reconcileRun carries the state of one Reconcile call.
type reconcileRun struct {
	printerID string
	forced    map[string]bool
	cs        ChangeSet
}

func (r *reconcileRun) changed(domain string, state interface{}) {
	r.cs.Notifications = append(r.cs.Notifications, Notification{
		PrinterID: r.printerID,
		Domain:    domain,
		State:     state,
	})
}

// Reconcile returns the reconciled state and the changes needed to reach it.
// persisted is not modified.
func (r *Reconciler) Reconcile(settings models.Settings, profiles models.PrinterProfiles, persisted State) (State, ChangeSet) {
	run := &reconcileRun{
		printerID: persisted.Printer.ID,
		forced:    make(map[string]bool),
		cs:        ChangeSet{Plugs: make(map[string]Diff[models.SmartPlug])},
	}
	var pending []Migration
	for _, m := range r.migrations {
		if !persisted.Printer.HasMigration(m.ID) {
			pending = append(pending, m)
			run.forced[m.Domain] = true
		}
	}

	out := State{
		Printer: clonePrinter(persisted.Printer),
		Capabilities: models.CapabilitySet{
			Cameras:          persisted.Capabilities.Cameras,
			EnclosureInputs:  persisted.Capabilities.EnclosureInputs,
			EnclosureOutputs: persisted.Capabilities.EnclosureOutputs,
			Plugs:            make(map[string][]models.SmartPlug, len(PlugPlugins)),
			TerminalFilters:  persisted.Capabilities.TerminalFilters,
		},
	}
	for plugin, plugs := range persisted.Capabilities.Plugs {
		out.Capabilities.Plugs[plugin] = plugs
	}

	r.reconcileCameras(run, settings, persisted, &out)
	r.reconcileEnclosure(run, settings, persisted, &out)
	r.reconcilePlugs(run, settings, persisted, &out)
	r.reconcileTerminalFilters(run, settings, persisted, &out)

	printerDirty := false
	profile, hasProfile := profiles.ActiveProfile()
	if r.reconcileFlags(run, settings, &out.Printer) {
		printerDirty = true
	}
	if r.reconcileOrientation(run, settings, profile, hasProfile, &out.Printer) {
		printerDirty = true
	}
	if r.reconcilePrinter(run, settings, profile, hasProfile, &out.Printer) {
		printerDirty = true
	}

	for _, m := range pending {
		out.Printer.Migrations = append(out.Printer.Migrations, m.ID)
		printerDirty = true
		logging.Info().Str("printer_id", run.printerID).Str("migration", m.ID).Str("domain", m.Domain).Msg("Applied capability migration")
	}
	run.cs.PrinterDirty = printerDirty

	if domains := run.cs.Domains(); len(domains) > 0 {
		logging.Debug().Str("printer_id", run.printerID).Strs("domains", domains).Msg("Capabilities reconciled")
	}
	return out, run.cs
}

func (r *Reconciler) reconcileCameras(run *reconcileRun, s models.Settings, persisted State, out *State) {
	remote, err := remoteCameras(s)
	if err != nil {
		logging.Warn().Str("printer_id", run.printerID).Err(err).Msg("Skipping camera reconciliation")
		return
	}
	d := KeyedDiff(persisted.Capabilities.Cameras, remote, cameraKey, nil)
	if run.forced[DomainCameras] {
		d = d.forceWrite()
	}
	run.cs.Cameras = d
	out.Capabilities.Cameras = d.Final
	if d.Changed() || run.forced[DomainCameras] {
		run.changed(DomainCameras, d.Final)
	}
}

func (r *Reconciler) reconcileEnclosure(run *reconcileRun, s models.Settings, persisted State, out *State) {
	inputs, outputs, err := remoteEnclosure(s)
	if err != nil {
		logging.Warn().Str("printer_id", run.printerID).Err(err).Msg("Skipping enclosure reconciliation")
		return
	}

	in := KeyedDiff(persisted.Capabilities.EnclosureInputs, inputs, inputKey, nil)
	if run.forced[DomainEnclosureInputs] {
		in = in.forceWrite()
	}
	run.cs.EnclosureInputs = in
	out.Capabilities.EnclosureInputs = in.Final
	if in.Changed() || run.forced[DomainEnclosureInputs] {
		run.changed(DomainEnclosureInputs, in.Final)
	}

	local := make([]enclosureOutput, len(persisted.Capabilities.EnclosureOutputs))
	for i, o := range persisted.Capabilities.EnclosureOutputs {
		local[i] = enclosureOutput{EnclosureOutput: o}
	}
	od := KeyedDiff(local, outputs, outputKey, func(o enclosureOutput) bool { return o.hidden })
	if run.forced[DomainEnclosureOutputs] {
		od = od.forceWrite()
	}
	d := Diff[models.EnclosureOutput]{
		Create: unwrapOutputs(od.Create),
		Update: unwrapOutputs(od.Update),
		Delete: unwrapOutputs(od.Delete),
		Final:  unwrapOutputs(od.Final),
	}
	run.cs.EnclosureOutputs = d
	out.Capabilities.EnclosureOutputs = d.Final
	if d.Changed() || run.forced[DomainEnclosureOutputs] {
		run.changed(DomainEnclosureOutputs, d.Final)
	}
}

func (r *Reconciler) reconcilePlugs(run *reconcileRun, s models.Settings, persisted State, out *State) {
	for _, plugin := range PlugPlugins {
		domain := PlugDomain(plugin)
		remote, err := remotePlugs(s, plugin)
		if err != nil {
			logging.Warn().Str("printer_id", run.printerID).Str("plugin", plugin).Err(err).Msg("Skipping smart plug reconciliation")
			continue
		}

		d := KeyedDiff(persisted.Capabilities.Plugs[plugin], remote, models.SmartPlug.Key, nil)
		if run.forced[domain] {
			d = d.forceWrite()
		}
		if len(d.Final) > 0 {
			out.Capabilities.Plugs[plugin] = d.Final
		} else {
			delete(out.Capabilities.Plugs, plugin)
		}
		if d.Changed() || run.forced[domain] {
			run.cs.Plugs[plugin] = d
			run.changed(domain, d.Final)
		}
	}
}

func (r *Reconciler) reconcileTerminalFilters(run *reconcileRun, s models.Settings, persisted State, out *State) {
	d := KeyedDiff(persisted.Capabilities.TerminalFilters, s.TerminalFilters, filterKey, nil)
	if run.forced[DomainTerminalFilters] {
		d = d.forceWrite()
	}
	run.cs.TerminalFilters = d
	out.Capabilities.TerminalFilters = d.Final
	if d.Changed() || run.forced[DomainTerminalFilters] {
		run.changed(DomainTerminalFilters, d.Final)
	}
}

// reconcileFlags overwrites plugin flags only when they differ.
func (r *Reconciler) reconcileFlags(run *reconcileRun, s models.Settings, p *models.Printer) bool {
	remote := remoteFlags(s)
	differs := false
	for id, installed := range remote {
		if p.Plugins[id] != installed {
			differs = true
			break
		}
	}
	if !differs && !run.forced[DomainFlags] {
		return false
	}

	if p.Plugins == nil {
		p.Plugins = make(map[string]bool, len(remote))
	}
	for id, installed := range remote {
		p.Plugins[id] = installed
	}
	flags := make(map[string]bool, len(remote))
	for id, installed := range remote {
		flags[id] = installed
	}
	run.changed(DomainFlags, flags)
	return true
}

func (r *Reconciler) reconcileOrientation(run *reconcileRun, s models.Settings, profile models.PrinterProfile, hasProfile bool, p *models.Printer) bool {
	remote := remoteOrientation(s, profile, hasProfile, p.Orientation)
	if remote == p.Orientation && !run.forced[DomainOrientation] {
		return false
	}
	p.Orientation = remote
	run.changed(DomainOrientation, remote)
	return true
}

func (r *Reconciler) reconcilePrinter(run *reconcileRun, s models.Settings, profile models.PrinterProfile, hasProfile bool, p *models.Printer) bool {
	next := *p
	if s.Feature.SDSupport != nil {
		next.SDSupport = *s.Feature.SDSupport
	}
	next.TemperaturePresets = s.Temperature.Profiles
	if s.Appearance.Color != "" {
		next.Color = s.Appearance.Color
	}
	if hasProfile && profile.Extruder.Count > 0 {
		next.ExtruderCount = profile.Extruder.Count
		next.SharedNozzle = profile.Extruder.SharedNozzle
	}

	same := next.SDSupport == p.SDSupport &&
		slices.Equal(next.TemperaturePresets, p.TemperaturePresets) &&
		next.Color == p.Color &&
		next.ExtruderCount == p.ExtruderCount &&
		next.SharedNozzle == p.SharedNozzle
	if same && !run.forced[DomainPrinter] {
		return false
	}

	p.SDSupport = next.SDSupport
	p.TemperaturePresets = next.TemperaturePresets
	p.Color = next.Color
	p.ExtruderCount = next.ExtruderCount
	p.SharedNozzle = next.SharedNozzle
	run.changed(DomainPrinter, clonePrinter(*p))
	return true
}

func cameraKey(c models.Camera) string { return strconv.Itoa(c.Index) }

func inputKey(in models.EnclosureInput) string { return strconv.Itoa(in.IndexID) }

func outputKey(o enclosureOutput) string { return strconv.Itoa(o.IndexID) }

func filterKey(f models.TerminalFilter) string { return f.Name }

func unwrapOutputs(in []enclosureOutput) []models.EnclosureOutput {
	if in == nil {
		return nil
	}
	out := make([]models.EnclosureOutput, len(in))
	for i, o := range in {
		out[i] = o.EnclosureOutput
	}
	return out
}

func clonePrinter(p models.Printer) models.Printer {
	if p.Plugins != nil {
		plugins := make(map[string]bool, len(p.Plugins))
		for k, v := range p.Plugins {
			plugins[k] = v
		}
		p.Plugins = plugins
	}
	p.Migrations = slices.Clone(p.Migrations)
	p.TemperaturePresets = slices.Clone(p.TemperaturePresets)
	return p
}
