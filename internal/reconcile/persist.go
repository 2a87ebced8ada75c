// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package reconcile

import (
	"context"
	"fmt"

	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/store"
)

// Persist writes the changed capability records of cs. Unchanged records are
// not touched. The printer record is saved by the caller when cs.PrinterDirty
// is set, since it carries an encrypted credential.
func Persist(ctx context.Context, repo store.Repository, printerID string, cs ChangeSet) error {
	if err := applyDiff(ctx, repo, cs.Cameras, func(c models.Camera) string {
		return store.CapabilityKey(printerID, store.DomainCameras, store.IndexKey(c.Index))
	}); err != nil {
		return fmt.Errorf("failed to persist cameras: %w", err)
	}

	if err := applyDiff(ctx, repo, cs.EnclosureInputs, func(in models.EnclosureInput) string {
		return store.CapabilityKey(printerID, store.DomainEnclosureInputs, store.IndexKey(in.IndexID))
	}); err != nil {
		return fmt.Errorf("failed to persist enclosure inputs: %w", err)
	}

	if err := applyDiff(ctx, repo, cs.EnclosureOutputs, func(o models.EnclosureOutput) string {
		return store.CapabilityKey(printerID, store.DomainEnclosureOutputs, store.IndexKey(o.IndexID))
	}); err != nil {
		return fmt.Errorf("failed to persist enclosure outputs: %w", err)
	}

	for plugin, d := range cs.Plugs {
		if err := applyDiff(ctx, repo, d, func(p models.SmartPlug) string {
			return store.PlugKey(printerID, plugin, p.Key())
		}); err != nil {
			return fmt.Errorf("failed to persist %s plugs: %w", plugin, err)
		}
	}

	if err := applyDiff(ctx, repo, cs.TerminalFilters, func(f models.TerminalFilter) string {
		return store.CapabilityKey(printerID, store.DomainTerminalFilters, f.Name)
	}); err != nil {
		return fmt.Errorf("failed to persist terminal filters: %w", err)
	}
	return nil
}

func applyDiff[T comparable](ctx context.Context, repo store.Repository, d Diff[T], key func(T) string) error {
	for _, v := range d.Delete {
		if err := repo.Delete(ctx, key(v)); err != nil {
			return err
		}
	}
	for _, set := range [][]T{d.Create, d.Update} {
		for _, v := range set {
			if err := store.PutJSON(ctx, repo, key(v), v); err != nil {
				return err
			}
		}
	}
	return nil
}
