// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package reconcile

// Diff is the keyed difference between persisted and remote records.
type Diff[T comparable] struct {
	Create []T
	Update []T
	Delete []T
	// Final is the reconciled set in remote order.
	Final []T
}

// Changed reports whether any record must be written or removed.
func (d Diff[T]) Changed() bool {
	return len(d.Create) > 0 || len(d.Update) > 0 || len(d.Delete) > 0
}

// KeyedDiff computes creates, in-place updates and deletes so that persisted
// becomes remote. Records for which hidden returns true are ignored on both
// sides. When remote repeats a key, the first record wins.
func KeyedDiff[T comparable](persisted, remote []T, key func(T) string, hidden func(T) bool) Diff[T] {
	visible := func(v T) bool { return hidden == nil || !hidden(v) }

	local := make(map[string]T, len(persisted))
	for _, p := range persisted {
		if visible(p) {
			local[key(p)] = p
		}
	}

	var d Diff[T]
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		if !visible(r) {
			continue
		}
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		d.Final = append(d.Final, r)

		existing, ok := local[k]
		switch {
		case !ok:
			d.Create = append(d.Create, r)
		case existing != r:
			d.Update = append(d.Update, r)
		}
	}

	for _, p := range persisted {
		if visible(p) && !seen[key(p)] {
			d.Delete = append(d.Delete, p)
		}
	}
	return d
}

// forceWrite rewrites every final record. Deletes are kept.
func (d Diff[T]) forceWrite() Diff[T] {
	d.Update = append([]T(nil), d.Final...)
	d.Create = nil
	return d
}
