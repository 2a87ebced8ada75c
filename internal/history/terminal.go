// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package history

import "sync"

// Terminal holds raw terminal lines and the view left after filtering.
//
// The filtered buffer is only maintained while a non-empty FilterSet is
// active. It has the same capacity as the raw buffer.
type Terminal struct {
	mu       sync.RWMutex
	raw      *RingBuffer[string]
	filtered *RingBuffer[string]
	filters  *FilterSet
}

// NewTerminal creates a terminal with capacity lines per buffer.
func NewTerminal(capacity int) *Terminal {
	return &Terminal{
		raw:      NewRingBuffer[string](capacity),
		filtered: NewRingBuffer[string](capacity),
	}
}

// Append records a batch of log lines.
func (t *Terminal) Append(lines []string) {
	if len(lines) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.raw.AppendAll(lines)
	if t.filters.Empty() {
		return
	}
	for _, line := range lines {
		if !t.filters.Match(line) {
			t.filtered.Append(line)
		}
	}
}

// SetFilters replaces the active rules. An empty set clears the filtered
// buffer; otherwise it is rebuilt from the raw buffer.
func (t *Terminal) SetFilters(fs *FilterSet) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.filters = fs
	t.filtered.Clear()
	if fs.Empty() {
		return
	}

	kept := make([]string, 0, t.raw.Len())
	for _, line := range t.raw.All() {
		if !fs.Match(line) {
			kept = append(kept, line)
		}
	}
	t.filtered.ReplaceAll(kept)
}

// Filters returns the active rule set, possibly nil.
func (t *Terminal) Filters() *FilterSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filters
}

// Reset clears both buffers. Active filters are kept.
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw.Clear()
	t.filtered.Clear()
}

// Raw returns the unfiltered lines, oldest first.
func (t *Terminal) Raw() []string {
	return t.raw.All()
}

// Filtered returns the filtered lines, oldest first. It is empty while no
// filters are active.
func (t *Terminal) Filtered() []string {
	return t.filtered.All()
}

// Lines returns what a viewer should display: the filtered view while
// filters are active, the raw buffer otherwise.
func (t *Terminal) Lines() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.filters.Empty() {
		return t.raw.All()
	}
	return t.filtered.All()
}
