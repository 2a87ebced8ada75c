// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package history

import "sync"

// CommandHistory keeps unique commands, most recent first.
type CommandHistory struct {
	mu       sync.RWMutex
	items    []string
	capacity int
}

// NewCommandHistory creates a history holding at most capacity commands.
func NewCommandHistory(capacity int) *CommandHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandHistory{capacity: capacity, items: make([]string, 0, capacity)}
}

// Add moves cmd to the front, removing any earlier occurrence, and trims
// the oldest entries beyond capacity.
func (h *CommandHistory) Add(cmd string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(cmd)
}

func (h *CommandHistory) addLocked(cmd string) {
	for i, existing := range h.items {
		if existing == cmd {
			h.items = append(h.items[:i], h.items[i+1:]...)
			break
		}
	}

	h.items = append(h.items, "")
	copy(h.items[1:], h.items)
	h.items[0] = cmd

	if len(h.items) > h.capacity {
		h.items = h.items[:h.capacity]
	}
}

// Replace sets the history from a persisted list, most recent first.
func (h *CommandHistory) Replace(cmds []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = h.items[:0]
	for i := len(cmds) - 1; i >= 0; i-- {
		h.addLocked(cmds[i])
	}
}

// All returns a copy of the commands, most recent first.
func (h *CommandHistory) All() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.items))
	copy(out, h.items)
	return out
}

// Len returns the number of stored commands.
func (h *CommandHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}
