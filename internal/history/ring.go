// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package history

import "sync"

// Buffer capacities.
const (
	TemperatureCapacity = 400
	SoCCapacity         = 400
	LogCapacity         = 200
	CommandCapacity     = 15
)

// RingBuffer is a generic, thread-safe, fixed-capacity circular buffer.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	count int
	cap   int
}

// NewRingBuffer creates a new RingBuffer with the given capacity.
// Capacities below 1 are raised to 1.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{
		items: make([]T, capacity),
		cap:   capacity,
	}
}

// Append inserts an item, evicting the oldest when full.
func (r *RingBuffer[T]) Append(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(item)
}

// AppendAll appends items in order under a single lock.
func (r *RingBuffer[T]) AppendAll(items []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.appendLocked(item)
	}
}

func (r *RingBuffer[T]) appendLocked(item T) {
	r.items[r.head] = item
	r.head = (r.head + 1) % r.cap
	if r.count < r.cap {
		r.count++
	}
}

// ReplaceAll discards the contents and keeps the last Cap() items of series.
func (r *RingBuffer[T]) ReplaceAll(series []T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearLocked()
	if len(series) > r.cap {
		series = series[len(series)-r.cap:]
	}
	for _, item := range series {
		r.appendLocked(item)
	}
}

// Clear removes all items.
func (r *RingBuffer[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *RingBuffer[T]) clearLocked() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.count = 0
}

// Len returns the number of items currently in the buffer.
func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return r.cap
}

// All returns all items in order from oldest to newest.
func (r *RingBuffer[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]T, r.count)
	start := 0
	if r.count == r.cap {
		start = r.head
	}
	for i := 0; i < r.count; i++ {
		result[i] = r.items[(start+i)%r.cap]
	}
	return result
}

// Last returns the most recently added item.
func (r *RingBuffer[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.head - 1 + r.cap) % r.cap
	return r.items[idx], true
}
