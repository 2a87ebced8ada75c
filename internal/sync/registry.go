// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package sync

import (
	"sync"

	"github.com/google/uuid"
)

// Handle identifies a subscription. It stays valid until Unsubscribe.
type Handle string

func newHandle() Handle {
	return Handle(uuid.NewString())
}

// registry is a set of subscribers keyed by handle. Delivery order is unspecified.
type registry[T any] struct {
	mu   sync.RWMutex
	subs map[Handle]func(T)
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{subs: make(map[Handle]func(T))}
}

func (r *registry[T]) add(h Handle, fn func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[h] = fn
}

func (r *registry[T]) remove(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[h]; !ok {
		return false
	}
	delete(r.subs, h)
	return true
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// notify calls every subscriber with v. Subscribers may unsubscribe from
// within the callback.
func (r *registry[T]) notify(v T) {
	r.mu.RLock()
	fns := make([]func(T), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}
