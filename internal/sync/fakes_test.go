// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package sync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/octoprint"
)

// ========================================
// Push channel fakes
// ========================================

type fakeChannels struct {
	mu       sync.Mutex
	opened   []*fakeChannel
	failOpen bool
}

func (f *fakeChannels) factory(target Target, handler octoprint.ChannelHandler) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &fakeChannel{owner: f, target: target, handler: handler}
	f.opened = append(f.opened, ch)
	return ch, nil
}

func (f *fakeChannels) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

func (f *fakeChannels) last() *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opened) == 0 {
		return nil
	}
	return f.opened[len(f.opened)-1]
}

type fakeChannel struct {
	owner   *fakeChannels
	target  Target
	handler octoprint.ChannelHandler

	mu     sync.Mutex
	sent   []string
	closed bool
}

func (c *fakeChannel) Connect() {
	c.owner.mu.Lock()
	fail := c.owner.failOpen
	c.owner.mu.Unlock()
	if fail {
		c.handler.OnError(models.NewError(models.KindTransport, "dial push channel", 0, errors.New("connection refused")))
	}
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return octoprint.ErrChannelClosed
	}
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeChannel) open() { c.handler.OnOpen() }

func (c *fakeChannel) push(frame string) { c.handler.OnText([]byte(frame)) }

func (c *fakeChannel) fail() {
	c.handler.OnError(models.NewError(models.KindTransport, "read push channel", 0, errors.New("connection reset")))
}

func (c *fakeChannel) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ========================================
// REST transport fake
// ========================================

type fakeTransport struct {
	mu       sync.Mutex
	routes   map[string]func() octoprint.Response
	requests []octoprint.Request
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: make(map[string]func() octoprint.Response)}
}

// handle registers a JSON response for "METHOD /path" (query ignored).
func (f *fakeTransport) handle(route string, status int, body string) {
	f.handleFunc(route, func() octoprint.Response {
		return octoprint.Response{Status: status, Body: []byte(body)}
	})
}

func (f *fakeTransport) handleFunc(route string, fn func() octoprint.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = fn
}

func (f *fakeTransport) Do(_ context.Context, req octoprint.Request) octoprint.Response {
	path := req.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fn := f.routes[req.Method+" "+path]
	f.mu.Unlock()

	if fn == nil {
		return octoprint.Response{Status: 404, Body: []byte("not found")}
	}
	return fn()
}

func (f *fakeTransport) calls(route string) []octoprint.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []octoprint.Request
	for _, r := range f.requests {
		path := r.Path
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if r.Method+" "+path == route {
			out = append(out, r)
		}
	}
	return out
}

// ========================================
// Helpers
// ========================================

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// recorder collects values delivered to a subscriber.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}
