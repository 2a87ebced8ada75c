// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package octoprint talks to an OctoPrint server.

It provides three pieces:

  - Client: an HTTP transport that authenticates with X-Api-Key and runs
    every request through a gobreaker circuit breaker
  - API: typed REST calls (passive login, printer state, settings, printer
    profiles, connection, version, commands) on top of any Doer
  - WebSocketChannel: the push channel at /sockjs/websocket, built on
    gorilla/websocket

The channel never reconnects by itself. Reconnection policy belongs to the
connection supervisor in package sync.

Failures are classified with models.ErrorKind: HTTP 401/403 is an
authentication error, 409 means the printer is not operational, 600-699 are
tunnel errors from remote access proxies, other 4xx are protocol errors and
everything else is a transport error.
*/
package octoprint
