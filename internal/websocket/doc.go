// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package websocket relays canonical printer state to local WebSocket clients.

A Relay subscribes to the state synchronizer and turns every notification into
a typed message; the Hub fans those messages out to connected clients using
gorilla/websocket.

Key Components:

  - Hub: Registers clients and broadcasts messages in client ID order
  - Client: One WebSocket connection with read and write pumps
  - Relay: State subscriber that feeds the hub

Architecture:

	sync.Manager ──notify──▶ Relay ──Broadcast──▶ Hub ──▶ Client1
	                                                 ├──▶ Client2
	                                                 └──▶ Client3

Message Types:

  - state: A new StateSnapshot (push frame or REST baseline)
  - connection: Connection lifecycle event or failure
  - capabilities: One reconciled capability domain with its final state
  - plugin: A plugin push message, decoded for cancel-object, relay and smart
    plug plugins
  - ping/pong: Client keepalive

New clients first receive the current connection state and snapshot.

Usage Example:

	hub := websocket.NewHub()
	relay := websocket.NewRelay(hub, manager)
	go hub.RunWithContext(ctx)
	go relay.Serve(ctx)

Thread Safety:

Broadcast never blocks, so relay callbacks are safe to run on the
synchronizer's executor. A client whose send buffer is full is dropped.
*/
package websocket
