// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package sync keeps a live session to one OctoPrint server and owns the
canonical printer state.

Key Components:

  - Connection: push channel supervisor with heartbeat, linear retry and
    the passive-login auth handshake on every open
  - Manager: merges the REST baseline with push frames, maintains the
    temperature, SoC, terminal and command histories, runs capability
    reconciliation and fans out to subscribers
  - QueueExecutor: the single logical executor all mutations run on
  - Clock: injected time source; FakeClock drives timers in tests

Architecture:

	octoprint.WebSocketChannel --frames--> Connection --OnText--> Manager
	octoprint.Client <--REST-- Manager --Notify--> subscribers
	                           Manager --Reconcile--> reconcile / store

Channel callbacks and REST continuations are posted to the executor. Each is
tagged with a generation; work for a superseded channel or connect is
dropped. Baseline and push are not ordered: the last write wins.

Usage Example:

	exec := sync.NewQueueExecutor()
	go exec.Serve(ctx)

	m := sync.NewManager(cfg, exec, sync.RealClock(), printers,
	    reconcile.NewDefault(), transports, sync.WebSocketChannels(10*time.Second, time.Minute))
	m.SubscribeState(func(s models.StateSnapshot) { ... })
	if err := m.ConnectToServer(printer); err != nil {
	    return err
	}

Thread Safety:

Manager read methods and Subscribe/Unsubscribe are safe from any goroutine.
Subscriber callbacks run on the executor and must not block.
*/
package sync
