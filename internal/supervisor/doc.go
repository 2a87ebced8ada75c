// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package supervisor provides process supervision for OctoSync using suture v4.

The tree has two layers:

	RootSupervisor ("octosync")
	├── SessionSupervisor ("session-layer")
	│   ├── SessionService (sync executor + printer session)
	│   ├── WebSocketHubService
	│   └── websocket.Relay
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A session crash restarts the executor and reconnects the printer while the
API keeps answering with the last known state. Supervisor events are logged
through sutureslog, which needs an *slog.Logger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    return err
	}
	tree.AddSessionService(services.NewSessionService(exec, manager, printer, 5*time.Second))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))
	return tree.Serve(ctx)
*/
package supervisor
