// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
Package services adapts OctoSync components to suture.Service.

  - SessionService: runs the sync executor and keeps the printer connected,
    disconnecting and draining the executor on shutdown.
  - WebSocketHubService: runs the client hub.
  - HTTPServerService: ListenAndServe with graceful Shutdown.

Return values follow suture semantics: an error restarts the service,
ctx.Err() is a normal stop.
*/
package services
