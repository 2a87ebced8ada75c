// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

// Package main is the entry point for the OctoSync daemon.
//
// OctoSync keeps a live, persisted mirror of one OctoPrint server: printer
// state, temperature and terminal history, capabilities reconciled from the
// server's settings, and plugin messages. The mirror is served over a small
// REST API and relayed to browser clients over a websocket.
//
// # Startup Order
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Store (badger) and the credential encryptor
//  3. Printer record for the configured server
//  4. Sync manager with the OctoPrint REST client and push channel factory
//  5. WebSocket hub and relay
//  6. HTTP API
//  7. Supervisor tree
//
// # Example Usage
//
//	export OCTOPRINT_URL=http://octopi.local
//	export OCTOPRINT_API_KEY=your-api-key
//	export ENCRYPTION_SECRET=$(openssl rand -base64 32)
//	./octosync
//
// SIGINT and SIGTERM stop the tree: the printer session disconnects, the
// websocket clients are closed and in-flight requests drain.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/octosync/internal/api"
	"github.com/tomtom215/octosync/internal/config"
	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/octoprint"
	"github.com/tomtom215/octosync/internal/reconcile"
	"github.com/tomtom215/octosync/internal/store"
	"github.com/tomtom215/octosync/internal/supervisor"
	"github.com/tomtom215/octosync/internal/supervisor/services"
	statesync "github.com/tomtom215/octosync/internal/sync"
	ws "github.com/tomtom215/octosync/internal/websocket"
)

// sessionDrainTimeout bounds how long shutdown waits for the executor to
// run the disconnect.
const sessionDrainTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	logging.Info().
		Str("octoprint_url", logging.SanitizeURL(cfg.OctoPrint.URL)).
		Str("store_path", cfg.Store.Path).
		Bool("store_in_memory", cfg.Store.InMemory).
		Msg("Starting OctoSync")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("OctoSync stopped with error")
	}
	logging.Info().Msg("OctoSync stopped")
}

func run(cfg *config.Config) error {
	db, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	encryptor, err := config.NewCredentialEncryptor(cfg.Security.EncryptionSecret)
	if err != nil {
		return fmt.Errorf("failed to create credential encryptor: %w", err)
	}
	printers := store.NewPrinterStore(store.NewBadgerRepository(db), encryptor)

	printer, err := loadPrinter(context.Background(), printers, cfg)
	if err != nil {
		return err
	}
	logging.Info().Str("printer_id", printer.ID).Str("name", printer.Name).Msg("Printer record ready")

	exec := statesync.NewQueueExecutor()
	manager := statesync.NewManager(
		statesync.ManagerConfig{
			Connection: statesync.ConnectionConfig{
				HeartbeatInterval: cfg.Connection.HeartbeatInterval,
				RetryBaseDelay:    cfg.Connection.RetryBaseDelay,
				MaxRetries:        cfg.Connection.MaxRetries,
				LoginTimeout:      cfg.Connection.RequestTimeout,
			},
			RequestTimeout: cfg.Connection.RequestTimeout,
		},
		exec,
		statesync.RealClock(),
		printers,
		reconcile.NewDefault(),
		transportFactory(cfg),
		statesync.WebSocketChannels(cfg.Connection.DialTimeout, cfg.Connection.ReadTimeout),
	)

	wsHub := ws.NewHub()
	relay := ws.NewRelay(wsHub, manager, ws.DefaultRelayPlugins...)

	handler := api.NewHandler(manager, printers, wsHub, api.HandlerConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		CommandTimeout: cfg.Connection.RequestTimeout,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		RateLimitDisabled: cfg.Server.RateLimitRequests == 0,
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}
	tree.AddSessionService(services.NewSessionService(exec, manager, printer, sessionDrainTimeout))
	tree.AddSessionService(services.NewWebSocketHubService(wsHub))
	tree.AddSessionService(relay)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Serving OctoSync API")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop before timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree failed: %w", err)
	}
	return nil
}

// loadPrinter returns the persisted record for the configured server,
// refreshing its connection fields, or creates one.
func loadPrinter(ctx context.Context, printers *store.PrinterStore, cfg *config.Config) (models.Printer, error) {
	id := cfg.ResolvedPrinterID()

	printer, err := printers.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		printer = models.Printer{ID: id}
	case err != nil:
		return models.Printer{}, fmt.Errorf("failed to load printer %s: %w", id, err)
	}

	printer.Name = cfg.OctoPrint.Name
	printer.BaseURL = cfg.OctoPrint.URL
	printer.APIKey = cfg.OctoPrint.APIKey

	if err := printers.Save(ctx, printer); err != nil {
		return models.Printer{}, fmt.Errorf("failed to save printer %s: %w", id, err)
	}
	return printer, nil
}

func transportFactory(cfg *config.Config) statesync.TransportFactory {
	return func(p models.Printer) statesync.Transport {
		return octoprint.NewClient(octoprint.ClientConfig{
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Timeout: cfg.Connection.RequestTimeout,
			Name:    "octoprint-" + p.ID,
			Breaker: cfg.Breaker,
		})
	}
}
