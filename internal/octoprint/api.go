// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package octoprint

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/parser"
)

// OctoPrint REST endpoints.
const (
	PathLogin           = "/api/login"
	PathPrinter         = "/api/printer"
	PathPrinterCommand  = "/api/printer/command"
	PathSettings        = "/api/settings"
	PathPrinterProfiles = "/api/printerprofiles"
	PathConnection      = "/api/connection"
	PathVersion         = "/api/version"
)

// historyLimit matches the temperature history capacity.
const historyLimit = 400

// API provides typed OctoPrint REST calls over a Doer.
type API struct {
	t Doer
}

// NewAPI wraps t.
func NewAPI(t Doer) *API {
	return &API{t: t}
}

// call executes req and returns the body of a 2xx response or a classified error.
func (a *API) call(ctx context.Context, req Request) ([]byte, error) {
	resp := a.t.Do(ctx, req)
	if err := resp.Error(req.Op()); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Login performs a passive login, which reuses the API key for a session.
func (a *API) Login(ctx context.Context) (models.Session, error) {
	body, err := a.call(ctx, Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   map[string]bool{"passive": true},
	})
	if err != nil {
		return models.Session{}, err
	}
	return parser.ParseSession(body)
}

// PrinterState fetches the baseline snapshot and the server's temperature history.
// A 409 is returned as a models.KindNotOperational error.
func (a *API) PrinterState(ctx context.Context, now time.Time) (models.StateSnapshot, []models.TemperatureSample, error) {
	body, err := a.call(ctx, Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("%s?history=true&limit=%d", PathPrinter, historyLimit),
	})
	if err != nil {
		return models.StateSnapshot{}, nil, err
	}
	return parser.ParsePrinterState(body, now)
}

// Settings fetches /api/settings.
func (a *API) Settings(ctx context.Context) (models.Settings, error) {
	body, err := a.call(ctx, Request{Method: http.MethodGet, Path: PathSettings})
	if err != nil {
		return models.Settings{}, err
	}
	return parser.ParseSettings(body)
}

// PrinterProfiles fetches all printer profiles and the connection's active
// profile ID, so ActiveProfile resolves the profile actually in use.
func (a *API) PrinterProfiles(ctx context.Context) (models.PrinterProfiles, error) {
	body, err := a.call(ctx, Request{Method: http.MethodGet, Path: PathPrinterProfiles})
	if err != nil {
		return models.PrinterProfiles{}, err
	}
	profiles, err := parser.ParsePrinterProfiles(body)
	if err != nil {
		return models.PrinterProfiles{}, err
	}

	current, err := a.Connection(ctx)
	if err != nil {
		// Profiles are still usable through their current/default flags.
		return profiles, nil
	}
	profiles.Current = &current
	return profiles, nil
}

// Connection fetches the serial connection state.
func (a *API) Connection(ctx context.Context) (models.ConnectionCurrent, error) {
	body, err := a.call(ctx, Request{Method: http.MethodGet, Path: PathConnection})
	if err != nil {
		return models.ConnectionCurrent{}, err
	}
	return parser.ParseConnection(body)
}

// Version fetches /api/version.
func (a *API) Version(ctx context.Context) (models.VersionInfo, error) {
	body, err := a.call(ctx, Request{Method: http.MethodGet, Path: PathVersion})
	if err != nil {
		return models.VersionInfo{}, err
	}
	return parser.ParseVersion(body)
}

// SendCommands posts G-code commands to the printer.
func (a *API) SendCommands(ctx context.Context, commands ...string) error {
	if len(commands) == 0 {
		return nil
	}
	_, err := a.call(ctx, Request{
		Method: http.MethodPost,
		Path:   PathPrinterCommand,
		Body:   map[string][]string{"commands": commands},
	})
	return err
}
