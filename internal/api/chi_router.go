// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil middleware uses the defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// WebSocket Relay
	// ========================
	// Kept out of the metrics group; upgraded connections outlive the request.
	r.Route("/api/v1/ws", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket))
		r.Get("/", router.handler.WebSocket)
	})

	// ========================
	// Core API Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics())

		r.Get("/state", router.handler.State)
		r.Get("/version", router.handler.Version)
		r.Get("/temperatures", router.handler.Temperatures)
		r.Get("/temperatures/soc", router.handler.SoCTemperatures)

		r.Get("/terminal", router.handler.Terminal)
		r.Get("/terminal/filters", router.handler.Filters)
		r.Put("/terminal/filters", router.handler.SetFilters)

		r.Get("/commands", router.handler.Commands)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitCommands)).Post("/commands", router.handler.SendCommand)

		r.Get("/printers", router.handler.ListPrinters)
		r.Get("/printers/{printerID}", router.handler.GetPrinter)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitConnect))
			r.Post("/printers/{printerID}/connect", router.handler.Connect)
			r.Post("/disconnect", router.handler.Disconnect)
		})
	})

	return r
}
