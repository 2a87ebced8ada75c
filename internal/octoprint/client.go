// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package octoprint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/config"
	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/metrics"
	"github.com/tomtom215/octosync/internal/models"
)

// maxResponseBody caps how much of a response body is read.
const maxResponseBody = 16 << 20

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the OctoPrint root, e.g. http://octopi.local or
	// https://proxy.example.com/octoprint.
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Name labels the circuit breaker and its metrics.
	Name    string
	Breaker config.BreakerConfig
}

// Client is an authenticated OctoPrint HTTP transport.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuitBreaker
}

// NewClient creates a client for one OctoPrint server.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	name := cfg.Name
	if name == "" {
		name = "octoprint-api"
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: newCircuitBreaker(name, cfg.Breaker),
	}
}

// BaseURL returns the server root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes req through the circuit breaker.
func (c *Client) Do(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := c.breaker.execute(req.Op(), func() Response {
		return c.do(ctx, req)
	})
	metrics.RecordRESTRequest(req.Method, endpointLabel(req.Path), resp.Status, time.Since(start))
	return resp
}

func (c *Client) do(ctx context.Context, cfg Request) Response {
	op := cfg.Op()

	var body io.Reader = http.NoBody
	if cfg.Body != nil {
		payload, err := json.Marshal(cfg.Body)
		if err != nil {
			return Response{Err: models.NewError(models.KindProtocol, op, 0, fmt.Errorf("failed to encode request body: %w", err))}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, c.baseURL+cfg.Path, body)
	if err != nil {
		return Response{Err: models.NewError(models.KindTransport, op, 0, fmt.Errorf("failed to create request: %w", err))}
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if cfg.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Debug().Str("op", op).Str("url", logging.SanitizeURL(c.baseURL)).Err(err).Msg("OctoPrint request failed")
		return Response{Err: models.NewError(models.KindTransport, op, 0, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{Status: resp.StatusCode, Err: models.NewError(models.KindTransport, op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))}
	}
	return Response{Status: resp.StatusCode, Body: data}
}

// endpointLabel strips the query so metric cardinality stays bounded.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// BreakerState reports the circuit breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}
