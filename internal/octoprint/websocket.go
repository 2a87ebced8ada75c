// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package octoprint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
)

// PushPath is OctoPrint's raw SockJS websocket endpoint.
const PushPath = "/sockjs/websocket"

const writeTimeout = 10 * time.Second

// ErrChannelClosed is returned by Send after Close or before the channel opened.
var ErrChannelClosed = errors.New("push channel not open")

// ChannelHandler receives channel lifecycle callbacks. Callbacks run on the
// channel's own goroutine and must not block. Any field may be nil.
type ChannelHandler struct {
	OnOpen  func()
	OnText  func(data []byte)
	OnError func(err error)
	OnClose func(code int, reason string)
}

// WebSocketConfig configures a WebSocketChannel.
type WebSocketConfig struct {
	BaseURL     string
	DialTimeout time.Duration
	// ReadTimeout is the longest silence tolerated before the channel errors.
	ReadTimeout time.Duration
}

// WebSocketChannel is a single-use push channel. Each Connect/Close pair owns
// one connection; reconnecting means creating a new channel.
//
// After Close no further callbacks are delivered.
type WebSocketChannel struct {
	url     string
	cfg     WebSocketConfig
	handler ChannelHandler

	conn    *websocket.Conn
	connMu  sync.Mutex
	writeMu sync.Mutex

	started  bool
	closed   bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewWebSocketChannel prepares a channel for cfg.BaseURL. It does not dial.
func NewWebSocketChannel(cfg WebSocketConfig, handler ChannelHandler) (*WebSocketChannel, error) {
	wsURL, err := buildPushURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	return &WebSocketChannel{
		url:      wsURL,
		cfg:      cfg,
		handler:  handler,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// buildPushURL converts http(s)://host/prefix to ws(s)://host/prefix/sockjs/websocket.
func buildPushURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base url: %w", err)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("base url %q has no host", baseURL)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + PushPath
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

// URL returns the websocket URL the channel dials.
func (c *WebSocketChannel) URL() string {
	return c.url
}

// Connect dials in the background and reports OnOpen or OnError.
// Calls after the first are ignored.
func (c *WebSocketChannel) Connect() {
	c.connMu.Lock()
	if c.started || c.closed {
		c.connMu.Unlock()
		return
	}
	c.started = true
	c.connMu.Unlock()

	go c.run()
}

func (c *WebSocketChannel) run() {
	defer close(c.done)

	conn, err := c.dial()
	if err != nil {
		if !c.isClosed() {
			c.emitError(err)
		}
		return
	}

	c.connMu.Lock()
	if c.closed {
		c.connMu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connMu.Unlock()

	logging.Debug().Str("url", logging.SanitizeURL(c.url)).Msg("OctoPrint push channel open")
	if c.handler.OnOpen != nil {
		c.handler.OnOpen()
	}

	c.listen(conn)
}

func (c *WebSocketChannel) dial() (*websocket.Conn, error) {
	const op = "dial push channel"

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()
	go func() {
		select {
		case <-c.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	dialer := websocket.Dialer{
		HandshakeTimeout:  c.cfg.DialTimeout,
		EnableCompression: true,
		Proxy:             http.ProxyFromEnvironment,
	}

	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			if kind, failed := models.KindForStatus(resp.StatusCode); failed {
				return nil, models.NewError(kind, op, resp.StatusCode, err)
			}
			return nil, models.NewError(models.KindTransport, op, resp.StatusCode, err)
		}
		return nil, models.NewError(models.KindTransport, op, 0, err)
	}
	return conn, nil
}

// listen reads until the connection fails or is closed.
func (c *WebSocketChannel) listen(conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			logging.Debug().Err(err).Msg("Push channel: failed to set read deadline")
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if c.handler.OnClose != nil {
					c.handler.OnClose(closeErr.Code, closeErr.Text)
				}
				return
			}
			c.emitError(models.NewError(models.KindTransport, "read push channel", 0, err))
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}
		if c.isClosed() {
			return
		}
		if c.handler.OnText != nil {
			c.handler.OnText(data)
		}
	}
}

func (c *WebSocketChannel) emitError(err error) {
	if c.handler.OnError != nil {
		c.handler.OnError(err)
	}
}

func (c *WebSocketChannel) isClosed() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.closed
}

// Send writes a text frame.
func (c *WebSocketChannel) Send(data []byte) error {
	c.connMu.Lock()
	conn := c.conn
	closed := c.closed
	c.connMu.Unlock()
	if conn == nil || closed {
		return ErrChannelClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return models.NewError(models.KindTransport, "write push channel", 0, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return models.NewError(models.KindTransport, "write push channel", 0, err)
	}
	return nil
}

// Close shuts the channel. It is safe to call more than once and from
// within a callback.
func (c *WebSocketChannel) Close() {
	c.connMu.Lock()
	if c.closed {
		c.connMu.Unlock()
		return
	}
	c.closed = true
	close(c.stopChan)
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn == nil {
		return
	}

	c.writeMu.Lock()
	if err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(1*time.Second),
	); err != nil {
		logging.Debug().Err(err).Msg("Push channel: failed to send close message")
	}
	c.writeMu.Unlock()

	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Push channel: failed to close connection")
	}
}

// Done is closed when the channel's goroutine has exited. It never closes
// for a channel that was not connected.
func (c *WebSocketChannel) Done() <-chan struct{} {
	return c.done
}
