// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

/*
connection.go - Push Channel Supervisor

Connection owns the lifecycle of one push channel to one OctoPrint server:

	Idle -> Connecting -> Connected -> (Retrying <-> Connecting) -> Failed
	Connected -> Idle on Close

Reconnects are linear (attempt x base) and bounded by MaxRetries. After every
open the session is re-authenticated with a passive REST login followed by an
auth frame on the channel. Channel callbacks arrive on the channel's own
goroutines; they are posted to the executor and tagged with the channel
generation so callbacks from a superseded channel are dropped.

Every method except State must be called on the executor.
*/

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/metrics"
	"github.com/tomtom215/octosync/internal/models"
	"github.com/tomtom215/octosync/internal/octoprint"
)

// ConnState is the supervisor lifecycle state.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateRetrying
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// heartbeatFrame is the keep-alive sent while connected.
var heartbeatFrame = []byte("{}")

// Channel is a single-use push channel.
type Channel interface {
	Connect()
	Send(data []byte) error
	Close()
}

// Target identifies the server a Connection talks to.
type Target struct {
	BaseURL string
	APIKey  string
}

// ChannelFactory creates an unopened channel to target.
type ChannelFactory func(target Target, handler octoprint.ChannelHandler) (Channel, error)

// LoginFunc performs the passive REST login for target.
type LoginFunc func(ctx context.Context, target Target) (models.Session, error)

// WebSocketChannels returns a ChannelFactory backed by octoprint.WebSocketChannel.
func WebSocketChannels(dialTimeout, readTimeout time.Duration) ChannelFactory {
	return func(target Target, handler octoprint.ChannelHandler) (Channel, error) {
		return octoprint.NewWebSocketChannel(octoprint.WebSocketConfig{
			BaseURL:     target.BaseURL,
			DialTimeout: dialTimeout,
			ReadTimeout: readTimeout,
		}, handler)
	}
}

// ConnectionConfig tunes heartbeat and retry behavior.
type ConnectionConfig struct {
	HeartbeatInterval time.Duration
	RetryBaseDelay    time.Duration
	MaxRetries        int
	LoginTimeout      time.Duration
}

// ConnectionHandler receives supervisor events on the executor. Any field may be nil.
type ConnectionHandler struct {
	OnState         func(state ConnState)
	OnText          func(data []byte)
	OnAuthenticated func(session models.Session)
	// OnFailed is called for every channel failure. terminal is true exactly
	// once per Connect, when the supervisor gives up.
	OnFailed func(err error, terminal bool)
}

// Connection supervises the push channel.
type Connection struct {
	exec       Executor
	clock      Clock
	cfg        ConnectionConfig
	newChannel ChannelFactory
	login      LoginFunc
	handler    ConnectionHandler

	state          atomic.Int32
	target         Target
	channel        Channel
	generation     uint64
	retries        int
	closedByCaller bool
	heartbeat      Timer
	reconnect      Timer
}

// NewConnection creates an idle supervisor.
func NewConnection(exec Executor, clock Clock, cfg ConnectionConfig, newChannel ChannelFactory, login LoginFunc, handler ConnectionHandler) *Connection {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 40 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 30 * time.Second
	}
	return &Connection{
		exec:       exec,
		clock:      clock,
		cfg:        cfg,
		newChannel: newChannel,
		login:      login,
		handler:    handler,
	}
}

// State returns the current state. Safe from any goroutine.
func (c *Connection) State() ConnState {
	return ConnState(c.state.Load())
}

// Target returns the current target.
func (c *Connection) Target() Target {
	return c.target
}

// Retries returns the number of reconnect attempts since the last open.
func (c *Connection) Retries() int {
	return c.retries
}

// Connect opens a channel to target. It is a no-op while a connect to the
// same target is in flight.
func (c *Connection) Connect(target Target) {
	if c.State() == StateConnecting && c.target == target {
		return
	}

	c.teardown()
	c.target = target
	c.retries = 0
	c.closedByCaller = false
	c.open()
}

// Close stops the supervisor. Later channel errors do not trigger a retry.
func (c *Connection) Close() {
	c.closedByCaller = true
	c.teardown()
	if c.State() != StateIdle {
		logging.Info().Str("url", logging.SanitizeURL(c.target.BaseURL)).Msg("Push channel closed by caller")
	}
	c.setState(StateIdle)
}

// Reauthenticate repeats the login handshake on the open channel.
func (c *Connection) Reauthenticate() {
	if c.State() != StateConnected {
		return
	}
	c.authenticate(c.generation)
}

// teardown stops timers, drops the channel and invalidates its callbacks.
func (c *Connection) teardown() {
	c.stopHeartbeat()
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.generation++
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

func (c *Connection) open() {
	c.generation++
	gen := c.generation
	c.setState(StateConnecting)

	ch, err := c.newChannel(c.target, octoprint.ChannelHandler{
		OnOpen: func() {
			c.post(gen, c.handleOpen)
		},
		OnText: func(data []byte) {
			c.post(gen, func() {
				if c.handler.OnText != nil {
					c.handler.OnText(data)
				}
			})
		},
		OnError: func(err error) {
			c.post(gen, func() { c.handleFailure(err) })
		},
		OnClose: func(code int, reason string) {
			c.post(gen, func() {
				c.handleFailure(models.NewError(models.KindTransport, "push channel", 0,
					fmt.Errorf("closed by server (code %d): %s", code, reason)))
			})
		},
	})
	if err != nil {
		c.handleFailure(err)
		return
	}
	c.channel = ch
	logging.Info().Str("url", logging.SanitizeURL(c.target.BaseURL)).Int("attempt", c.retries).Msg("Opening push channel")
	ch.Connect()
}

// post runs fn on the executor unless the channel generation moved on.
func (c *Connection) post(gen uint64, fn func()) {
	c.exec.Post(func() {
		if gen != c.generation {
			metrics.FramesDropped.WithLabelValues("stale").Inc()
			return
		}
		fn()
	})
}

func (c *Connection) handleOpen() {
	c.retries = 0
	c.closedByCaller = false
	c.setState(StateConnected)
	logging.Info().Str("url", logging.SanitizeURL(c.target.BaseURL)).Msg("Push channel connected")

	c.startHeartbeat()
	c.authenticate(c.generation)
}

// handleFailure retries with linear backoff until MaxRetries is reached.
func (c *Connection) handleFailure(err error) {
	if c.closedByCaller {
		return
	}

	kind := models.KindOf(err)
	metrics.ConnectionFailures.WithLabelValues(kind.String()).Inc()

	c.stopHeartbeat()
	c.generation++
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}

	if kind == models.KindAuthentication || c.retries >= c.cfg.MaxRetries {
		c.setState(StateFailed)
		logging.Error().Err(err).Int("attempts", c.retries).Str("url", logging.SanitizeURL(c.target.BaseURL)).Msg("Push channel failed, giving up")
		if c.handler.OnFailed != nil {
			c.handler.OnFailed(err, true)
		}
		return
	}

	c.retries++
	delay := time.Duration(c.retries) * c.cfg.RetryBaseDelay
	c.setState(StateRetrying)
	metrics.ReconnectAttempts.Inc()
	logging.Warn().Err(err).Int("attempt", c.retries).Int("max_retries", c.cfg.MaxRetries).Dur("delay", delay).Msg("Push channel failed, reconnecting")

	if c.handler.OnFailed != nil {
		c.handler.OnFailed(err, false)
	}

	gen := c.generation
	c.reconnect = c.clock.AfterFunc(delay, func() {
		c.post(gen, func() {
			c.reconnect = nil
			if c.State() == StateRetrying {
				c.open()
			}
		})
	})
}

func (c *Connection) startHeartbeat() {
	c.stopHeartbeat()
	gen := c.generation
	c.heartbeat = c.clock.AfterFunc(c.cfg.HeartbeatInterval, func() {
		c.post(gen, func() {
			if c.State() != StateConnected || c.channel == nil {
				return
			}
			if err := c.channel.Send(heartbeatFrame); err != nil {
				logging.Debug().Err(err).Msg("Heartbeat send failed")
			}
			c.startHeartbeat()
		})
	})
}

func (c *Connection) stopHeartbeat() {
	if c.heartbeat != nil {
		c.heartbeat.Stop()
		c.heartbeat = nil
	}
}

// authenticate logs in over REST and sends the auth frame on the channel.
func (c *Connection) authenticate(gen uint64) {
	if c.login == nil {
		return
	}
	target := c.target
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.LoginTimeout)
		defer cancel()

		session, err := c.login(ctx, target)
		c.post(gen, func() {
			if err != nil {
				c.handleFailure(fmt.Errorf("failed to authenticate push channel: %w", err))
				return
			}
			c.sendAuth(session)
		})
	}()
}

func (c *Connection) sendAuth(session models.Session) {
	if c.channel == nil {
		return
	}
	frame, err := json.Marshal(map[string]string{"auth": session.AuthToken()})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode auth frame")
		return
	}
	if err := c.channel.Send(frame); err != nil {
		if errors.Is(err, octoprint.ErrChannelClosed) {
			return
		}
		c.handleFailure(models.NewError(models.KindTransport, "send auth frame", 0, err))
		return
	}
	logging.Debug().Str("user", logging.SanitizeUsername(session.Name)).Msg("Push channel authenticated")
	if c.handler.OnAuthenticated != nil {
		c.handler.OnAuthenticated(session)
	}
}

func (c *Connection) setState(s ConnState) {
	prev := ConnState(c.state.Swap(int32(s)))
	metrics.SetConnectionState(int(s))
	if prev != s && c.handler.OnState != nil {
		c.handler.OnState(s)
	}
}
