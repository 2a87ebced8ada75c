// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures talking to OctoPrint.
type ErrorKind int

const (
	KindTransport ErrorKind = iota + 1
	KindAuthentication
	KindProtocol
	KindNotOperational
	KindTunnel
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuthentication:
		return "authentication"
	case KindProtocol:
		return "protocol"
	case KindNotOperational:
		return "not_operational"
	case KindTunnel:
		return "tunnel"
	default:
		return "unknown"
	}
}

// Retryable reports whether the connection supervisor may retry after this kind.
func (k ErrorKind) Retryable() bool {
	return k == KindTransport || k == KindTunnel
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrTransport      = errors.New("transport error")
	ErrAuthentication = errors.New("authentication error")
	ErrProtocol       = errors.New("protocol error")
	ErrNotOperational = errors.New("printer not operational")
	ErrTunnel         = errors.New("tunnel error")
)

// Tunnel status range used by remote access proxies (e.g. OctoEverywhere, The Spaghetti Detective).
const (
	TunnelStatusMin = 600
	TunnelStatusMax = 699
)

// Error is a classified OctoPrint failure.
type Error struct {
	Kind   ErrorKind
	Status int    // HTTP status, 0 when none
	Op     string // e.g. "GET /api/printer", "parse current frame"
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindAuthentication:
		return ErrAuthentication
	case KindProtocol:
		return ErrProtocol
	case KindNotOperational:
		return ErrNotOperational
	case KindTunnel:
		return ErrTunnel
	default:
		return nil
	}
}

// NewError creates a classified error.
func NewError(kind ErrorKind, op string, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

// ProtocolErrorf creates a protocol error for a malformed payload.
func ProtocolErrorf(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindForStatus maps an HTTP status to an error kind. ok is false for 2xx.
func KindForStatus(status int) (kind ErrorKind, ok bool) {
	switch {
	case status >= 200 && status < 300:
		return 0, false
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuthentication, true
	case status == http.StatusConflict:
		return KindNotOperational, true
	case status >= TunnelStatusMin && status <= TunnelStatusMax:
		return KindTunnel, true
	case status >= 400 && status < 500:
		return KindProtocol, true
	default:
		return KindTransport, true
	}
}

// KindOf returns the kind of err, or 0 when err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
