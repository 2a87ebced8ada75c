// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
)

// SessionExecutor matches *sync.QueueExecutor.
type SessionExecutor interface {
	Post(fn func())
	Serve(ctx context.Context) error
}

// Session matches the lifecycle half of *sync.Manager.
type Session interface {
	ConnectToServer(printer models.Printer) error
	Disconnect()
}

// SessionService runs the sync executor and keeps one printer session
// connected while it is supervised.
//
// On shutdown the session is disconnected and the executor is given
// drainTimeout to run the close before it is stopped.
type SessionService struct {
	exec         SessionExecutor
	session      Session
	printer      models.Printer
	drainTimeout time.Duration
	name         string
}

// NewSessionService creates a session service for printer.
func NewSessionService(exec SessionExecutor, session Session, printer models.Printer, drainTimeout time.Duration) *SessionService {
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	return &SessionService{
		exec:         exec,
		session:      session,
		printer:      printer,
		drainTimeout: drainTimeout,
		name:         "printer-session",
	}
}

// Serve implements suture.Service.
func (s *SessionService) Serve(ctx context.Context) error {
	execCtx, cancelExec := context.WithCancel(context.Background())
	defer cancelExec()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.exec.Serve(execCtx)
	}()

	if err := s.session.ConnectToServer(s.printer); err != nil {
		cancelExec()
		<-errCh
		return fmt.Errorf("failed to connect printer session: %w", err)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("sync executor stopped: %w", err)
	case <-ctx.Done():
	}

	s.session.Disconnect()
	drained := make(chan struct{})
	s.exec.Post(func() { close(drained) })

	select {
	case <-drained:
	case <-time.After(s.drainTimeout):
		logging.Warn().Str("printer_id", s.printer.ID).Dur("timeout", s.drainTimeout).Msg("Sync executor did not drain before shutdown")
	}

	cancelExec()
	<-errCh
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (s *SessionService) String() string {
	return s.name
}
