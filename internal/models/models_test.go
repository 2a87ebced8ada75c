// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCompareVersion(t *testing.T) {
	tests := []struct {
		version string
		want    VersionComparison
	}{
		{"1.3.0", VersionNewerOrEqual},
		{"1.2.3", VersionNewerOrEqual},
		{"1.2.2", VersionOlder},
		{"2.0.0", VersionNewerOrEqual},
		{"0.9.9", VersionOlder},
		{"1.10.0rc1", VersionNewerOrEqual},
		{"1.2", VersionOlder},
		{"v1.2.4", VersionNewerOrEqual},
		{"1.3.12.post0.dev3+g1234", VersionNewerOrEqual},
		{"garbage", VersionUnknown},
		{"", VersionUnknown},
		{"1", VersionUnknown},
		{"x.2.3", VersionUnknown},
		{"1.y.3", VersionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := CompareVersion(tt.version, 1, 2, 3); got != tt.want {
				t.Errorf("CompareVersion(%q, 1,2,3) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestOfflineSnapshot(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := OfflineSnapshot(now)

	if s.State.Text != OfflineStateText {
		t.Errorf("Text = %q, want %q", s.State.Text, OfflineStateText)
	}
	if !s.State.Flags.ClosedOrError {
		t.Error("ClosedOrError should be set")
	}
	if s.State.Flags.Operational {
		t.Error("Operational should not be set")
	}
	if s.Source != SourceOffline {
		t.Errorf("Source = %q", s.Source)
	}
	if s.IsEmpty() {
		t.Error("offline snapshot is not empty")
	}

	var empty StateSnapshot
	if !empty.IsEmpty() {
		t.Error("zero snapshot should be empty")
	}
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
		ok     bool
	}{
		{200, 0, false},
		{204, 0, false},
		{401, KindAuthentication, true},
		{403, KindAuthentication, true},
		{409, KindNotOperational, true},
		{404, KindProtocol, true},
		{500, KindTransport, true},
		{502, KindTransport, true},
		{600, KindTunnel, true},
		{650, KindTunnel, true},
		{699, KindTunnel, true},
		{700, KindTransport, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			kind, ok := KindForStatus(tt.status)
			if kind != tt.kind || ok != tt.ok {
				t.Errorf("KindForStatus(%d) = (%v, %v), want (%v, %v)", tt.status, kind, ok, tt.kind, tt.ok)
			}
		})
	}
}

func TestError_IsAndAs(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("baseline: %w", NewError(KindTunnel, "GET /api/printer", 603, cause))

	if !errors.Is(err, ErrTunnel) {
		t.Error("expected errors.Is(err, ErrTunnel)")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("tunnel error should not match ErrTransport sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrappable")
	}
	if KindOf(err) != KindTunnel {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if !KindOf(err).Retryable() {
		t.Error("tunnel errors are retryable")
	}
	if KindAuthentication.Retryable() {
		t.Error("authentication errors are not retryable")
	}
	if KindOf(cause) != 0 {
		t.Error("unclassified error should have kind 0")
	}

	want := "GET /api/printer: tunnel error (status 603): connection refused"
	if got := NewError(KindTunnel, "GET /api/printer", 603, cause).Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestActiveProfile(t *testing.T) {
	profiles := PrinterProfiles{
		Profiles: map[string]PrinterProfile{
			"_default": {ID: "_default", Default: true},
			"mk3":      {ID: "mk3", Current: true},
		},
	}
	if p, ok := profiles.ActiveProfile(); !ok || p.ID != "mk3" {
		t.Errorf("ActiveProfile = %q, %v; want mk3", p.ID, ok)
	}

	profiles.Current = &ConnectionCurrent{PrinterProfile: "_default"}
	if p, _ := profiles.ActiveProfile(); p.ID != "_default" {
		t.Errorf("ActiveProfile = %q; want _default from connection", p.ID)
	}

	empty := PrinterProfiles{}
	if _, ok := empty.ActiveProfile(); ok {
		t.Error("empty profiles should have no active profile")
	}
}

func TestSmartPlugKey(t *testing.T) {
	if k := (SmartPlug{IP: "10.0.0.5"}).Key(); k != "10.0.0.5" {
		t.Errorf("Key = %q", k)
	}
	if k := (SmartPlug{IP: "10.0.0.5", Idx: "2"}).Key(); k != "10.0.0.5#2" {
		t.Errorf("Key = %q", k)
	}
}

func TestSessionAuthToken(t *testing.T) {
	s := Session{Name: "pi", Session: "abc123"}
	if s.AuthToken() != "pi:abc123" {
		t.Errorf("AuthToken = %q", s.AuthToken())
	}
}
