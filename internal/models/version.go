// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package models

import (
	"strconv"
	"strings"
)

// VersionInfo is the /api/version payload.
type VersionInfo struct {
	Server string `json:"server"`
	API    string `json:"api"`
	Text   string `json:"text,omitempty"`
}

// VersionComparison is the result of comparing a server version against a requirement.
type VersionComparison int

const (
	// VersionUnknown means the server version could not be parsed.
	VersionUnknown VersionComparison = iota
	VersionOlder
	VersionNewerOrEqual
)

func (c VersionComparison) String() string {
	switch c {
	case VersionOlder:
		return "older"
	case VersionNewerOrEqual:
		return "newer-or-equal"
	default:
		return "unknown"
	}
}

// CompareVersion compares version against major.minor.patch.
// Components are compared in order and the first difference decides.
// Suffixes such as "rc1" or ".post0" after the numeric prefix are ignored.
func CompareVersion(version string, major, minor, patch int) VersionComparison {
	parts, ok := parseVersion(version)
	if !ok {
		return VersionUnknown
	}
	for i, want := range [3]int{major, minor, patch} {
		if parts[i] != want {
			if parts[i] > want {
				return VersionNewerOrEqual
			}
			return VersionOlder
		}
	}
	return VersionNewerOrEqual
}

// parseVersion reads "X.Y[.Z]" with an optional leading "v".
// A missing patch component reads as 0.
func parseVersion(version string) ([3]int, bool) {
	var out [3]int
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	fields := strings.SplitN(v, ".", 4)
	if len(fields) < 2 {
		return out, false
	}
	for i := 0; i < 3 && i < len(fields); i++ {
		digits := leadingDigits(fields[i])
		if digits == "" {
			if i == 2 {
				break
			}
			return out, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return out, false
		}
		out[i] = n
		// "1.10rc1" style: stop after a component with a suffix
		if len(digits) != len(fields[i]) {
			break
		}
	}
	return out, true
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
