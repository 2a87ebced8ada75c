// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package logging

import "strings"

// SanitizeToken masks an API key or session token, showing only the first and last 4 characters.
// Example: "A1B2C3D4E5F6G7H8" -> "A1B2...G7H8"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername masks a username, keeping first 2 characters.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

var sensitiveKeys = map[string]bool{
	"apikey":        true,
	"api_key":       true,
	"x-api-key":     true,
	"session":       true,
	"token":         true,
	"password":      true,
	"secret":        true,
	"authorization": true,
	"cookie":        true,
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	return value
}

// SanitizeURL strips an apikey query parameter from a URL string.
func SanitizeURL(raw string) string {
	idx := strings.Index(strings.ToLower(raw), "apikey=")
	if idx < 0 {
		return raw
	}
	end := strings.IndexByte(raw[idx:], '&')
	if end < 0 {
		return raw[:idx] + "apikey=***"
	}
	return raw[:idx] + "apikey=***" + raw[idx+end:]
}
