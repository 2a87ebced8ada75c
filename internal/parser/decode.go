// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package parser

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/models"
)

// decodeObject decodes raw into v, requiring a JSON object.
func decodeObject(op string, raw []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.ProtocolErrorf(op, "expected JSON object")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return models.NewError(models.KindProtocol, op, 0, err)
	}
	return nil
}

// isNull reports whether raw is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// flexString accepts a JSON string or number. Plugins are inconsistent
// about the type of index fields.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexInt(int(n))
	return nil
}

// flexBool accepts true/false, 0/1 and "true"/"false".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		var v bool
		if err2 := json.Unmarshal(b, &v); err2 != nil {
			return err2
		}
		*f = flexBool(v)
		return nil
	}
	switch s {
	case "true", "1", "on":
		*f = true
	default:
		*f = false
	}
	return nil
}

func int64Ptr(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}
