// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package history

import (
	"fmt"
	"regexp"

	"github.com/tomtom215/octosync/internal/models"
)

// DefaultFilters are the terminal filters OctoPrint ships with. They are
// available even when the server does not advertise any.
var DefaultFilters = []models.TerminalFilter{
	{Name: "Suppress temperature messages", Regex: `(Send: (N\d+\s+)?M105)|(Recv:\s+(ok\s+([PBN]\d+\s+)*)?([BCLPR]|T\d*):-?\d+)`},
	{Name: "Suppress SD status messages", Regex: `(Send: (N\d+\s+)?M27)|(Recv: SD printing byte)|(Recv: Not SD printing)`},
	{Name: "Suppress position messages", Regex: `(Send:\s+(N\d+\s+)?M114)|(Recv:\s+(ok\s+)?X:[+-]?([0-9]*[.])?[0-9]+\s+Y:[+-]?([0-9]*[.])?[0-9]+\s+Z:[+-]?([0-9]*[.])?[0-9]+\s+E\d*:[+-]?([0-9]*[.])?[0-9]+).*`},
	{Name: "Suppress wait responses", Regex: `Recv: wait`},
	{Name: "Suppress processing responses", Regex: `Recv: (echo:\s*)?busy:\s*processing`},
}

type rule struct {
	name string
	re   *regexp.Regexp
}

// FilterSet is an immutable set of compiled terminal filter rules.
// A nil or empty FilterSet matches nothing.
type FilterSet struct {
	rules []rule
}

// NewFilterSet compiles rules. Duplicate names keep the first rule.
func NewFilterSet(filters []models.TerminalFilter) (*FilterSet, error) {
	fs := &FilterSet{rules: make([]rule, 0, len(filters))}
	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		if seen[f.Name] {
			continue
		}
		re, err := regexp.Compile(f.Regex)
		if err != nil {
			return nil, fmt.Errorf("failed to compile terminal filter %q: %w", f.Name, err)
		}
		seen[f.Name] = true
		fs.rules = append(fs.rules, rule{name: f.Name, re: re})
	}
	return fs, nil
}

// SelectFilters picks the rules named in names from available, in the order of
// names. Unknown names are reported in missing.
func SelectFilters(available []models.TerminalFilter, names []string) (selected []models.TerminalFilter, missing []string) {
	byName := make(map[string]models.TerminalFilter, len(available))
	for _, f := range available {
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}
	for _, n := range names {
		f, ok := byName[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		selected = append(selected, f)
	}
	return selected, missing
}

// Empty reports whether the set has no rules.
func (fs *FilterSet) Empty() bool {
	return fs == nil || len(fs.rules) == 0
}

// Match reports whether any rule matches line.
func (fs *FilterSet) Match(line string) bool {
	if fs == nil {
		return false
	}
	for _, r := range fs.rules {
		if r.re.MatchString(line) {
			return true
		}
	}
	return false
}

// Names returns the rule names in order.
func (fs *FilterSet) Names() []string {
	if fs == nil {
		return nil
	}
	names := make([]string, len(fs.rules))
	for i, r := range fs.rules {
		names[i] = r.name
	}
	return names
}
