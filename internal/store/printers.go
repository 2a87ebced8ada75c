// OctoSync - OctoPrint Connection and State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/octosync

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/octosync/internal/config"
	"github.com/tomtom215/octosync/internal/logging"
	"github.com/tomtom215/octosync/internal/models"
)

// ErrMissingPrinterID is returned when saving a printer without an ID.
var ErrMissingPrinterID = errors.New("printer id is required")

// PrinterStore provides typed access to printer records and capabilities.
type PrinterStore struct {
	repo Repository
	enc  *config.CredentialEncryptor
	now  func() time.Time
}

// NewPrinterStore creates a printer store. API keys are encrypted with enc.
func NewPrinterStore(repo Repository, enc *config.CredentialEncryptor) *PrinterStore {
	return &PrinterStore{repo: repo, enc: enc, now: time.Now}
}

// Repository returns the underlying repository.
func (s *PrinterStore) Repository() Repository {
	return s.repo
}

// Get loads a printer with its API key decrypted.
func (s *PrinterStore) Get(ctx context.Context, printerID string) (models.Printer, error) {
	p, err := GetJSON[models.Printer](ctx, s.repo, PrinterKey(printerID))
	if err != nil {
		return models.Printer{}, err
	}
	return s.decrypt(p)
}

// Save stores p with its API key encrypted. UpdatedAt is set to now.
func (s *PrinterStore) Save(ctx context.Context, p models.Printer) error {
	if p.ID == "" {
		return ErrMissingPrinterID
	}
	p.UpdatedAt = s.now().UTC()

	if p.APIKey != "" {
		sealed, err := s.enc.Encrypt(p.APIKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt api key for printer %s: %w", p.ID, err)
		}
		p.APIKey = sealed
	}
	return PutJSON(ctx, s.repo, PrinterKey(p.ID), p)
}

// Delete removes a printer with its capabilities and command history.
func (s *PrinterStore) Delete(ctx context.Context, printerID string) error {
	entries, err := s.repo.List(ctx, CapabilityPrefix(printerID, ""))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.repo.Delete(ctx, e.Key); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, CommandHistoryKey(printerID)); err != nil {
		return err
	}
	return s.repo.Delete(ctx, PrinterKey(printerID))
}

// List returns all printers ordered by ID.
func (s *PrinterStore) List(ctx context.Context) ([]models.Printer, error) {
	entries, err := s.repo.List(ctx, printerPrefix)
	if err != nil {
		return nil, err
	}

	printers := make([]models.Printer, 0, len(entries))
	for _, e := range entries {
		var p models.Printer
		if err := json.Unmarshal(e.Value, &p); err != nil {
			logging.Warn().Str("key", e.Key).Err(err).Msg("Skipping unreadable printer record")
			continue
		}
		p, err = s.decrypt(p)
		if err != nil {
			logging.Warn().Str("printer_id", p.ID).Err(err).Msg("Failed to decrypt printer API key")
			p.APIKey = ""
		}
		printers = append(printers, p)
	}
	return printers, nil
}

func (s *PrinterStore) decrypt(p models.Printer) (models.Printer, error) {
	if p.APIKey == "" {
		return p, nil
	}
	plain, err := s.enc.Decrypt(p.APIKey)
	if err != nil {
		return p, fmt.Errorf("failed to decrypt api key for printer %s: %w", p.ID, err)
	}
	p.APIKey = plain
	return p, nil
}

// Capabilities loads every persisted capability record of a printer.
func (s *PrinterStore) Capabilities(ctx context.Context, printerID string) (models.CapabilitySet, error) {
	prefix := CapabilityPrefix(printerID, "")
	entries, err := s.repo.List(ctx, prefix)
	if err != nil {
		return models.CapabilitySet{}, err
	}

	set := models.CapabilitySet{Plugs: map[string][]models.SmartPlug{}}
	for _, e := range entries {
		domain, _, found := strings.Cut(strings.TrimPrefix(e.Key, prefix), "/")
		if !found {
			continue
		}
		if err := decodeCapability(&set, domain, e.Value); err != nil {
			return models.CapabilitySet{}, fmt.Errorf("decode %s: %w", e.Key, err)
		}
	}

	sort.Slice(set.Cameras, func(i, j int) bool { return set.Cameras[i].Index < set.Cameras[j].Index })
	sort.Slice(set.EnclosureInputs, func(i, j int) bool { return set.EnclosureInputs[i].IndexID < set.EnclosureInputs[j].IndexID })
	sort.Slice(set.EnclosureOutputs, func(i, j int) bool { return set.EnclosureOutputs[i].IndexID < set.EnclosureOutputs[j].IndexID })
	return set, nil
}

func decodeCapability(set *models.CapabilitySet, domain string, value []byte) error {
	switch domain {
	case DomainCameras:
		var c models.Camera
		if err := json.Unmarshal(value, &c); err != nil {
			return err
		}
		set.Cameras = append(set.Cameras, c)
	case DomainEnclosureInputs:
		var in models.EnclosureInput
		if err := json.Unmarshal(value, &in); err != nil {
			return err
		}
		set.EnclosureInputs = append(set.EnclosureInputs, in)
	case DomainEnclosureOutputs:
		var out models.EnclosureOutput
		if err := json.Unmarshal(value, &out); err != nil {
			return err
		}
		set.EnclosureOutputs = append(set.EnclosureOutputs, out)
	case DomainPlugs:
		var p models.SmartPlug
		if err := json.Unmarshal(value, &p); err != nil {
			return err
		}
		set.Plugs[p.Plugin] = append(set.Plugs[p.Plugin], p)
	case DomainTerminalFilters:
		var f models.TerminalFilter
		if err := json.Unmarshal(value, &f); err != nil {
			return err
		}
		set.TerminalFilters = append(set.TerminalFilters, f)
	}
	return nil
}

// CommandHistory returns the persisted command history, most recent first.
func (s *PrinterStore) CommandHistory(ctx context.Context, printerID string) ([]string, error) {
	cmds, err := GetJSON[[]string](ctx, s.repo, CommandHistoryKey(printerID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return cmds, err
}

// SaveCommandHistory persists the command history.
func (s *PrinterStore) SaveCommandHistory(ctx context.Context, printerID string, cmds []string) error {
	return PutJSON(ctx, s.repo, CommandHistoryKey(printerID), cmds)
}
