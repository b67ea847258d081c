// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package state owns the persisted run-state records. This file implements
// the store: three independent JSON documents under the state directory, each
// safe to delete on its own to reset that dimension of behavior.
//
//   - quota_usage.json     day key -> accumulated cost units
//   - last_fetch.json      concept -> ISO-8601 UTC timestamp of last success
//   - rotation_cursor.json single integer round-robin cursor
//
// Loads return an empty or default value on a missing or corrupt file; the
// corruption is logged, never fatal. Under-remembering only causes redundant
// work on the next run, whereas crashing loses the whole run. Saves are
// whole-file overwrites; callers treat a save failure as non-fatal-but-logged
// for the same reason.
package state

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	quotaUsageFile = "quota_usage.json"
	lastFetchFile  = "last_fetch.json"
	cursorFile     = "rotation_cursor.json"

	// LastFetchTimeFormat matches the on-disk timestamp layout of the
	// last-fetch document.
	LastFetchTimeFormat = "2006-01-02T15:04:05Z"
)

// Store reads and writes the three run-state documents in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// load unmarshals one document into out, reporting whether anything usable
// was read. Missing files are silent; corrupt files are logged and skipped.
func (s *Store) load(name string, out any) bool {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read state file", "file", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("ignoring corrupt state file", "file", name, "error", err)
		return false
	}
	return true
}

// save marshals one document and overwrites the file in place.
func (s *Store) save(name string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(name), data, 0o644)
}

// LoadQuotaLedger reads the quota ledger, returning an empty ledger when the
// document is missing or corrupt.
func (s *Store) LoadQuotaLedger() *QuotaLedger {
	ledger := NewQuotaLedger()
	days := make(map[string]int64)
	if s.load(quotaUsageFile, &days) {
		ledger.Days = days
	}
	return ledger
}

// SaveQuotaLedger overwrites the quota document.
func (s *Store) SaveQuotaLedger(l *QuotaLedger) error {
	return s.save(quotaUsageFile, l.Days)
}

// LoadLastFetch reads the per-concept last-success timestamps. Entries that
// fail to parse are dropped with a warning.
func (s *Store) LoadLastFetch() map[string]time.Time {
	raw := make(map[string]string)
	out := make(map[string]time.Time)
	if !s.load(lastFetchFile, &raw) {
		return out
	}
	for concept, stamp := range raw {
		t, err := time.Parse(LastFetchTimeFormat, stamp)
		if err != nil {
			slog.Warn("dropping unparseable last-fetch entry", "concept", concept, "value", stamp, "error", err)
			continue
		}
		out[concept] = t.UTC()
	}
	return out
}

// SaveLastFetch overwrites the last-fetch document.
func (s *Store) SaveLastFetch(m map[string]time.Time) error {
	raw := make(map[string]string, len(m))
	for concept, t := range m {
		raw[concept] = t.UTC().Format(LastFetchTimeFormat)
	}
	return s.save(lastFetchFile, raw)
}

// cursorDoc is the on-disk shape of the rotation cursor.
type cursorDoc struct {
	Cursor int `json:"cursor"`
}

// LoadCursor reads the round-robin cursor, defaulting to zero.
func (s *Store) LoadCursor() int {
	var doc cursorDoc
	if !s.load(cursorFile, &doc) || doc.Cursor < 0 {
		return 0
	}
	return doc.Cursor
}

// SaveCursor overwrites the cursor document.
func (s *Store) SaveCursor(cursor int) error {
	return s.save(cursorFile, cursorDoc{Cursor: cursor})
}

// RunState bundles the three loaded records with the store that persists
// them. It is an explicit value passed into every component that needs it;
// load happens once at run start and saves at well-defined checkpoints.
type RunState struct {
	Store     *Store
	Quota     *QuotaLedger
	LastFetch map[string]time.Time
	Cursor    int
}

// Load opens the store and reads all three documents.
func Load(dir string) (*RunState, error) {
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	return &RunState{
		Store:     store,
		Quota:     store.LoadQuotaLedger(),
		LastFetch: store.LoadLastFetch(),
		Cursor:    store.LoadCursor(),
	}, nil
}
