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

package state_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	zassert "github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

func newStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestQuotaDayKeyUsesPacificTime(t *testing.T) {
	ledger := state.NewQuotaLedger()

	// 07:59 UTC on Jan 1 is still Dec 31 in Pacific time (UTC-8 in winter),
	// so the quota day has not rolled over yet.
	before := time.Date(2026, 1, 1, 7, 59, 0, 0, time.UTC)
	assert.Equal(t, "2025-12-31", ledger.DayKey(before))

	after := time.Date(2026, 1, 1, 8, 1, 0, 0, time.UTC)
	assert.Equal(t, "2026-01-01", ledger.DayKey(after))

	// DST: mid-summer Pacific is UTC-7.
	summer := time.Date(2026, 7, 1, 6, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-06-30", ledger.DayKey(summer))
}

func TestQuotaLedgerChargeAndBudget(t *testing.T) {
	ledger := state.NewQuotaLedger()
	day := "2026-09-01"
	ledger.EnsureDay(day)

	assert.Equal(t, int64(0), ledger.Used(day))
	assert.False(t, ledger.WouldExceed(day, 100, 10000))

	ledger.Charge(day, 9900)
	// Exactly reaching the cap is admitted; crossing it is not.
	assert.False(t, ledger.WouldExceed(day, 100, 10000))
	assert.True(t, ledger.WouldExceed(day, 101, 10000))

	ledger.Charge(day, 100)
	assert.True(t, ledger.WouldExceed(day, 1, 10000))
	assert.Equal(t, int64(10000), ledger.Used(day))

	// A zero cap disables the budget check.
	assert.False(t, ledger.WouldExceed(day, 1_000_000, 0))

	// A new day starts from a zero balance; history is retained.
	next := "2026-09-02"
	ledger.EnsureDay(next)
	assert.Equal(t, int64(0), ledger.Used(next))
	assert.Equal(t, int64(10000), ledger.Used(day))
}

func TestQuotaLedgerRoundTrip(t *testing.T) {
	s := newStore(t)

	ledger := state.NewQuotaLedger()
	ledger.EnsureDay("2026-09-01")
	ledger.Charge("2026-09-01", 1234)
	zassert.NoError(t, s.SaveQuotaLedger(ledger))

	loaded := s.LoadQuotaLedger()
	assert.Equal(t, int64(1234), loaded.Used("2026-09-01"))
}

func TestLastFetchRoundTripAndBadEntries(t *testing.T) {
	s := newStore(t)

	ts := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	zassert.NoError(t, s.SaveLastFetch(map[string]time.Time{"retro gaming": ts}))

	loaded := s.LoadLastFetch()
	assert.Equal(t, ts, loaded["retro gaming"])

	// Unparseable entries are dropped individually, not fatally.
	raw := `{"good": "2026-08-31T10:30:00Z", "bad": "yesterday-ish"}`
	zassert.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "last_fetch.json"), []byte(raw), 0o644))
	loaded = s.LoadLastFetch()
	assert.Len(t, loaded, 1)
	assert.Contains(t, loaded, "good")
}

func TestCorruptStateFilesAreTolerated(t *testing.T) {
	s := newStore(t)

	for _, name := range []string{"quota_usage.json", "last_fetch.json", "rotation_cursor.json"} {
		zassert.NoError(t, os.WriteFile(filepath.Join(s.Dir(), name), []byte("{not json"), 0o644))
	}

	assert.Equal(t, int64(0), s.LoadQuotaLedger().Used("2026-09-01"))
	assert.Empty(t, s.LoadLastFetch())
	assert.Equal(t, 0, s.LoadCursor())
}

func TestCursorRoundTrip(t *testing.T) {
	s := newStore(t)

	assert.Equal(t, 0, s.LoadCursor())
	zassert.NoError(t, s.SaveCursor(7))
	assert.Equal(t, 7, s.LoadCursor())

	// A negative value on disk resets to zero.
	zassert.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "rotation_cursor.json"), []byte(`{"cursor": -3}`), 0o644))
	assert.Equal(t, 0, s.LoadCursor())
}

func TestLoadBundlesAllDocuments(t *testing.T) {
	dir := t.TempDir()

	first, err := state.Load(dir)
	zassert.NoError(t, err)
	first.Quota.EnsureDay("2026-09-01")
	first.Quota.Charge("2026-09-01", 500)
	zassert.NoError(t, first.Store.SaveQuotaLedger(first.Quota))
	zassert.NoError(t, first.Store.SaveCursor(3))

	second, err := state.Load(dir)
	zassert.NoError(t, err)
	assert.Equal(t, int64(500), second.Quota.Used("2026-09-01"))
	assert.Equal(t, 3, second.Cursor)
	assert.Empty(t, second.LastFetch)
}

func TestLockIsExclusive(t *testing.T) {
	s := newStore(t)

	release, err := s.AcquireLock()
	zassert.NoError(t, err)

	_, err = s.AcquireLock()
	assert.Error(t, err)

	release()
	release2, err := s.AcquireLock()
	zassert.NoError(t, err)
	release2()
}
