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

// Package state owns the persisted run-state records: the quota ledger, the
// last-fetch map, and the round-robin cursor. This file implements the quota
// ledger, the per-day accounting of remote-call cost against the service's
// daily budget. The YouTube Data API resets quota on the Pacific calendar
// day, so day keys are derived in that timezone regardless of where the
// collector runs.
package state

import (
	"time"
	// Embed the tz database so Pacific day keys resolve on hosts without one.
	_ "time/tzdata"
)

// QuotaTimeZone is the IANA name of the service's canonical quota timezone.
const QuotaTimeZone = "America/Los_Angeles"

// QuotaLedger maps calendar-day keys (service-local timezone) to accumulated
// cost units. Past days are retained and never mutated after their day ends;
// only the current day's entry grows.
type QuotaLedger struct {
	Days map[string]int64
	loc  *time.Location
}

// NewQuotaLedger returns an empty ledger bound to the service timezone.
func NewQuotaLedger() *QuotaLedger {
	loc, err := time.LoadLocation(QuotaTimeZone)
	if err != nil {
		// tzdata is embedded, so this only fires on a corrupted zone name.
		loc = time.UTC
	}
	return &QuotaLedger{Days: make(map[string]int64), loc: loc}
}

// DayKey derives the ledger key for the given instant in the service
// timezone, e.g. "2026-09-01".
func (l *QuotaLedger) DayKey(now time.Time) string {
	return now.In(l.loc).Format("2006-01-02")
}

// EnsureDay inserts a zero entry for the key if it is absent. Entries for
// past days are preserved, never cleared.
func (l *QuotaLedger) EnsureDay(key string) {
	if _, ok := l.Days[key]; !ok {
		l.Days[key] = 0
	}
}

// Used reports the cost accumulated under the given day key.
func (l *QuotaLedger) Used(key string) int64 {
	return l.Days[key]
}

// Charge adds cost units to the day's entry. Within a day the value is
// monotonically non-decreasing.
func (l *QuotaLedger) Charge(key string, cost int64) {
	l.Days[key] += cost
}

// WouldExceed reports whether charging cost would cross the configured cap.
// A cap of zero or less disables the budget check.
func (l *QuotaLedger) WouldExceed(key string, cost int64, cap int64) bool {
	if cap <= 0 {
		return false
	}
	return l.Days[key]+cost > cap
}
