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

// Package scheduler decides which concepts a run processes. Selection is
// round-robin over the ordered concept list with a persisted cursor, so
// repeated runs cover every concept fairly even when a single run can only
// afford a few. An explicit concept request bypasses rotation entirely; a
// cooldown filter then drops concepts fetched too recently, without giving
// their rotation slots back.
package scheduler

import (
	"time"
)

// Selection is the outcome of a round-robin pick: the chosen concepts in
// rotation order and the cursor value to persist for the next run.
type Selection struct {
	Concepts   []string
	NextCursor int
}

// RoundRobin selects min(target, len(concepts)) concepts starting at
// cursor mod n, wrapping circularly, and advances the cursor by the number
// selected. The selection is deduplicated preserving first occurrence; that
// can only matter if target ever exceeds n, which the clamp prevents, but the
// guard costs nothing.
func RoundRobin(concepts []string, cursor int, target int) Selection {
	n := len(concepts)
	if n == 0 || target <= 0 {
		return Selection{NextCursor: 0}
	}
	start := ((cursor % n) + n) % n
	count := target
	if count > n {
		count = n
	}

	seen := make(map[string]bool, count)
	picked := make([]string, 0, count)
	for i := 0; i < count; i++ {
		c := concepts[(start+i)%n]
		if seen[c] {
			continue
		}
		seen[c] = true
		picked = append(picked, c)
	}
	return Selection{
		Concepts:   picked,
		NextCursor: (start + count) % n,
	}
}

// CooldownFilter splits a selection into concepts to run and concepts to
// skip because their last successful fetch is within the cooldown window.
// Skipped concepts do not earn replacement picks: the selection size was
// fixed before filtering, so a skip simply shrinks the run. Force disables
// the filter entirely.
func CooldownFilter(selected []string, lastFetch map[string]time.Time, now time.Time, window time.Duration, force bool) (run []string, skipped []string) {
	if force || window <= 0 {
		return selected, nil
	}
	for _, concept := range selected {
		if last, ok := lastFetch[concept]; ok && now.Sub(last) < window {
			skipped = append(skipped, concept)
			continue
		}
		run = append(run, concept)
	}
	return run, skipped
}
