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

package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/scheduler"
)

func TestRoundRobinWrapsCircularly(t *testing.T) {
	concepts := []string{"a", "b", "c", "d", "e"}

	sel := scheduler.RoundRobin(concepts, 3, 4)
	assert.Equal(t, []string{"d", "e", "a", "b"}, sel.Concepts)
	assert.Equal(t, 2, sel.NextCursor)

	// The next run picks up exactly where the previous one left off.
	next := scheduler.RoundRobin(concepts, sel.NextCursor, 4)
	assert.Equal(t, []string{"c", "d", "e", "a"}, next.Concepts)
	assert.Equal(t, 1, next.NextCursor)
}

func TestRoundRobinFullCycleCoversEveryConcept(t *testing.T) {
	concepts := []string{"a", "b", "c", "d", "e", "f", "g"}
	covered := make(map[string]int)

	cursor := 0
	for i := 0; i < 7; i++ {
		sel := scheduler.RoundRobin(concepts, cursor, 3)
		for _, c := range sel.Concepts {
			covered[c]++
		}
		cursor = sel.NextCursor
	}

	// 7 runs of 3 over 7 concepts: every concept selected exactly 3 times.
	assert.Len(t, covered, len(concepts))
	for _, c := range concepts {
		assert.Equal(t, 3, covered[c], "concept %s", c)
	}
}

func TestRoundRobinClampsTargetToListSize(t *testing.T) {
	concepts := []string{"a", "b", "c"}
	sel := scheduler.RoundRobin(concepts, 1, 10)
	assert.Equal(t, []string{"b", "c", "a"}, sel.Concepts)
	assert.Equal(t, 1, sel.NextCursor)
}

func TestRoundRobinEdgeCases(t *testing.T) {
	assert.Empty(t, scheduler.RoundRobin(nil, 5, 3).Concepts)
	assert.Equal(t, 0, scheduler.RoundRobin(nil, 5, 3).NextCursor)

	assert.Empty(t, scheduler.RoundRobin([]string{"a"}, 0, 0).Concepts)

	// A stale cursor beyond the list length wraps instead of panicking, as
	// happens when concepts are removed from the input file between runs.
	sel := scheduler.RoundRobin([]string{"a", "b"}, 9, 1)
	assert.Equal(t, []string{"b"}, sel.Concepts)

	neg := scheduler.RoundRobin([]string{"a", "b", "c"}, -1, 1)
	assert.Equal(t, []string{"c"}, neg.Concepts)
}

func TestCooldownFilterSkipsRecentWithoutReplacement(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Hour
	lastFetch := map[string]time.Time{
		"fresh": now.Add(-2 * time.Hour),  // inside the window
		"stale": now.Add(-36 * time.Hour), // outside the window
	}

	run, skipped := scheduler.CooldownFilter([]string{"fresh", "stale", "never"}, lastFetch, now, window, false)
	assert.Equal(t, []string{"stale", "never"}, run)
	assert.Equal(t, []string{"fresh"}, skipped)
}

func TestCooldownFilterBoundary(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Hour
	lastFetch := map[string]time.Time{"edge": now.Add(-window)}

	// Exactly at the window boundary the concept runs again.
	run, skipped := scheduler.CooldownFilter([]string{"edge"}, lastFetch, now, window, false)
	assert.Equal(t, []string{"edge"}, run)
	assert.Empty(t, skipped)
}

func TestCooldownFilterForce(t *testing.T) {
	now := time.Now().UTC()
	lastFetch := map[string]time.Time{"fresh": now.Add(-time.Minute)}

	run, skipped := scheduler.CooldownFilter([]string{"fresh"}, lastFetch, now, 10*time.Hour, true)
	assert.Equal(t, []string{"fresh"}, run)
	assert.Empty(t, skipped)
}
