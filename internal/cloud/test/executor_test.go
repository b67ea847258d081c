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

package cloud_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
)

// newTestExecutor returns an executor with deterministic jitter (always the
// midpoint) that records every sleep instead of waiting.
func newTestExecutor(sleeps *[]time.Duration) *cloud.Executor {
	return &cloud.Executor{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxJitter:      500 * time.Millisecond,
		Sleep:          func(d time.Duration) { *sleeps = append(*sleeps, d) },
		Rand:           func() float64 { return 0.5 },
	}
}

func TestExecutorSucceedsAfterTransientFailures(t *testing.T) {
	var sleeps []time.Duration
	e := newTestExecutor(&sleeps)

	calls := 0
	err := e.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary glitch")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Backoff doubles per retry; jitter is the deterministic 250ms midpoint.
	assert.Equal(t, []time.Duration{
		time.Second + 250*time.Millisecond,
		2*time.Second + 250*time.Millisecond,
	}, sleeps)
}

func TestExecutorExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	e := newTestExecutor(&sleeps)

	boom := errors.New("still broken")
	calls := 0
	err := e.Do(func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, calls)
	// Four sleeps between five attempts; none after the final failure.
	assert.Equal(t, []time.Duration{
		time.Second + 250*time.Millisecond,
		2*time.Second + 250*time.Millisecond,
		4*time.Second + 250*time.Millisecond,
		8*time.Second + 250*time.Millisecond,
	}, sleeps)
}

func TestExecutorShortCircuitsOnQuotaExhaustion(t *testing.T) {
	var sleeps []time.Duration
	e := newTestExecutor(&sleeps)

	calls := 0
	err := e.Do(func() error {
		calls++
		return fmt.Errorf("search: %w", cloud.ErrQuotaExhausted)
	})

	assert.ErrorIs(t, err, cloud.ErrQuotaExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestExecutorShortCircuitsOnBudgetExhaustion(t *testing.T) {
	var sleeps []time.Duration
	e := newTestExecutor(&sleeps)

	calls := 0
	err := e.Do(func() error {
		calls++
		return cloud.ErrBudgetExhausted
	})

	assert.ErrorIs(t, err, cloud.ErrBudgetExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestIsQuotaExhausted(t *testing.T) {
	assert.True(t, cloud.IsQuotaExhausted(cloud.ErrQuotaExhausted))
	assert.True(t, cloud.IsQuotaExhausted(fmt.Errorf("wrapped: %w", cloud.ErrBudgetExhausted)))
	assert.False(t, cloud.IsQuotaExhausted(errors.New("anything else")))
	assert.False(t, cloud.IsQuotaExhausted(nil))
}
