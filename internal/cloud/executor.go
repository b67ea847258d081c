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

// Package cloud provides configuration and remote-service plumbing. This file
// implements the retrying executor that wraps every remote call. Transient
// failures are retried with exponential backoff plus jitter; quota-exhaustion
// failures short-circuit immediately because retrying them only burns budget
// on a service that has already said no for the rest of the day.
package cloud

import (
	"log/slog"
	"math/rand/v2"
	"time"
)

// Executor retries a remote operation on transient failure. The sleep and
// jitter functions are injectable so tests can observe the backoff schedule
// without waiting it out.
type Executor struct {
	MaxAttempts    int                 // Total attempts including the first; the last failure propagates.
	InitialBackoff time.Duration       // Backoff before the first retry; doubles each attempt.
	MaxJitter      time.Duration       // Upper bound (exclusive) of the uniform jitter added to each sleep.
	Sleep          func(time.Duration) // Sleep implementation; time.Sleep in production.
	Rand           func() float64      // Uniform [0,1) source for the jitter.
}

// NewExecutor returns an executor with the production schedule: five
// attempts, 1s initial backoff doubling each retry, up to 500ms jitter.
func NewExecutor() *Executor {
	return &Executor{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxJitter:      500 * time.Millisecond,
		Sleep:          time.Sleep,
		Rand:           rand.Float64,
	}
}

// Do executes op, retrying transient failures until the attempt budget is
// spent. A quota-exhaustion error is reported upward immediately with no
// further retries; every other failure is retried uniformly regardless of
// operation kind. The final attempt's failure is returned with no trailing
// sleep.
func (e *Executor) Do(op func() error) error {
	backoff := e.InitialBackoff
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if IsQuotaExhausted(err) {
			return err
		}
		if attempt >= e.MaxAttempts {
			return err
		}
		slog.Warn("remote call failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		e.Sleep(backoff + time.Duration(e.Rand()*float64(e.MaxJitter)))
		backoff *= 2
	}
}
