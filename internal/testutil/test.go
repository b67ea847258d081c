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

// Package test provides shared helpers for the test suite: a cached test
// configuration, environment setup for the hierarchical config loader, and
// a temporary state-directory factory.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

// StateManager caches the loaded configuration so the TOML files are parsed
// once per test run rather than once per test.
type StateManager struct {
	config *cloud.Config
}

var testState = &StateManager{}

// HandleErr fails the test when err is non-nil. A convenience to cut
// boilerplate in table-driven tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// SetupOS points the configuration loader at the test configuration files
// (configs/.env.test.toml overriding configs/.env.toml).
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is the singleton accessor for the test configuration.
func GetConfig() *cloud.Config {
	if testState.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		testState.config = config
	}
	return testState.config
}

// NewRunState creates a RunState backed by a fresh temporary directory that
// is removed when the test finishes.
func NewRunState(t *testing.T) *state.RunState {
	t.Helper()
	rs, err := state.Load(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create test run state: %v", err)
	}
	return rs
}
