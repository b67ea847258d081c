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

package main

import (
	"context"
	"log"
	"os"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

type StateManager struct {
	config *cloud.Config
}

var appState = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if appState.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		// Create a default config, then layer the TOML files over it.
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		appState.config = config
	}
	return appState.config
}

// InitClients builds the remote service container. Failure here is fatal:
// without a YouTube client there is nothing the collector can do.
func InitClients(ctx context.Context, config *cloud.Config, runState *state.RunState) *cloud.ServiceClients {
	clients, err := cloud.NewServiceClients(ctx, config, runState)
	if err != nil {
		log.Fatalf("failed to initialize service clients: %v\n", err)
	}
	return clients
}
