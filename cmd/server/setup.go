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
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-region-demand/internal/cloud"
	"github.com/jaycherian/gcp-go-region-demand/internal/core/state"
)

type StateManager struct {
	config *cloud.Config
	store  *state.Store
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

// InitState opens the state store the collector writes to. The server only
// reads; documents are re-read per request so a running collector's updates
// are always visible.
func InitState() {
	store, err := state.NewStore(GetConfig().Application.StateDir)
	if err != nil {
		log.Fatalf("failed to open state store: %v\n", err)
	}
	appState.store = store
}

// StateRouter exposes the collector's persisted run state.
func StateRouter(r *gin.RouterGroup) {
	st := r.Group("/state")
	{
		st.GET("/quota", func(c *gin.Context) {
			ledger := appState.store.LoadQuotaLedger()
			day := ledger.DayKey(time.Now())
			c.JSON(http.StatusOK, gin.H{
				"day":  day,
				"used": ledger.Used(day),
				"cap":  appState.config.YouTube.DailyQuotaCap,
				"days": ledger.Days,
			})
		})

		st.GET("/last-fetch", func(c *gin.Context) {
			out := make(map[string]string)
			for concept, ts := range appState.store.LoadLastFetch() {
				out[concept] = ts.Format(state.LastFetchTimeFormat)
			}
			c.JSON(http.StatusOK, out)
		})

		st.GET("/cursor", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"cursor": appState.store.LoadCursor()})
		})
	}
}

// OutputRouter lists and serves the CSV result files.
func OutputRouter(r *gin.RouterGroup) {
	outputs := r.Group("/outputs")
	{
		outputs.GET("", func(c *gin.Context) {
			dir := appState.config.Application.OutputDir
			entries, err := os.ReadDir(dir)
			if err != nil {
				c.JSON(http.StatusOK, []string{})
				return
			}
			var names []string
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".csv") {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)
			c.JSON(http.StatusOK, names)
		})

		outputs.GET("/:name", func(c *gin.Context) {
			name := c.Param("name")
			// Reject traversal; file names are flat in the output dir.
			if name != filepath.Base(name) || !strings.HasSuffix(name, ".csv") {
				c.Status(http.StatusBadRequest)
				return
			}
			path := filepath.Join(appState.config.Application.OutputDir, name)
			if _, err := os.Stat(path); err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.FileAttachment(path, name)
		})
	}
}
