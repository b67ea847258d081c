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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the service clients built from them. This file
// centralizes all configuration-related structs: the YouTube Data API cost
// model and budget, the collection windows and inputs, the versioned scoring
// policy, notification sinks, and the optional GCS/BigQuery result sinks.
//
// Structs:
//   - YouTubeAPI: quota cost model, daily budget, and request pacing.
//   - Collection: candidate-collection inputs, windows, and cooldown.
//   - Scoring: the scoring-policy knobs, convertible to scoring.Policy.
//   - Notifications: best-effort notification sink selection.
//   - BigQueryDataSource: dataset/tables for the optional score sink.
//   - Sinks: optional GCS upload and BigQuery persistence settings.
//   - Config: the top-level struct aggregating all of the above.
//
// Functions:
//   - NewConfig: constructor seeding the documented defaults.
package cloud

import (
	"time"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/scoring"
)

// DefaultRegionLanguages is the built-in region -> expected-language subset
// used when no regions file is configured and no [collection.region_languages]
// table overrides it.
var DefaultRegionLanguages = map[string]string{
	"JP": "ja", "US": "en", "GB": "en", "IN": "hi", "BR": "pt", "FR": "fr",
	"DE": "de", "ES": "es", "KR": "ko", "CN": "zh", "TW": "zh", "IT": "it",
	"RU": "ru", "MX": "es", "CA": "en", "AU": "en", "ID": "id",
}

// DefaultRegions is the ordered default region subset. The order is part of
// the contract: it fixes candidate dedup, enrichment batching, and output
// row order when no regions file is supplied.
var DefaultRegions = []string{
	"JP", "US", "GB", "IN", "BR", "FR", "DE", "ES", "KR",
	"CN", "TW", "IT", "RU", "MX", "CA", "AU", "ID",
}

// YouTubeAPI holds the remote-collaborator settings: where the developer key
// comes from, the approximate cost units per operation kind, the hard daily
// budget, and the request pacing applied between remote calls.
type YouTubeAPI struct {
	APIKeyEnv         string `toml:"api_key_env"`         // Environment variable naming the developer key.
	MaxResults        int64  `toml:"max_results"`         // Items requested per search / trending fetch.
	PagesPerQuery     int    `toml:"pages_per_query"`     // Search pages fetched per query string.
	SearchCost        int64  `toml:"search_cost"`         // Cost units per keyword search call.
	VideosCost        int64  `toml:"videos_cost"`         // Cost units per batched video lookup call.
	ChannelsCost      int64  `toml:"channels_cost"`       // Cost units per batched channel lookup call.
	MostPopularCost   int64  `toml:"most_popular_cost"`   // Cost units per trending-chart fetch.
	DailyQuotaCap     int64  `toml:"daily_quota_cap"`     // Hard per-day budget; 0 disables the check.
	RequestsPerMinute int    `toml:"requests_per_minute"` // Pacing between remote calls.
}

// Collection configures which concepts and regions a run covers and how the
// candidate window and cooldown behave.
type Collection struct {
	MaxRank           int               `toml:"max_rank"`            // K: top-K truncation of a region's candidate list.
	CooldownHours     int               `toml:"cooldown_hours"`      // Skip concepts fetched within this window.
	DefaultWindowDays int               `toml:"default_window_days"` // Search window when a concept has no last fetch.
	ConceptsPerRun    int               `toml:"concepts_per_run"`    // Rotation size when no explicit concept is requested.
	BatchSize         int               `toml:"batch_size"`          // Max ids per metadata lookup chunk.
	RegionsFile       string            `toml:"regions_file"`        // One region code per line; optional.
	ConceptsFile      string            `toml:"concepts_file"`       // One concept per line; required.
	QueryWordsFile    string            `toml:"query_words_file"`    // JSON concept -> query list; required.
	RegionLanguages   map[string]string `toml:"region_languages"`    // Region -> expected ISO 639-1 language.
}

// Scoring mirrors scoring.Policy in TOML form so the exact weight/formula
// combination in production is a config artifact, not a code constant.
type Scoring struct {
	Version            string  `toml:"version"`
	WeightRank         float64 `toml:"weight_rank"`
	WeightPopularity   float64 `toml:"weight_popularity"`
	WeightLocality     float64 `toml:"weight_locality"`
	TrendBoost         float64 `toml:"trend_boost"`
	Percentile         float64 `toml:"percentile"`
	ComponentPrecision int     `toml:"component_precision"`
	FinalPrecision     int     `toml:"final_precision"`
	UniquenessVariant  string  `toml:"uniqueness_variant"` // "tfidf" or "powerlaw".
	PowerLawExponent   float64 `toml:"power_law_exponent"`
}

// Notifications selects the best-effort notification sinks. Both may be set;
// messages go to every configured sink.
type Notifications struct {
	SlackWebhookEnv string `toml:"slack_webhook_env"` // Environment variable naming the webhook URL.
	PubSubTopic     string `toml:"pubsub_topic"`      // Topic ID for Pub/Sub notification; empty disables.
}

// BigQueryDataSource represents the configuration for the BigQuery score sink.
type BigQueryDataSource struct {
	DatasetName      string `toml:"dataset"`            // The name of the BigQuery dataset.
	RegionScoreTable string `toml:"region_score_table"` // Table receiving per-region aggregate rows.
	VideoScoreTable  string `toml:"video_score_table"`  // Table receiving per-video detail rows.
}

// Sinks configures the optional result destinations beyond local CSV files.
type Sinks struct {
	GCSBucket          string             `toml:"gcs_bucket"` // Bucket to mirror output files into; empty disables.
	BigQueryDataSource BigQueryDataSource `toml:"big_query_data_source"`
}

// Config represents the overall configuration for the application, loaded
// from TOML files. It acts as the root container for all other configuration
// structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name            string `toml:"name"`              // The name of the application.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID (sinks, telemetry).
		StateDir        string `toml:"state_dir"`         // Directory for the three run-state documents.
		OutputDir       string `toml:"output_dir"`        // Directory receiving per-run CSV outputs.
	} `toml:"application"`
	YouTube       YouTubeAPI    `toml:"youtube"`
	Collection    Collection    `toml:"collection"`
	Scoring       Scoring       `toml:"scoring"`
	Notifications Notifications `toml:"notifications"`
	Sinks         Sinks         `toml:"sinks"`
}

// NewConfig is a constructor function that creates a new Config instance
// seeded with the documented defaults, so a minimal TOML file only has to
// override what differs.
func NewConfig() *Config {
	c := &Config{}
	c.Application.Name = "region-demand-collector"
	c.Application.StateDir = "state"
	c.Application.OutputDir = "output"
	c.YouTube = YouTubeAPI{
		APIKeyEnv:         "YOUTUBE_API_KEY",
		MaxResults:        25,
		PagesPerQuery:     1,
		SearchCost:        100,
		VideosCost:        1,
		ChannelsCost:      1,
		MostPopularCost:   200,
		DailyQuotaCap:     10000,
		RequestsPerMinute: 120,
	}
	c.Collection = Collection{
		MaxRank:           10,
		CooldownHours:     10,
		DefaultWindowDays: 30,
		ConceptsPerRun:    5,
		BatchSize:         50,
		ConceptsFile:      "concepts.txt",
		QueryWordsFile:    "query_words.json",
		RegionLanguages:   DefaultRegionLanguages,
	}
	p := scoring.DefaultPolicy()
	c.Scoring = Scoring{
		Version:            p.Version,
		WeightRank:         p.WeightRank,
		WeightPopularity:   p.WeightPopularity,
		WeightLocality:     p.WeightLocality,
		TrendBoost:         p.TrendBoost,
		Percentile:         p.Percentile,
		ComponentPrecision: p.ComponentPrecision,
		FinalPrecision:     p.FinalPrecision,
		UniquenessVariant:  string(p.Uniqueness),
		PowerLawExponent:   p.PowerLawExponent,
	}
	c.Notifications = Notifications{SlackWebhookEnv: "YOUTUBE_SLACK_WEBHOOK_URL"}
	return c
}

// ScoringPolicy converts the TOML knobs into the engine's Policy value.
func (c *Config) ScoringPolicy() scoring.Policy {
	variant := scoring.UniquenessVariant(c.Scoring.UniquenessVariant)
	if variant != scoring.UniquenessPowerLaw {
		variant = scoring.UniquenessTFIDF
	}
	return scoring.Policy{
		Version:            c.Scoring.Version,
		MaxRank:            c.Collection.MaxRank,
		WeightRank:         c.Scoring.WeightRank,
		WeightPopularity:   c.Scoring.WeightPopularity,
		WeightLocality:     c.Scoring.WeightLocality,
		TrendBoost:         c.Scoring.TrendBoost,
		Percentile:         c.Scoring.Percentile,
		ComponentPrecision: c.Scoring.ComponentPrecision,
		FinalPrecision:     c.Scoring.FinalPrecision,
		Uniqueness:         variant,
		PowerLawExponent:   c.Scoring.PowerLawExponent,
	}
}

// Cooldown returns the configured cooldown window as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Collection.CooldownHours) * time.Hour
}

// DefaultWindow returns the search window used for never-fetched concepts.
func (c *Config) DefaultWindow() time.Duration {
	return time.Duration(c.Collection.DefaultWindowDays) * 24 * time.Hour
}
