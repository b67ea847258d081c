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

// Package model defines the core data structures for the application.
// This file holds the derived result rows that the pipeline emits at the end
// of a run: the per-(video, region) score breakdown and the per-region
// aggregate. Both are written to CSV and, when a sink is configured, streamed
// into BigQuery, which is why they carry `bigquery` struct tags.
package model

// ScoredVideo is one scored (video, region) occurrence: every intermediate
// signal plus the combined final score. Values are rounded to the policy's
// precision before they land here, so the rows are deterministic across
// floating-point implementations.
type ScoredVideo struct {
	Concept         string  `json:"concept" bigquery:"concept"`
	VideoID         string  `json:"video_id" bigquery:"video_id"`
	Region          string  `json:"region" bigquery:"region"`
	Rank            int     `json:"rank" bigquery:"rank"`
	ViewCount       int64   `json:"view_count" bigquery:"view_count"`
	RankScore       float64 `json:"rank_score" bigquery:"rank_score"`
	Popularity      float64 `json:"popularity" bigquery:"popularity"`
	LocalHint       float64 `json:"local_hint" bigquery:"local_hint"`
	LocalHintSource string  `json:"local_hint_source" bigquery:"local_hint_source"`
	OccurrenceCount int     `json:"occurrence_count" bigquery:"occurrence_count"`
	Uniqueness      float64 `json:"uniqueness" bigquery:"uniqueness"`
	InnerScore      float64 `json:"inner_score" bigquery:"inner_score"`
	TrendBoost      float64 `json:"trend_boost" bigquery:"trend_boost"`
	FinalScore      float64 `json:"final_score" bigquery:"final_score"`
}

// RegionScore is the externally consumed result: the sum of a region's final
// scores for one concept and run date.
type RegionScore struct {
	Concept string  `json:"concept" bigquery:"concept"`
	Region  string  `json:"region" bigquery:"region"`
	Score   float64 `json:"region_score" bigquery:"region_score"`
	RunDate string  `json:"run_date" bigquery:"run_date"` // yyyymmdd stamp of the producing run.
}
