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
// This file, `transient.go`, contains the in-memory carriers used while a
// concept is being processed by the collection workflow. These objects are
// "transient" because they only live for the duration of a single run: the
// per-region candidate lists, the enrichment caches, and the run carrier that
// commands hand to one another through the chain context. The derived rows
// that end up in output files live in `records.go`.
package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Provenance tags recorded for every candidate, identifying how a video was
// discovered for a region. A video can carry both tags when it appears in the
// search results and in the trending chart.
const (
	SourceSearch   = "search"
	SourceTrending = "trending"
)

// Concept is an opaque topic identifier together with the query strings used
// to search for it. Concepts are immutable inputs for the duration of a run.
type Concept struct {
	Name    string   // The opaque topic identifier (e.g. "retro gaming").
	Queries []string // Search query variants. Never empty: defaults to the name itself.
}

// NewConcept builds a Concept, defaulting the query list to the concept name
// when no queries are configured for it.
func NewConcept(name string, queries []string) Concept {
	if len(queries) == 0 {
		queries = []string{name}
	}
	return Concept{Name: name, Queries: queries}
}

// RegionCandidates is the per-region discovery state for one concept: the
// ordered, deduplicated list of video identifiers, the provenance tags for
// every video observed (recorded before truncation so the debug output can
// audit what was seen), and the region's full trending set, which feeds the
// trend boost independently of whether a trending video survived into the
// top-K list.
type RegionCandidates struct {
	Region   string
	Ordered  []string            // First-seen insertion order; Truncate caps it at K.
	Sources  map[string][]string // video id -> sorted unique provenance tags.
	Trending map[string]bool     // Full trending set for this region.
}

// NewRegionCandidates creates an empty candidate list for a region.
func NewRegionCandidates(region string) *RegionCandidates {
	return &RegionCandidates{
		Region:   region,
		Sources:  make(map[string][]string),
		Trending: make(map[string]bool),
	}
}

// Append records a video observation. The ordered list only takes the first
// occurrence of an identifier; the provenance tag is recorded either way so
// that a video found by both search and trending carries both tags.
func (r *RegionCandidates) Append(videoID string, source string) {
	if videoID == "" {
		return
	}
	if !r.contains(videoID) {
		r.Ordered = append(r.Ordered, videoID)
	}
	r.addSource(videoID, source)
}

// MarkTrending records membership in the region's trending chart. This is
// tracked separately from the ordered list because the trend boost applies to
// every trending video, including ones that never make the top-K cut.
func (r *RegionCandidates) MarkTrending(videoID string) {
	if videoID != "" {
		r.Trending[videoID] = true
	}
}

// Truncate caps the ordered candidate list at the first k entries. Rank
// positions are the 1-based indexes within the truncated list.
func (r *RegionCandidates) Truncate(k int) {
	if k >= 0 && len(r.Ordered) > k {
		r.Ordered = r.Ordered[:k]
	}
}

func (r *RegionCandidates) contains(videoID string) bool {
	_, ok := r.Sources[videoID]
	if !ok {
		return false
	}
	// Sources may exist for trending-only videos that were appended; the
	// ordered list is small (<= K plus the pre-truncation tail), so a linear
	// scan is fine.
	for _, v := range r.Ordered {
		if v == videoID {
			return true
		}
	}
	return false
}

func (r *RegionCandidates) addSource(videoID string, source string) {
	tags := r.Sources[videoID]
	for _, t := range tags {
		if t == source {
			return
		}
	}
	tags = append(tags, source)
	sort.Strings(tags)
	r.Sources[videoID] = tags
}

// VideoMetadata holds the enrichment fields fetched once per unique video in
// a run, shared across every region that surfaced the video.
type VideoMetadata struct {
	VideoID         string
	ViewCount       int64
	ChannelID       string
	Title           string
	Description     string
	DefaultLanguage string // Declared language; falls back to the declared audio language.
}

// PartialFailure records a degradable sub-step failure (one query, one
// region, one metadata chunk). These are data, not errors: the run keeps
// going and callers can distinguish "no data" from "error swallowed".
type PartialFailure struct {
	Stage  string // "search", "trending", "videos", "channels", "write", "upload", "persist"
	Region string // Region code when the failure is region-scoped, else empty.
	Detail string // Query string, chunk description, or file name.
	Err    string // The underlying error text.
}

func (p PartialFailure) String() string {
	return fmt.Sprintf("%s region=%s detail=%s: %s", p.Stage, p.Region, p.Detail, p.Err)
}

// ConceptRun is the carrier for one concept's trip through the pipeline. It
// accumulates state as the chain commands execute: candidates from the
// collector, metadata from the enricher, scores from the scoring engine, and
// the paths of any outputs produced by the writer.
type ConceptRun struct {
	RunID          string    // Unique identifier for this execution, used in logs and notifications.
	Concept        Concept   // The concept being processed.
	Regions        []string  // The ordered, immutable region list for this run.
	PublishedAfter time.Time // Lower bound of the candidate search window.
	Date           time.Time // The run date, used for deterministic output names.

	Candidates map[string]*RegionCandidates // Keyed by region code.
	Videos     map[string]*VideoMetadata    // Keyed by video id; zero-value defaults when enrichment failed.
	Channels   map[string]string            // Channel id -> upper-cased declared country.

	Scored       []*ScoredVideo
	RegionScores []*RegionScore
	OutputFiles  []string // Paths written by the output writer, in write order.

	Failures []PartialFailure
}

// NewConceptRun initializes the carrier for a concept.
func NewConceptRun(concept Concept, regions []string, publishedAfter time.Time, date time.Time) *ConceptRun {
	return &ConceptRun{
		RunID:          uuid.NewString(),
		Concept:        concept,
		Regions:        regions,
		PublishedAfter: publishedAfter,
		Date:           date,
		Candidates:     make(map[string]*RegionCandidates),
		Videos:         make(map[string]*VideoMetadata),
		Channels:       make(map[string]string),
	}
}

// AddFailure records a degradable sub-step failure on the carrier.
func (c *ConceptRun) AddFailure(stage, region, detail string, err error) {
	c.Failures = append(c.Failures, PartialFailure{Stage: stage, Region: region, Detail: detail, Err: err.Error()})
}

// Occurrences recomputes, from the current candidate lists only, how many
// distinct regions carry each video in their top-K list. The counts are never
// carried over between runs.
func (c *ConceptRun) Occurrences() map[string]int {
	occ := make(map[string]int)
	for _, region := range c.Regions {
		rc := c.Candidates[region]
		if rc == nil {
			continue
		}
		for _, vid := range rc.Ordered {
			occ[vid]++
		}
	}
	return occ
}

// UniqueVideos returns every video present in any region's truncated list,
// deduplicated, in region order then rank order so enrichment batches are
// deterministic.
func (c *ConceptRun) UniqueVideos() []string {
	seen := make(map[string]bool)
	var out []string
	for _, region := range c.Regions {
		rc := c.Candidates[region]
		if rc == nil {
			continue
		}
		for _, vid := range rc.Ordered {
			if !seen[vid] {
				seen[vid] = true
				out = append(out, vid)
			}
		}
	}
	return out
}

// Metadata returns the enrichment record for a video, or a zero-value record
// when the video was never enriched (missing fields default to zero view
// count and empty strings).
func (c *ConceptRun) Metadata(videoID string) *VideoMetadata {
	if m, ok := c.Videos[videoID]; ok {
		return m
	}
	return &VideoMetadata{VideoID: videoID}
}

// DateStamp is the compact date used in output file names.
func (c *ConceptRun) DateStamp() string {
	return c.Date.Format("20060102")
}
