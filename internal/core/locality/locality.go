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

// Package locality estimates how strongly a video is "native" to a region.
// Three sources are evaluated in priority order: the channel's declared
// country, the video's declared language, and text-based language detection
// over the title and description. Detection is behind a small interface so
// scoring keeps working (with hint 0) when no detector is available, and so
// tests can substitute a deterministic one.
package locality

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/jaycherian/gcp-go-region-demand/internal/core/model"
)

// Hint source tags, recorded alongside every locality hint for auditing which
// signal won.
const (
	SourceChannelCountry = "channel_country"
	SourceDefaultLang    = "default_lang"
	SourceLangDetect     = "langdetect"
	SourceNone           = "none"
)

// Detector reports the probability mass a language identifier assigns to the
// target ISO 639-1 language for the given text, in [0, 1].
type Detector interface {
	Probability(text string, isoLang string) float64
}

// Result is a locality hint with the source that produced it.
type Result struct {
	Hint   float64
	Source string
}

// Hint combines the locality signals for one (video, region) pair.
//
// Priority order:
//  1. Channel country equal to the region: hint 1.0.
//  2. Declared language prefix-matching the region's expected language:
//     probability 0.95, scaled like a detection result.
//  3. Language detection over title+description: detected probability mass
//     for the expected language.
//
// Language probabilities are scaled by 0.9 (capped at 0.9) and floored at 0.6
// whenever a declared language was present, matching or not. Detection
// failures or an absent detector yield hint 0 with source "none"; they are
// never fatal.
func Hint(region string, expectedLang string, meta *model.VideoMetadata, channelCountry string, det Detector) Result {
	if channelCountry != "" && strings.EqualFold(channelCountry, region) {
		return Result{Hint: 1.0, Source: SourceChannelCountry}
	}

	declared := meta.DefaultLanguage
	prob := 0.0
	source := SourceNone
	if declared != "" && expectedLang != "" && strings.HasPrefix(strings.ToLower(declared), strings.ToLower(expectedLang)) {
		prob = 0.95
		source = SourceDefaultLang
	} else {
		text := strings.TrimSpace(meta.Title + " " + meta.Description)
		if text != "" && det != nil && expectedLang != "" {
			prob = det.Probability(text, expectedLang)
			source = SourceLangDetect
		}
	}

	hint := prob * 0.9
	if hint > 0.9 {
		hint = 0.9
	}
	if declared != "" && hint < 0.6 {
		hint = 0.6
	}
	return Result{Hint: hint, Source: source}
}

// linguaDetector backs the Detector interface with lingua's statistical
// language models.
type linguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over all supported languages. The model
// load is the expensive part, so callers construct one per process and share
// it.
func NewLinguaDetector() Detector {
	return &linguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build(),
	}
}

// Probability returns the confidence lingua assigns to the target ISO 639-1
// code for the text, or 0 when the language is not among the candidates.
func (l *linguaDetector) Probability(text string, isoLang string) float64 {
	if strings.TrimSpace(text) == "" || isoLang == "" {
		return 0
	}
	for _, cv := range l.detector.ComputeLanguageConfidenceValues(text) {
		code := cv.Language().IsoCode639_1().String()
		if strings.HasPrefix(strings.ToLower(code), strings.ToLower(isoLang)) {
			return cv.Value()
		}
	}
	return 0
}
