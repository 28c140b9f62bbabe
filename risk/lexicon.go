// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package risk

import (
	"fmt"
	"os"
	"slices"

	"github.com/poiesic/clausewise/core"
	"gopkg.in/yaml.v3"
)

// Lexicon is an immutable, ordered set of risk patterns keyed by phrase.
// Patterns are held in severity order, most severe first, and in declaration
// order within a tier. That order is the scan order.
type Lexicon struct {
	patterns []core.RiskPattern
	byPhrase map[string]int
}

// NewLexicon validates patterns and builds a lexicon from them.
func NewLexicon(patterns ...core.RiskPattern) (*Lexicon, error) {
	if len(patterns) == 0 {
		return nil, ErrEmptyLexicon
	}

	ordered := make([]core.RiskPattern, 0, len(patterns))
	seen := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		p.Phrase = core.LowerASCII(p.Phrase)
		if err := core.ValidateRiskPattern(p); err != nil {
			return nil, err
		}
		if seen[p.Phrase] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePhrase, p.Phrase)
		}
		seen[p.Phrase] = true
		ordered = append(ordered, p)
	}

	slices.SortStableFunc(ordered, func(a, b core.RiskPattern) int {
		return int(b.Severity) - int(a.Severity)
	})

	byPhrase := make(map[string]int, len(ordered))
	for i, p := range ordered {
		byPhrase[p.Phrase] = i
	}
	return &Lexicon{patterns: ordered, byPhrase: byPhrase}, nil
}

// Patterns returns a copy of the lexicon in scan order.
func (l *Lexicon) Patterns() []core.RiskPattern {
	return slices.Clone(l.patterns)
}

// Lookup returns the pattern registered for phrase.
func (l *Lexicon) Lookup(phrase string) (core.RiskPattern, bool) {
	i, ok := l.byPhrase[core.LowerASCII(phrase)]
	if !ok {
		return core.RiskPattern{}, false
	}
	return l.patterns[i], true
}

// Len returns the number of patterns.
func (l *Lexicon) Len() int {
	return len(l.patterns)
}

var defaultPatterns = []core.RiskPattern{
	{Phrase: "unlimited liability", Severity: core.SeverityCritical, Weight: 1.0},
	{Phrase: "personal guarantee", Severity: core.SeverityCritical, Weight: 0.95},
	{Phrase: "liquidated damages", Severity: core.SeverityCritical, Weight: 0.9},
	{Phrase: "immediate termination", Severity: core.SeverityCritical, Weight: 0.9},
	{Phrase: "forfeit", Severity: core.SeverityCritical, Weight: 0.85},
	{Phrase: "irrevocable", Severity: core.SeverityCritical, Weight: 0.85},

	{Phrase: "indemnify", Severity: core.SeverityHigh, Weight: 0.8},
	{Phrase: "hold harmless", Severity: core.SeverityHigh, Weight: 0.8},
	{Phrase: "penalty", Severity: core.SeverityHigh, Weight: 0.75},
	{Phrase: "breach", Severity: core.SeverityHigh, Weight: 0.7},
	{Phrase: "default", Severity: core.SeverityHigh, Weight: 0.7},
	{Phrase: "void", Severity: core.SeverityHigh, Weight: 0.75},
	{Phrase: "terminate", Severity: core.SeverityHigh, Weight: 0.7},
	{Phrase: "non-compete", Severity: core.SeverityHigh, Weight: 0.8},

	{Phrase: "exclusive", Severity: core.SeverityMedium, Weight: 0.6},
	{Phrase: "confidential", Severity: core.SeverityMedium, Weight: 0.5},
	{Phrase: "assignment", Severity: core.SeverityMedium, Weight: 0.6},
	{Phrase: "modification", Severity: core.SeverityMedium, Weight: 0.5},
	{Phrase: "governing law", Severity: core.SeverityMedium, Weight: 0.5},
	{Phrase: "jurisdiction", Severity: core.SeverityMedium, Weight: 0.5},

	{Phrase: "notice", Severity: core.SeverityLow, Weight: 0.3},
	{Phrase: "amendment", Severity: core.SeverityLow, Weight: 0.3},
	{Phrase: "entire agreement", Severity: core.SeverityLow, Weight: 0.2},
	{Phrase: "severability", Severity: core.SeverityLow, Weight: 0.2},
}

// DefaultLexicon returns the built-in contract risk table.
func DefaultLexicon() *Lexicon {
	l, err := NewLexicon(defaultPatterns...)
	if err != nil {
		panic(fmt.Sprintf("risk: invalid default lexicon: %v", err))
	}
	return l
}

type lexiconFile struct {
	Patterns []patternEntry `yaml:"patterns"`
}

type patternEntry struct {
	Phrase   string  `yaml:"phrase"`
	Severity string  `yaml:"severity"`
	Weight   float64 `yaml:"weight"`
}

// ParseLexicon builds a lexicon from YAML data.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing lexicon YAML: %w", err)
	}

	patterns := make([]core.RiskPattern, 0, len(file.Patterns))
	for i, entry := range file.Patterns {
		severity, err := core.ParseSeverity(entry.Severity)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%q): %w", i, entry.Phrase, err)
		}
		patterns = append(patterns, core.RiskPattern{
			Phrase:   entry.Phrase,
			Severity: severity,
			Weight:   entry.Weight,
		})
	}
	return NewLexicon(patterns...)
}

// LoadLexicon reads a YAML lexicon from path.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}
