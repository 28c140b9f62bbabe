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
	"strings"

	"github.com/poiesic/clausewise/core"
)

// Assessment is the outcome of scanning one clause.
type Assessment struct {
	Score      float64
	Category   core.Severity
	Highlights []core.RiskHighlight
}

// Scanner finds lexicon phrases in clause text. A Scanner is safe for
// concurrent use.
type Scanner struct {
	lexicon *Lexicon
}

// NewScanner creates a scanner over lexicon.
func NewScanner(lexicon *Lexicon) (*Scanner, error) {
	if lexicon == nil {
		return nil, ErrLexiconRequired
	}
	return &Scanner{lexicon: lexicon}, nil
}

// Lexicon returns the scanner's lexicon.
func (s *Scanner) Lexicon() *Lexicon {
	return s.lexicon
}

// Scan records every occurrence of every lexicon phrase in clause. Matching is
// ASCII case-insensitive and overlapping occurrences are all reported. The
// score is the heaviest matched weight, never below core.RiskFloor.
func (s *Scanner) Scan(clause string) Assessment {
	lower := core.LowerASCII(clause)
	score := core.RiskFloor
	var highlights []core.RiskHighlight

	for _, p := range s.lexicon.patterns {
		start := 0
		for start <= len(lower)-len(p.Phrase) {
			idx := strings.Index(lower[start:], p.Phrase)
			if idx < 0 {
				break
			}
			pos := start + idx
			end := pos + len(p.Phrase)
			highlights = append(highlights, core.RiskHighlight{
				Text:     clause[pos:end],
				Start:    pos,
				End:      end,
				RiskType: p.Phrase,
				Severity: p.Severity,
				Score:    p.Weight,
			})
			score = max(score, p.Weight)
			start = pos + 1
		}
	}

	return Assessment{
		Score:      score,
		Category:   core.CategoryForScore(score),
		Highlights: highlights,
	}
}

// Apply copies the assessment onto record.
func (a Assessment) Apply(record *core.ClauseRecord) {
	record.RiskScore = a.Score
	record.RiskCategory = a.Category
	record.Highlights = a.Highlights
}
