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

// Package segment splits legal text into clause-sized fragments.
//
// Structural delimiters are tried in a fixed priority order and the first one
// that actually divides the text wins. Documents without usable numbering fall
// back to sentence splitting.
package segment

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMinClauseLength is the length a structural fragment must exceed.
	DefaultMinClauseLength = 50

	// DefaultMinSentenceLength is the length a sentence fragment must exceed.
	DefaultMinSentenceLength = 30

	// StrategySentence names the sentence fallback.
	StrategySentence = "sentence"
)

// delimiter is a structural marker that starts a new clause. A delimiter only
// counts at the start of the text or right after whitespace. Numbered
// delimiters additionally need the preceding text to end a sentence or a
// list item, so "Schedule 2. The" and "USD 1.5 million" stay in one piece.
type delimiter struct {
	name     string
	re       *regexp.Regexp
	numbered bool
}

var delimiters = []delimiter{
	{name: "numbered-subsection", re: regexp.MustCompile(`^\d+\.\d+\.?\s+`), numbered: true},
	{name: "numbered-section", re: regexp.MustCompile(`^\d+\.\s+`), numbered: true},
	{name: "lettered-item", re: regexp.MustCompile(`^\([a-z]\)\s+`)},
	{name: "header", re: regexp.MustCompile(`^[A-Z][A-Z\s]+:\s+`)},
	{name: "section", re: regexp.MustCompile(`^Section\s+\d+`)},
	{name: "article", re: regexp.MustCompile(`^Article\s+\d+`)},
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	sentenceBreak = regexp.MustCompile(`[.!?]\s+`)
)

// Strategies lists the structural strategies in priority order, followed by
// the sentence fallback.
func Strategies() []string {
	names := make([]string, 0, len(delimiters)+1)
	for _, d := range delimiters {
		names = append(names, d.name)
	}
	return append(names, StrategySentence)
}

// Segmenter splits documents into clauses. It holds no mutable state and is
// safe for concurrent use.
type Segmenter struct {
	minClause   int
	minSentence int
	logger      *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter) error

// WithMinClauseLength sets the length a structural fragment must exceed.
// Default is DefaultMinClauseLength.
func WithMinClauseLength(n int) Option {
	return func(s *Segmenter) error {
		if n < 0 {
			return fmt.Errorf("%w: min clause length %d", ErrInvalidLength, n)
		}
		s.minClause = n
		return nil
	}
}

// WithMinSentenceLength sets the length a sentence fragment must exceed.
// Default is DefaultMinSentenceLength.
func WithMinSentenceLength(n int) Option {
	return func(s *Segmenter) error {
		if n < 0 {
			return fmt.Errorf("%w: min sentence length %d", ErrInvalidLength, n)
		}
		s.minSentence = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Segmenter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSegmenter creates a segmenter.
func NewSegmenter(opts ...Option) (*Segmenter, error) {
	s := &Segmenter{
		minClause:   DefaultMinClauseLength,
		minSentence: DefaultMinSentenceLength,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "segmenter")
	return s, nil
}

// Segment splits text into clause strings.
func (s *Segmenter) Segment(text string) []string {
	clauses, _ := s.SegmentWithStrategy(text)
	return clauses
}

// SegmentWithStrategy splits text into clause strings and reports which
// strategy produced them. Empty input yields no clauses and no strategy.
func (s *Segmenter) SegmentWithStrategy(text string) ([]string, string) {
	text = Normalize(text)
	if text == "" {
		return []string{}, ""
	}

	for _, d := range delimiters {
		pieces := splitBefore(text, d)
		if len(pieces) < 2 {
			continue
		}
		clauses := keepLonger(pieces, s.minClause)
		if len(clauses) > 0 {
			s.logger.Debug("segmented by structure", "strategy", d.name, "pieces", len(pieces), "clauses", len(clauses))
			return clauses, d.name
		}
	}

	clauses := keepLonger(splitSentences(text), s.minSentence)
	s.logger.Debug("segmented by sentence", "clauses", len(clauses))
	return clauses, StrategySentence
}

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Length is the character count used for every fragment threshold.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// splitBefore cuts text in front of every delimiter occurrence that begins the
// text or follows whitespace. A delimiter never starts inside the previous
// one. Empty pieces are dropped.
func splitBefore(text string, d delimiter) []string {
	var cuts []int
	for pos := 0; pos < len(text); pos++ {
		if pos > 0 && !isSpace(text[pos-1]) {
			continue
		}
		if d.numbered && !followsTerminator(text, pos) {
			continue
		}
		if loc := d.re.FindStringIndex(text[pos:]); loc != nil {
			cuts = append(cuts, pos)
			pos += max(loc[1]-1, 0)
		}
	}

	var pieces []string
	prev := 0
	for _, cut := range append(cuts, len(text)) {
		if piece := strings.TrimSpace(text[prev:cut]); piece != "" {
			pieces = append(pieces, piece)
		}
		prev = cut
	}
	return pieces
}

// followsTerminator reports whether pos starts the text or the last
// non-space byte before it closes a sentence or list item.
func followsTerminator(text string, pos int) bool {
	i := pos - 1
	for i >= 0 && isSpace(text[i]) {
		i--
	}
	if i < 0 {
		return true
	}
	switch text[i] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

func splitSentences(text string) []string {
	var pieces []string
	prev := 0
	for _, m := range sentenceBreak.FindAllStringIndex(text, -1) {
		// keep the terminator with its sentence
		pieces = append(pieces, strings.TrimSpace(text[prev:m[0]+1]))
		prev = m[1]
	}
	return append(pieces, strings.TrimSpace(text[prev:]))
}

func keepLonger(pieces []string, minLength int) []string {
	kept := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if Length(p) > minLength {
			kept = append(kept, p)
		}
	}
	return kept
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
