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

package index

import (
	"math"
	"slices"
	"strings"

	"github.com/poiesic/clausewise/core"
)

// BM25 Okapi parameters.
const (
	K1 = 1.5
	B  = 0.75
	// Epsilon scales the mean idf that replaces negative idf values.
	Epsilon = 0.25
)

// Hit is one ranked search result.
type Hit struct {
	ID       core.ID
	Score    float64
	Metadata map[string]string
}

// Document is one unit of text to index.
type Document struct {
	ID   core.ID
	Text string
}

// Tokenize lowercases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Lexical is an immutable BM25 Okapi index.
type Lexical struct {
	ids      []core.ID
	termFreq []map[string]int
	docLen   []int
	avgLen   float64
	idf      map[string]float64
}

// NewLexical indexes docs. Document order is the tie-break order for search.
func NewLexical(docs []Document) *Lexical {
	l := &Lexical{
		ids:      make([]core.ID, len(docs)),
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		idf:      make(map[string]float64),
	}
	if len(docs) == 0 {
		return l
	}

	docFreq := make(map[string]int)
	total := 0
	for i, d := range docs {
		tokens := Tokenize(d.Text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			docFreq[tok]++
		}
		l.ids[i] = d.ID
		l.termFreq[i] = tf
		l.docLen[i] = len(tokens)
		total += len(tokens)
	}
	l.avgLen = float64(total) / float64(len(docs))

	n := float64(len(docs))
	sum := 0.0
	var negative []string
	for tok, df := range docFreq {
		idf := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		l.idf[tok] = idf
		sum += idf
		if idf < 0 {
			negative = append(negative, tok)
		}
	}
	eps := Epsilon * sum / float64(len(docFreq))
	for _, tok := range negative {
		l.idf[tok] = eps
	}
	return l
}

// Len returns the number of indexed documents.
func (l *Lexical) Len() int {
	return len(l.ids)
}

// IDF returns the inverse document frequency of token, or 0 if unseen.
func (l *Lexical) IDF(token string) float64 {
	return l.idf[token]
}

// Scores returns the BM25 score of every document for the query tokens, in
// document order. Repeated query tokens count once per occurrence.
func (l *Lexical) Scores(tokens []string) []float64 {
	scores := make([]float64, len(l.ids))
	if l.avgLen == 0 {
		return scores
	}
	for _, tok := range tokens {
		idf, ok := l.idf[tok]
		if !ok {
			continue
		}
		for i, tf := range l.termFreq {
			freq := float64(tf[tok])
			if freq == 0 {
				continue
			}
			norm := freq + K1*(1-B+B*float64(l.docLen[i])/l.avgLen)
			scores[i] += idf * freq * (K1 + 1) / norm
		}
	}
	return scores
}

// Search ranks every document by score, highest first, and returns the top
// k. Ties keep document order. Documents scoring zero are included when
// fewer than k documents score higher.
func (l *Lexical) Search(tokens []string, k int) []Hit {
	if k <= 0 || len(l.ids) == 0 {
		return []Hit{}
	}

	scores := l.Scores(tokens)
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})

	n := min(k, len(order))
	hits := make([]Hit, 0, n)
	for _, i := range order[:n] {
		hits = append(hits, Hit{ID: l.ids[i], Score: scores[i]})
	}
	return hits
}
