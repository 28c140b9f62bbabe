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

// Package scoring combines a similarity score with normalized numeric
// features under a fixed weight vector.
//
// The same Scorer ranks clauses in the blended retrieval policy and ranks
// profiles against a case description.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrWeightCountMismatch is returned when the number of weights is not one
	// more than the number of features.
	ErrWeightCountMismatch = errors.New("weight count does not match feature count")

	// ErrInvalidMax is returned for a feature whose maximum is not positive.
	ErrInvalidMax = errors.New("feature maximum must be positive")

	// ErrNoWeights is returned when a scorer is built without weights.
	ErrNoWeights = errors.New("at least one weight required")

	// ErrInvalidWeight is returned for NaN or infinite weights.
	ErrInvalidWeight = errors.New("weight must be finite")
)

// SimilarityComponent is the breakdown key of the similarity term.
const SimilarityComponent = "similarity"

// Feature is one raw numeric signal and the value at which it saturates.
type Feature struct {
	Name  string
	Value float64
	Max   float64
}

// Contribution is one weighted term of a score.
type Contribution struct {
	Name       string
	Normalized float64
	Weight     float64
}

// Weighted returns the term's share of the total.
func (c Contribution) Weighted() float64 {
	return c.Normalized * c.Weight
}

// Breakdown is a score together with the terms that produced it. The first
// contribution is always the similarity term.
type Breakdown struct {
	Total         float64
	Contributions []Contribution
}

// Map returns the weighted terms keyed by name.
func (b Breakdown) Map() map[string]float64 {
	m := make(map[string]float64, len(b.Contributions))
	for _, c := range b.Contributions {
		m[c.Name] = c.Weighted()
	}
	return m
}

// Scorer computes w0*similarity + sum(wi * min(value_i/max_i, 1)).
// Weights are used as given; a vector that does not sum to 1 yields totals
// outside [0, 1].
type Scorer struct {
	weights []float64
}

// NewScorer creates a scorer. The first weight applies to similarity, the
// rest to features in order.
func NewScorer(weights ...float64) (*Scorer, error) {
	if len(weights) == 0 {
		return nil, ErrNoWeights
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight %d is %v", ErrInvalidWeight, i, w)
		}
	}
	return &Scorer{weights: append([]float64(nil), weights...)}, nil
}

// MustNewScorer is like NewScorer but panics on error.
func MustNewScorer(weights ...float64) *Scorer {
	s, err := NewScorer(weights...)
	if err != nil {
		panic(err)
	}
	return s
}

// Weights returns a copy of the weight vector.
func (s *Scorer) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

// Score combines similarity with features.
func (s *Scorer) Score(similarity float64, features ...Feature) (Breakdown, error) {
	if len(s.weights) != len(features)+1 {
		return Breakdown{}, fmt.Errorf("%w: %d weights for %d features", ErrWeightCountMismatch, len(s.weights), len(features))
	}

	b := Breakdown{Contributions: make([]Contribution, 0, len(s.weights))}
	b.Contributions = append(b.Contributions, Contribution{
		Name:       SimilarityComponent,
		Normalized: similarity,
		Weight:     s.weights[0],
	})

	for i, f := range features {
		if f.Max <= 0 {
			return Breakdown{}, fmt.Errorf("%w: %s has max %v", ErrInvalidMax, featureName(f, i), f.Max)
		}
		b.Contributions = append(b.Contributions, Contribution{
			Name:       featureName(f, i),
			Normalized: Normalize(f.Value, f.Max),
			Weight:     s.weights[i+1],
		})
	}

	for _, c := range b.Contributions {
		b.Total += c.Weighted()
	}
	return b, nil
}

// Normalize returns min(value/limit, 1). Callers ensure limit > 0.
func Normalize(value, limit float64) float64 {
	return math.Min(value/limit, 1.0)
}

func featureName(f Feature, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("feature_%d", i)
}
