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
	"context"
	"math"
	"slices"
	"strconv"
	"sync"

	"github.com/poiesic/clausewise/core"
)

// Metadata keys attached to semantic hits.
const (
	MetaSection      = "section"
	MetaRiskScore    = "risk_score"
	MetaRiskCategory = "risk_category"
	MetaIndex        = "index"
)

// VectorIndex is a similarity search backend. Scores are cosine similarity,
// highest first.
type VectorIndex interface {
	Add(ctx context.Context, id core.ID, vector []float32, metadata map[string]string) error
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len() int
}

// RecordMetadata returns the clause attributes carried by semantic hits.
func RecordMetadata(r *core.ClauseRecord) map[string]string {
	return map[string]string{
		MetaSection:      r.Section,
		MetaRiskScore:    strconv.FormatFloat(r.RiskScore, 'f', -1, 64),
		MetaRiskCategory: r.RiskCategory.String(),
		MetaIndex:        strconv.Itoa(r.Index),
	}
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or with zero magnitude have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// NormalizeVector scales v to unit length. A zero vector stays zero.
func NormalizeVector(v []float32) []float32 {
	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	magnitude = math.Sqrt(magnitude)
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

type vectorEntry struct {
	id       core.ID
	vector   []float32
	metadata map[string]string
}

// MemoryVectorIndex is an in-process brute-force VectorIndex. It is safe for
// concurrent use.
type MemoryVectorIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   []vectorEntry
	positions map[core.ID]int
}

// NewMemoryVectorIndex creates an empty index. The dimension is fixed by the
// first vector added.
func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{positions: make(map[core.ID]int)}
}

// Add stores vector under id, replacing any previous vector for id.
func (m *MemoryVectorIndex) Add(_ context.Context, id core.ID, vector []float32, metadata map[string]string) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dimension == 0 {
		m.dimension = len(vector)
	} else if len(vector) != m.dimension {
		return ErrDimensionMismatch
	}

	entry := vectorEntry{id: id, vector: slices.Clone(vector), metadata: metadata}
	if i, ok := m.positions[id]; ok {
		m.entries[i] = entry
		return nil
	}
	m.positions[id] = len(m.entries)
	m.entries = append(m.entries, entry)
	return nil
}

// Search returns the k most similar vectors. Ties keep insertion order.
func (m *MemoryVectorIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.entries) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != m.dimension {
		return nil, ErrDimensionMismatch
	}

	hits := make([]Hit, 0, len(m.entries))
	for _, e := range m.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits = append(hits, Hit{ID: e.id, Score: Cosine(vector, e.vector), Metadata: e.metadata})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return hits[:min(k, len(hits))], nil
}

// Len returns the number of stored vectors.
func (m *MemoryVectorIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
