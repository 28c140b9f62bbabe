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

package badger

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
)

// anySimilarity is below every cosine similarity.
const anySimilarity = -2

// SnapshotIndex is an index.VectorIndex whose vectors live in a persisted
// snapshot. Added vectors are written through to the clause records, so a
// reopened workspace searches the same embeddings without re-embedding.
type SnapshotIndex struct {
	repo       *ClauseRepository
	snapshotID core.ID

	mu        sync.RWMutex
	dimension int
	metadata  map[core.ID]map[string]string
}

var _ index.VectorIndex = (*SnapshotIndex)(nil)

// NewSnapshotIndex creates an empty index over the snapshot with the given ID.
func NewSnapshotIndex(repo *ClauseRepository, snapshotID core.ID) *SnapshotIndex {
	return &SnapshotIndex{
		repo:       repo,
		snapshotID: snapshotID,
		metadata:   make(map[core.ID]map[string]string),
	}
}

// SnapshotIndexFactory returns a factory that builds a SnapshotIndex for the
// snapshot with the given ID, for use with index.WithVectorIndexFactory.
func SnapshotIndexFactory(repo *ClauseRepository, snapshotID core.ID) index.VectorIndexFactory {
	return func(ctx context.Context, _ *clauses.View) (index.VectorIndex, error) {
		if _, err := repo.GetSnapshot(ctx, snapshotID); err != nil {
			return nil, err
		}
		return NewSnapshotIndex(repo, snapshotID), nil
	}
}

// Add persists vector as the embedding of clause id. The clause must belong
// to the index's snapshot.
func (s *SnapshotIndex) Add(ctx context.Context, id core.ID, vector []float32, metadata map[string]string) error {
	if len(vector) == 0 {
		return index.ErrEmptyVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && len(vector) != s.dimension {
		return index.ErrDimensionMismatch
	}

	stored, err := s.repo.GetClause(ctx, id)
	if err != nil {
		return err
	}
	if !slices.Equal(stored.Embedding, vector) {
		if err := s.repo.UpdateEmbeddings(ctx, stored.WithEmbedding(slices.Clone(vector))); err != nil {
			return err
		}
	}

	if s.dimension == 0 {
		s.dimension = len(vector)
	}
	if metadata == nil {
		metadata = index.RecordMetadata(stored)
	}
	s.metadata[id] = metadata
	return nil
}

// Search returns the k added clauses most similar to vector. Ties keep
// document order.
func (s *SnapshotIndex) Search(ctx context.Context, vector []float32, k int) ([]index.Hit, error) {
	if len(vector) == 0 {
		return nil, index.ErrEmptyVector
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.metadata) == 0 {
		return []index.Hit{}, nil
	}
	if len(vector) != s.dimension {
		return nil, index.ErrDimensionMismatch
	}

	matches, err := s.repo.FindSimilar(ctx, s.snapshotID, vector, anySimilarity, -1)
	if err != nil {
		return nil, err
	}

	hits := make([]index.Hit, 0, min(k, len(matches)))
	for _, m := range matches {
		metadata, ok := s.metadata[m.Record.ID]
		if !ok {
			continue
		}
		hits = append(hits, index.Hit{ID: m.Record.ID, Score: float64(m.Score), Metadata: metadata})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// Len returns the number of clauses added to the index.
func (s *SnapshotIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metadata)
}
