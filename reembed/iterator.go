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

package reembed

import (
	"context"

	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/storage"
)

const (
	// DefaultBatchSize is the default number of clauses embedded per call
	DefaultBatchSize = 100
)

// ClauseIterator walks the clauses of one snapshot that lack an embedding.
type ClauseIterator struct {
	repo      storage.ClauseRepository
	batchSize int
}

// NewClauseIterator creates a new clause iterator.
// A non-positive batchSize falls back to DefaultBatchSize.
func NewClauseIterator(repo storage.ClauseRepository, batchSize int) *ClauseIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ClauseIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// Pending returns the clauses of snapshotID that have no embedding, in
// document order.
func (it *ClauseIterator) Pending(ctx context.Context, snapshotID core.ID) ([]*core.ClauseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return it.repo.GetClausesMissingEmbeddings(ctx, snapshotID)
}

// ForEach calls fn with consecutive batches of the snapshot's unembedded
// clauses. Iteration stops on the first error from fn. Context cancellation
// is checked between batches.
func (it *ClauseIterator) ForEach(ctx context.Context, snapshotID core.ID, fn func([]*core.ClauseRecord) error) error {
	records, err := it.Pending(ctx, snapshotID)
	if err != nil {
		return err
	}
	return it.batches(ctx, records, fn)
}

func (it *ClauseIterator) batches(ctx context.Context, records []*core.ClauseRecord, fn func([]*core.ClauseRecord) error) error {
	for i := 0; i < len(records); i += it.batchSize {
		end := min(i+it.batchSize, len(records))
		if err := fn(records[i:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
