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
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/clausewise/clauses"
)

// VectorIndexFactory creates the semantic index for a rebuild.
type VectorIndexFactory func(ctx context.Context, view *clauses.View) (VectorIndex, error)

// MemoryFactory returns a fresh MemoryVectorIndex for every build.
func MemoryFactory(context.Context, *clauses.View) (VectorIndex, error) {
	return NewMemoryVectorIndex(), nil
}

// Snapshot is one consistent build: the clause view plus both indices over it.
// Semantic is nil when no semantic index could be built.
type Snapshot struct {
	View     *clauses.View
	Lexical  *Lexical
	Semantic VectorIndex
}

// BuildStats reports what a build indexed.
type BuildStats struct {
	Lexical        int
	Semantic       int
	SemanticErrors int
	SemanticFailed bool
}

// DualIndex holds the current Snapshot and replaces it wholesale on Build.
type DualIndex struct {
	current atomic.Pointer[Snapshot]
	factory VectorIndexFactory
	logger  *slog.Logger
}

// Option configures a DualIndex.
type Option func(*DualIndex) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *DualIndex) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// WithVectorIndexFactory sets how the semantic index is created on each build.
// Default is MemoryFactory.
func WithVectorIndexFactory(factory VectorIndexFactory) Option {
	return func(d *DualIndex) error {
		if factory != nil {
			d.factory = factory
		}
		return nil
	}
}

// NewDualIndex creates an index pair over an empty view.
func NewDualIndex(opts ...Option) (*DualIndex, error) {
	d := &DualIndex{
		factory: MemoryFactory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "dual-index")
	d.current.Store(&Snapshot{View: clauses.NewStore().Snapshot(), Lexical: NewLexical(nil)})
	return d, nil
}

// Current returns the published snapshot.
func (d *DualIndex) Current() *Snapshot {
	return d.current.Load()
}

// Build indexes every record of view and publishes the result. Records
// without embeddings are left out of the semantic index. A semantic index
// that cannot be created or filled is logged and reported in BuildStats; the
// lexical index is always published.
func (d *DualIndex) Build(ctx context.Context, view *clauses.View) (BuildStats, error) {
	if view == nil {
		return BuildStats{}, ErrViewRequired
	}

	records := view.Records()
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{ID: r.ID, Text: r.Text}
	}
	snap := &Snapshot{View: view, Lexical: NewLexical(docs)}
	stats := BuildStats{Lexical: len(docs)}

	semantic, err := d.factory(ctx, view)
	if err != nil {
		d.logger.Warn("semantic index unavailable", "err", err)
		stats.SemanticFailed = true
	} else {
		for _, r := range records {
			if !r.HasEmbedding() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := semantic.Add(ctx, r.ID, r.Embedding, RecordMetadata(r)); err != nil {
				d.logger.Warn("error adding clause to semantic index", "id", r.ID, "index", r.Index, "err", err)
				stats.SemanticErrors++
				continue
			}
			stats.Semantic++
		}
		snap.Semantic = semantic
	}

	d.current.Store(snap)
	d.logger.Debug("index built", "lexical", stats.Lexical, "semantic", stats.Semantic, "semantic_errors", stats.SemanticErrors)
	return stats, nil
}
