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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/storage"
)

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of clauses embedded per call
	BatchSize int

	// ReportInterval is how often to report progress (number of clauses)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Concurrency is the number of batches embedded at once
	Concurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Concurrency:    2,
	}
}

// Result summarizes one backfill run over a snapshot.
type Result struct {
	SnapshotID core.ID
	Pending    int // clauses without an embedding when the run started
	Embedded   int
	// Failures holds one error per batch that could not be embedded. Its
	// clauses stay unembedded and are picked up by the next run.
	Failures []error
	Duration time.Duration
}

// Failed returns the number of clauses left without an embedding.
func (r *Result) Failed() int {
	return r.Pending - r.Embedded
}

// Err joins the batch failures, or returns nil.
func (r *Result) Err() error {
	return errors.Join(r.Failures...)
}

// Reembedder embeds the clauses of persisted snapshots that have none.
type Reembedder struct {
	repo      storage.ClauseRepository
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	processor *BatchProcessor
	iterator  *ClauseIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr); nil discards it
func NewReembedder(repo storage.ClauseRepository, embedder ai.Embedder, config *Config, progress io.Writer, logger *slog.Logger) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		logger:    logger.With("component", "reembedder"),
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewClauseIterator(repo, config.BatchSize),
	}, nil
}

// Run embeds every clause of snapshotID that has no embedding. A failing
// batch does not stop the run; it is listed in Result.Failures. The returned
// error is non-nil only when the snapshot cannot be read or ctx is done.
func (r *Reembedder) Run(ctx context.Context, snapshotID core.ID) (*Result, error) {
	result := &Result{SnapshotID: snapshotID}

	pending, err := r.iterator.Pending(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", snapshotID, err)
	}
	result.Pending = len(pending)
	if result.Pending == 0 {
		r.logger.Debug("snapshot fully embedded", "snapshot", snapshotID)
		return result, nil
	}

	fmt.Fprintf(r.progress, "Embedding %d clauses of snapshot %s (batch size: %d)\n",
		result.Pending, snapshotID, r.iterator.batchSize)

	workers := max(r.config.Concurrency, 1)
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	tracker := NewProgressTracker(r.progress, result.Pending, max(r.config.ReportInterval, 1))
	tracker.Start()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	iterErr := r.iterator.batches(ctx, pending, func(batch []*core.ClauseRecord) error {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			updated, err := r.processor.Process(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("batch embedding failed",
					"snapshot", snapshotID,
					"first", batch[0].Index,
					"size", len(batch),
					"err", err)
				result.Failures = append(result.Failures, err)
				return
			}
			result.Embedded += len(updated)
			tracker.Increment(len(updated))
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
		return nil
	})
	wg.Wait()
	if iterErr != nil {
		return nil, iterErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracker.Finish()
	result.Duration = tracker.Elapsed()
	fmt.Fprintf(r.progress, "Backfill complete. Embedded %d of %d clauses in %v\n",
		result.Embedded, result.Pending, result.Duration.Round(time.Millisecond))
	r.logger.Info("backfill complete",
		"snapshot", snapshotID,
		"pending", result.Pending,
		"embedded", result.Embedded,
		"failed_batches", len(result.Failures),
		"duration", result.Duration)
	return result, nil
}

// RunAll backfills every snapshot whose embedded count is below its clause
// count, newest first.
func (r *Reembedder) RunAll(ctx context.Context) ([]*Result, error) {
	snapshots, err := r.repo.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var results []*Result
	for _, snap := range snapshots {
		if snap.EmbeddedCount >= snap.ClauseCount {
			continue
		}
		res, err := r.Run(ctx, snap.ID)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		fmt.Fprintf(r.progress, "No snapshots need embeddings (%d snapshots)\n", len(snapshots))
	}
	return results, nil
}
