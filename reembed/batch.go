package reembed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
	"github.com/poiesic/clausewise/storage"
)

// BatchProcessor embeds batches of clauses and writes the vectors back.
type BatchProcessor struct {
	repo           storage.ClauseRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration

	// writes of one snapshot touch the same manifest key and would conflict
	writeMu sync.Mutex
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ClauseRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the clause texts and persists normalized vectors. Only the
// embedding of each stored clause changes. The input records are not
// modified; the updated copies are returned. Safe for concurrent use.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.ClauseRecord) ([]*core.ClauseRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("embedding %d clauses after %d attempts: %w", len(records), bp.maxRetries, err)
	}
	if len(embeddings) != len(records) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(records), len(embeddings))
	}

	updated := make([]*core.ClauseRecord, len(records))
	for i, record := range records {
		if len(embeddings[i]) == 0 {
			return nil, fmt.Errorf("%w: empty vector for clause %d", ErrEmbeddingMismatch, record.Index)
		}
		updated[i] = record.WithEmbedding(index.NormalizeVector(embeddings[i]))
	}

	bp.writeMu.Lock()
	defer bp.writeMu.Unlock()
	if err := bp.repo.UpdateEmbeddings(ctx, updated...); err != nil {
		return nil, fmt.Errorf("updating embeddings: %w", err)
	}
	return updated, nil
}
