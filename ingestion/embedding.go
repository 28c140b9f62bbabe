package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/core"
)

// embeddingProcessor attaches embeddings to clause records, one embedder
// call per clause.
type embeddingProcessor struct {
	embedder ai.Embedder
	timeout  time.Duration
	logger   *slog.Logger
}

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(embedder ai.Embedder, timeout time.Duration, logger *slog.Logger) (*embeddingProcessor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		embedder: embedder,
		timeout:  timeout,
		logger:   logger.With("processor", "embeddings"),
	}, nil
}

// process returns records with embeddings attached, in input order. A record
// whose embedding fails is returned unchanged and reported as a Failure
// carrying fragments[i], the fragment the record was built from.
func (ep *embeddingProcessor) process(ctx context.Context, pool *ants.Pool, records []*core.ClauseRecord, fragments []int) ([]*core.ClauseRecord, []Failure, error) {
	ep.logger.Debug("generating embeddings for clauses", "records", len(records))

	out := make([]*core.ClauseRecord, len(records))
	errs := make([]error, len(records))
	copy(out, records)

	err := fanOut(ctx, pool, len(records), func(i int) {
		var vector []float32
		errs[i] = guard(func() error {
			var err error
			vector, err = ep.embed(ctx, records[i].Text)
			return err
		})
		if errs[i] == nil {
			out[i] = records[i].WithEmbedding(vector)
		}
	})

	var failures []Failure
	for i, e := range errs {
		if e == nil {
			continue
		}
		r := records[i]
		ep.logger.Warn("error generating embedding", "fragment", fragments[i], "index", r.Index, "id", r.ID, "input", core.Preview(r.Text, previewLength), "err", e)
		failures = append(failures, newFailure(fragments[i], StageEmbed, r.Text, e))
	}
	return out, failures, err
}

func (ep *embeddingProcessor) embed(ctx context.Context, text string) ([]float32, error) {
	if ep.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.timeout)
		defer cancel()
	}
	vector, err := ep.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, ErrEmbeddingEmpty
	}
	return vector, nil
}
