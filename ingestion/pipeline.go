package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/metrics"
	"github.com/poiesic/clausewise/risk"
	"github.com/poiesic/clausewise/section"
	"github.com/poiesic/clausewise/segment"
)

// DefaultMinFragmentLength is the length a fragment must exceed to become a clause.
const DefaultMinFragmentLength = 50

// Pipeline orchestrates the construction of clause records from text.
// It fans scanning and embedding out over a worker pool and appends results
// to its store in document order.
type Pipeline struct {
	store         *clauses.Store
	scanner       *risk.Scanner
	classifier    *section.Classifier
	segmenter     *segment.Segmenter
	pool          *ants.Pool
	embedder      ai.Embedder
	embeddingProc *embeddingProcessor
	embedTimeout  time.Duration
	minFragment   int
	metrics       metrics.Recorder
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSegmenter sets the segmenter used by IngestDocument.
// Default is a segmenter with default thresholds.
func WithSegmenter(s *segment.Segmenter) Option {
	return func(p *Pipeline) error {
		if s != nil {
			p.segmenter = s
		}
		return nil
	}
}

// WithEmbedder enables per-clause embedding. Without an embedder records are
// stored without embeddings.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(p *Pipeline) error {
		p.embedder = embedder
		return nil
	}
}

// WithEmbedTimeout bounds each embedder call. Zero means no per-call timeout.
func WithEmbedTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return fmt.Errorf("negative embed timeout %v", d)
		}
		p.embedTimeout = d
		return nil
	}
}

// WithMinFragmentLength sets the length a fragment must exceed to be kept.
// Default is DefaultMinFragmentLength.
func WithMinFragmentLength(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("negative fragment length %d", n)
		}
		p.minFragment = n
		return nil
	}
}

// WithMetrics sets the telemetry recorder.
// Default is metrics.Noop().
func WithMetrics(m metrics.Recorder) Option {
	return func(p *Pipeline) error {
		if m != nil {
			p.metrics = m
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline that appends to store.
func NewPipeline(
	store *clauses.Store,
	scanner *risk.Scanner,
	classifier *section.Classifier,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if scanner == nil {
		return nil, ErrScannerRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:       store,
		scanner:     scanner,
		classifier:  classifier,
		pool:        pool,
		minFragment: DefaultMinFragmentLength,
		metrics:     metrics.Noop(),
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	if p.segmenter == nil {
		p.segmenter, err = segment.NewSegmenter(segment.WithLogger(p.logger))
		if err != nil {
			p.Release()
			return nil, err
		}
	}

	// Create the embedding processor after options are applied
	if p.embedder != nil {
		p.embeddingProc, err = newEmbeddingProcessor(p.embedder, p.embedTimeout, p.logger)
		if err != nil {
			p.Release()
			return nil, err
		}
	}

	return p, nil
}

// Report describes one ingestion run.
type Report struct {
	// Fragments is the number of fragments considered.
	Fragments int
	// Skipped counts fragments at or below the length threshold.
	Skipped int
	// Records are the clauses appended to the store, in document order.
	Records []*core.ClauseRecord
	// Failures are segmentation and scanning failures. Their fragments
	// produced no record.
	Failures []Failure
	// EmbeddingFailures are clauses stored without an embedding.
	EmbeddingFailures []Failure
	Duration          time.Duration
}

// Embedded counts records that carry an embedding.
func (r *Report) Embedded() int {
	n := 0
	for _, rec := range r.Records {
		if rec.HasEmbedding() {
			n++
		}
	}
	return n
}

// IngestText segments text as a single chunk and ingests it.
func (p *Pipeline) IngestText(ctx context.Context, text string) (*Report, error) {
	return p.IngestDocument(ctx, []string{text})
}

// IngestDocument segments every chunk and ingests the resulting fragments in
// chunk order. A chunk that cannot be segmented is reported and skipped.
func (p *Pipeline) IngestDocument(ctx context.Context, chunks []string) (*Report, error) {
	var fragments []string
	var failures []Failure

	for i, chunk := range chunks {
		var pieces []string
		err := guard(func() error {
			pieces = p.segmenter.Segment(chunk)
			return nil
		})
		if err != nil {
			p.logger.Warn("error segmenting chunk", "chunk", i, "input", core.Preview(chunk, previewLength), "err", err)
			p.metrics.FragmentFailed(metrics.StageSegment)
			failures = append(failures, newFailure(i, StageSegment, chunk, err))
			continue
		}
		fragments = append(fragments, pieces...)
	}

	report, err := p.Build(ctx, fragments)
	if err != nil {
		return nil, err
	}
	report.Failures = append(failures, report.Failures...)
	return report, nil
}

// Build turns fragments into clause records and appends them to the store.
// Fragments whose length does not exceed the threshold are skipped. Each
// kept fragment gets a fresh id, a risk assessment and a section label, and
// then an embedding when an embedder is configured. Per-fragment failures
// are isolated and reported; only cancellation or a store error fails the
// whole call, in which case nothing is appended.
func (p *Pipeline) Build(ctx context.Context, fragments []string) (*Report, error) {
	start := time.Now()
	report := &Report{Fragments: len(fragments)}

	type candidate struct {
		fragment int
		text     string
	}
	candidates := make([]candidate, 0, len(fragments))
	for i, f := range fragments {
		f = segment.Normalize(f)
		if segment.Length(f) <= p.minFragment {
			report.Skipped++
			continue
		}
		candidates = append(candidates, candidate{fragment: i, text: f})
	}

	p.logger.Info("processing fragments", "fragments", len(fragments), "candidates", len(candidates))

	scanned := make([]*core.ClauseRecord, len(candidates))
	errs := make([]error, len(candidates))
	err := fanOut(ctx, p.pool, len(candidates), func(i int) {
		errs[i] = guard(func() error {
			r, err := p.scan(candidates[i].text)
			scanned[i] = r
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	base := p.store.Len()
	records := make([]*core.ClauseRecord, 0, len(candidates))
	origins := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if errs[i] != nil {
			p.logger.Warn("error scanning fragment", "fragment", c.fragment, "input", core.Preview(c.text, previewLength), "err", errs[i])
			p.metrics.FragmentFailed(metrics.StageScan)
			report.Failures = append(report.Failures, newFailure(c.fragment, StageScan, c.text, errs[i]))
			continue
		}
		r := scanned[i]
		r.Index = base + len(records)
		records = append(records, r)
		origins = append(origins, c.fragment)
	}

	if p.embeddingProc != nil && len(records) > 0 {
		embedded, failures, err := p.embeddingProc.process(ctx, p.pool, records, origins)
		if err != nil {
			return nil, err
		}
		for range failures {
			p.metrics.FragmentFailed(metrics.StageEmbed)
		}
		records = embedded
		report.EmbeddingFailures = failures
	}

	if err := p.store.Append(records...); err != nil {
		return nil, err
	}
	report.Records = records
	report.Duration = time.Since(start)

	byCategory := make(map[core.Severity]int, len(core.Severities))
	for _, r := range records {
		byCategory[r.RiskCategory]++
	}
	for _, s := range core.Severities {
		p.metrics.ClausesIngested(s.String(), byCategory[s])
	}
	p.metrics.IngestCompleted(report.Duration)

	p.logger.Info("ingested clauses",
		"clauses", len(records),
		"skipped", report.Skipped,
		"failures", len(report.Failures),
		"embedding_failures", len(report.EmbeddingFailures),
		"duration", report.Duration)
	return report, nil
}

// scan builds one scored, classified record.
func (p *Pipeline) scan(text string) (*core.ClauseRecord, error) {
	r := &core.ClauseRecord{
		ID:   core.NewID(),
		Text: text,
	}
	p.scanner.Scan(text).Apply(r)
	r.Section = p.classifier.Classify(text)
	if err := core.ValidateClauseRecord(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
