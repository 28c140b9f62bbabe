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

// Package clausewise ties the clause pipeline together behind a Workspace:
// documents are loaded, segmented, risk-scored and persisted as snapshots,
// then queried through the hybrid retriever and summarized.
package clausewise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/ai/openai"
	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
	"github.com/poiesic/clausewise/ingestion"
	"github.com/poiesic/clausewise/matching"
	"github.com/poiesic/clausewise/metrics"
	"github.com/poiesic/clausewise/reembed"
	"github.com/poiesic/clausewise/report"
	"github.com/poiesic/clausewise/risk"
	"github.com/poiesic/clausewise/search"
	"github.com/poiesic/clausewise/section"
	"github.com/poiesic/clausewise/sources"
	"github.com/poiesic/clausewise/storage"
	"github.com/poiesic/clausewise/storage/badger"
)

// ErrDocumentRequired is returned when a nil Document is passed.
var ErrDocumentRequired = errors.New("document required")

// Workspace owns the database and AI provider used to analyze documents.
type Workspace struct {
	backend     *badger.Backend
	clauseRepo  *badger.ClauseRepository
	profileRepo *badger.ProfileRepository
	provider    ai.AIProvider
	scanner     *risk.Scanner
	classifier  *section.Classifier
	loader      *sources.Loader
	options     *workspaceOptions
	logger      *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	lexicon       *risk.Lexicon
	classifier    *section.Classifier
	loaderOptions []sources.Option
	metrics       metrics.Recorder
	policy        search.Policy
	poolSize      int
	inMemory      bool
	logger        *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(cfg *ai.Config) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.aiConfig = cfg
	}
}

// WithAIProvider uses provider instead of creating one from the AI config.
// The workspace takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.provider = provider
	}
}

// WithLexicon sets the risk lexicon. Default is risk.DefaultLexicon().
func WithLexicon(lexicon *risk.Lexicon) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.lexicon = lexicon
	}
}

// WithClassifier sets the section classifier. Default is section.Default().
func WithClassifier(classifier *section.Classifier) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.classifier = classifier
	}
}

// WithLoaderOptions configures the document loader.
func WithLoaderOptions(opts ...sources.Option) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.loaderOptions = append(o.loaderOptions, opts...)
	}
}

// WithMetrics sets the telemetry recorder for ingestion and retrieval.
func WithMetrics(m metrics.Recorder) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.metrics = m
	}
}

// WithPolicy sets the default ranking policy of retrievers.
func WithPolicy(p search.Policy) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.policy = p
	}
}

// WithPoolSize sets the ingestion worker pool size.
func WithPoolSize(n int) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.poolSize = n
	}
}

// WithInMemory keeps the database in memory. The path passed to Open is ignored.
func WithInMemory() WorkspaceOption {
	return func(o *workspaceOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.logger = logger
	}
}

// Open opens (or creates) the workspace database at filePath.
func Open(filePath string, opts ...WorkspaceOption) (*Workspace, error) {
	options := &workspaceOptions{
		aiConfig: ai.DefaultConfig(),
		metrics:  metrics.Noop(),
		policy:   search.RiskFirst,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.aiConfig == nil {
		options.aiConfig = ai.DefaultConfig()
	}
	if options.metrics == nil {
		options.metrics = metrics.Noop()
	}
	if options.lexicon == nil {
		options.lexicon = risk.DefaultLexicon()
	}
	if options.classifier == nil {
		options.classifier = section.Default()
	}

	scanner, err := risk.NewScanner(options.lexicon)
	if err != nil {
		return nil, err
	}
	loader, err := sources.NewLoader(append([]sources.Option{sources.WithLogger(options.logger)}, options.loaderOptions...)...)
	if err != nil {
		return nil, err
	}

	var clauseRepo *badger.ClauseRepository
	var profileRepo *badger.ProfileRepository
	var backend *badger.Backend
	if options.inMemory {
		clauseRepo, profileRepo, backend, err = badger.NewMemoryRepositories()
	} else {
		clauseRepo, profileRepo, backend, err = badger.NewRepositories(filePath, options.logger)
	}
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			profileRepo.Close()
			clauseRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Workspace{
		backend:     backend,
		clauseRepo:  clauseRepo,
		profileRepo: profileRepo,
		provider:    provider,
		scanner:     scanner,
		classifier:  options.classifier,
		loader:      loader,
		options:     options,
		logger:      options.logger.With("component", "workspace"),
	}, nil
}

// Close releases the AI provider, the repositories and the database.
func (w *Workspace) Close() error {
	// Close AI provider first
	if err := w.provider.Close(); err != nil {
		w.logger.Error("error closing AI provider", "err", err)
	}

	if err := w.profileRepo.Close(); err != nil {
		w.logger.Error("error closing profile repository", "err", err)
		return err
	}
	if err := w.clauseRepo.Close(); err != nil {
		w.logger.Error("error closing clause repository", "err", err)
		return err
	}
	if err := w.backend.Close(); err != nil {
		w.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// ClauseRepository returns the snapshot store.
func (w *Workspace) ClauseRepository() storage.ClauseRepository {
	return w.clauseRepo
}

// ProfileRepository returns the profile store.
func (w *Workspace) ProfileRepository() storage.ProfileRepository {
	return w.profileRepo
}

// Document is an analyzed document: its persisted snapshot, the clause store
// loaded from it and the dual index over the store.
type Document struct {
	Snapshot *core.Snapshot
	Store    *clauses.Store
	Index    *index.DualIndex
	// Report describes the ingestion run; nil when an existing snapshot was reused.
	Report *ingestion.Report
	// Reused is set when a snapshot with the same content fingerprint existed.
	Reused bool
}

// Stats returns the document's clause statistics.
func (d *Document) Stats() clauses.Stats {
	return d.Store.Stats()
}

// Ingest loads pathOrURL and analyzes it. A document whose extracted text
// was analyzed before is loaded from its snapshot instead of re-segmented.
func (w *Workspace) Ingest(ctx context.Context, pathOrURL string) (*Document, error) {
	text, err := w.loader.Extract(ctx, pathOrURL)
	if err != nil {
		return nil, err
	}
	return w.ingest(ctx, pathOrURL, text)
}

// IngestText analyzes raw text under the given source name.
func (w *Workspace) IngestText(ctx context.Context, source, text string) (*Document, error) {
	text = sources.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", sources.ErrEmptyDocument, source)
	}
	return w.ingest(ctx, source, text)
}

func (w *Workspace) ingest(ctx context.Context, source, text string) (*Document, error) {
	fingerprint := core.FingerprintFromContent(text)
	existing, err := w.clauseRepo.FindSnapshotByFingerprint(ctx, fingerprint)
	switch {
	case err == nil:
		w.logger.Info("reusing snapshot", "source", source, "snapshot", existing.ID)
		doc, err := w.OpenSnapshot(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		doc.Reused = true
		return doc, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	chunks, err := w.loader.Split(text)
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", source, err)
	}

	store := clauses.NewStore()
	pipeline, err := w.NewIngestionPipeline(store)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	rep, err := pipeline.IngestDocument(ctx, chunks)
	if err != nil {
		return nil, err
	}

	snap, err := w.clauseRepo.SaveSnapshot(ctx, &core.Snapshot{Source: source, Fingerprint: fingerprint}, store.Snapshot().Records())
	if err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	w.logger.Info("ingested document",
		"source", source,
		"snapshot", snap.ID,
		"chunks", len(chunks),
		"clauses", snap.ClauseCount,
		"embedded", snap.EmbeddedCount,
		"failures", len(rep.Failures),
		"duration", rep.Duration)

	idx, err := w.buildIndex(ctx, snap.ID, store)
	if err != nil {
		return nil, err
	}
	return &Document{Snapshot: snap, Store: store, Index: idx, Report: rep}, nil
}

// OpenSnapshot loads a persisted snapshot and indexes it.
func (w *Workspace) OpenSnapshot(ctx context.Context, id core.ID) (*Document, error) {
	snap, records, err := w.clauseRepo.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	store := clauses.NewStore()
	if err := store.Replace(records); err != nil {
		return nil, err
	}
	idx, err := w.buildIndex(ctx, id, store)
	if err != nil {
		return nil, err
	}
	return &Document{Snapshot: snap, Store: store, Index: idx}, nil
}

// Snapshots lists the persisted snapshots, newest first.
func (w *Workspace) Snapshots(ctx context.Context) ([]*core.Snapshot, error) {
	return w.clauseRepo.ListSnapshots(ctx)
}

func (w *Workspace) buildIndex(ctx context.Context, snapshotID core.ID, store *clauses.Store) (*index.DualIndex, error) {
	idx, err := index.NewDualIndex(
		index.WithLogger(w.options.logger),
		index.WithVectorIndexFactory(badger.SnapshotIndexFactory(w.clauseRepo, snapshotID)),
	)
	if err != nil {
		return nil, err
	}
	stats, err := idx.Build(ctx, store.Snapshot())
	if err != nil {
		return nil, err
	}
	if stats.SemanticFailed || stats.SemanticErrors > 0 {
		w.options.metrics.SubIndexFailed(search.IndexSemantic)
	}
	return idx, nil
}

// NewIngestionPipeline creates a pipeline that appends to store with the
// workspace's scanner, classifier, embedder and metrics.
func (w *Workspace) NewIngestionPipeline(store *clauses.Store, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithLogger(w.options.logger),
		ingestion.WithEmbedder(w.provider.Embedder()),
		ingestion.WithEmbedTimeout(w.options.aiConfig.EmbedTimeout),
		ingestion.WithMetrics(w.options.metrics),
	}
	if w.options.poolSize > 0 {
		base = append(base, ingestion.WithPoolSize(w.options.poolSize))
	}
	return ingestion.NewPipeline(store, w.scanner, w.classifier, append(base, opts...)...)
}

// NewRetriever creates a retriever over doc's index.
func (w *Workspace) NewRetriever(doc *Document, opts ...search.Option) (*search.Retriever, error) {
	if doc == nil {
		return nil, ErrDocumentRequired
	}
	base := []search.Option{
		search.WithLogger(w.options.logger),
		search.WithEmbedder(w.provider.Embedder()),
		search.WithEmbedTimeout(w.options.aiConfig.EmbedTimeout),
		search.WithPolicy(w.options.policy),
		search.WithMetrics(w.options.metrics),
	}
	return search.NewRetriever(doc.Index, append(base, opts...)...)
}

// Analysis is the answer to one query.
type Analysis struct {
	Result  *search.Result
	Request ai.SummaryRequest
	Summary string
	// SummaryErr is set when the summarizer failed; Result is still valid.
	SummaryErr error
}

// Query retrieves up to k clauses for query and summarizes them. A query
// that matches nothing is answered without calling the summarizer.
func (w *Workspace) Query(ctx context.Context, doc *Document, query string, k int, opts ...search.Option) (*Analysis, error) {
	retriever, err := w.NewRetriever(doc, opts...)
	if err != nil {
		return nil, err
	}
	result, err := retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{Result: result}
	if result.Empty() {
		analysis.Summary = report.NoMatches
		return analysis, nil
	}

	analysis.Request = report.BuildContext(query, doc.Stats(), result.Candidates, doc.Store.Snapshot().Records())
	summary, err := w.provider.Summarizer().Summarize(ctx, analysis.Request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		w.logger.Warn("summarizer failed, returning ranked clauses only", "err", err)
		analysis.SummaryErr = err
		return analysis, nil
	}
	analysis.Summary = summary
	return analysis, nil
}

// Overview renders the no-query risk report of doc.
func (w *Workspace) Overview(doc *Document) string {
	return report.Overview(doc.Stats(), doc.Store.Snapshot().Records())
}

// NewMatcher creates a profile matcher over the workspace's profile store.
func (w *Workspace) NewMatcher(opts ...matching.Option) (*matching.Matcher, error) {
	return matching.NewMatcher(w.profileRepo, w.provider.Embedder(),
		append([]matching.Option{matching.WithLogger(w.options.logger)}, opts...)...)
}

// NewReembedder creates an embedding backfill over the workspace's snapshots.
// progress may be nil.
func (w *Workspace) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(w.clauseRepo, w.provider.Embedder(), config, progress, w.options.logger)
}
