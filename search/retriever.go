package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/clausewise/ai"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
	"github.com/poiesic/clausewise/metrics"
	"github.com/poiesic/clausewise/scoring"
)

// Sub-index names used in Degradation and metrics.
const (
	IndexSemantic = "semantic"
	IndexLexical  = "lexical"
)

// Breakdown keys besides scoring.SimilarityComponent. Blended stores the
// weighted terms; RiskFirst stores the raw risk, similarity and BM25 scores.
const (
	ComponentRisk    = "risk"
	ComponentLexical = "lexical"
)

// DefaultBlendWeights weight similarity, risk and normalized lexical score.
var DefaultBlendWeights = []float64{0.5, 0.3, 0.2}

// Policy decides how merged candidates are ordered.
type Policy int

const (
	// RiskFirst orders candidates by risk score, highest first. Candidates
	// with equal risk keep merge order: semantic hits by similarity, then
	// lexical-only hits by BM25 score.
	RiskFirst Policy = iota

	// Blended orders candidates by a weighted combination of similarity,
	// risk score and lexical score.
	Blended
)

func (p Policy) String() string {
	switch p {
	case RiskFirst:
		return "risk_first"
	case Blended:
		return "blended"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "risk_first", "risk-first", "risk":
		return RiskFirst, nil
	case "blended", "blend":
		return Blended, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Degradation records a sub-index that failed during a retrieval.
type Degradation struct {
	Index string
	Err   error
}

// Result is the outcome of one retrieval.
type Result struct {
	Query      string
	Policy     Policy
	Candidates []core.CandidateResult
	// Degraded lists sub-indices that failed. The other sub-index alone
	// determined Candidates.
	Degraded []Degradation
}

// Empty reports whether nothing matched.
func (r *Result) Empty() bool {
	return len(r.Candidates) == 0
}

// IsDegraded reports whether any sub-index failed.
func (r *Result) IsDegraded() bool {
	return len(r.Degraded) > 0
}

// Retriever runs hybrid queries against a DualIndex.
type Retriever struct {
	index        *index.DualIndex
	embedder     ai.Embedder
	policy       Policy
	scorer       *scoring.Scorer
	embedTimeout time.Duration
	metrics      metrics.Recorder
	logger       *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithEmbedder enables the semantic half of retrieval.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(r *Retriever) error {
		r.embedder = embedder
		return nil
	}
}

// WithPolicy sets the ranking policy.
// Default is RiskFirst.
func WithPolicy(p Policy) Option {
	return func(r *Retriever) error {
		if p != RiskFirst && p != Blended {
			return fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
		}
		r.policy = p
		return nil
	}
}

// WithScorer sets the scorer used by the Blended policy. It must take three
// weights: similarity, risk and lexical.
// Default uses DefaultBlendWeights.
func WithScorer(s *scoring.Scorer) Option {
	return func(r *Retriever) error {
		if s == nil {
			return nil
		}
		if n := len(s.Weights()); n != 3 {
			return fmt.Errorf("%w: blended scorer needs 3 weights, got %d", scoring.ErrWeightCountMismatch, n)
		}
		r.scorer = s
		return nil
	}
}

// WithEmbedTimeout bounds the query embedding call. Zero means no timeout
// beyond the caller's context.
func WithEmbedTimeout(d time.Duration) Option {
	return func(r *Retriever) error {
		if d < 0 {
			return fmt.Errorf("negative embed timeout %v", d)
		}
		r.embedTimeout = d
		return nil
	}
}

// WithMetrics sets the telemetry recorder.
// Default is metrics.Noop().
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Retriever) error {
		if m != nil {
			r.metrics = m
		}
		return nil
	}
}

// NewRetriever creates a new retriever over idx.
func NewRetriever(idx *index.DualIndex, opts ...Option) (*Retriever, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}

	r := &Retriever{
		index:   idx,
		policy:  RiskFirst,
		metrics: metrics.Noop(),
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.scorer == nil {
		s, err := scoring.NewScorer(DefaultBlendWeights...)
		if err != nil {
			return nil, err
		}
		r.scorer = s
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// Policy returns the configured ranking policy.
func (r *Retriever) Policy() Policy {
	return r.policy
}

// Retrieve returns up to k clauses for query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*Result, error) {
	return r.RetrieveWithMonitor(ctx, query, k, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
//
// Each sub-index is asked for 2k candidates. Candidates are merged by id,
// semantic hits first, and ranked by the configured policy. An empty or
// absent index contributes nothing; a failing one is logged and listed in
// Result.Degraded. Only cancellation of ctx fails the call. A blank query or
// a non-positive k yields an empty result.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, k int, monitor SearchMonitor) (*Result, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	start := time.Now()
	result := &Result{Query: query, Policy: r.policy, Candidates: []core.CandidateResult{}}
	monitor.Start(query)

	if strings.TrimSpace(query) == "" || k <= 0 {
		monitor.Finish(result)
		return result, nil
	}

	snap := r.index.Current()
	fetch := 2 * k

	// 1. Semantic candidates
	semantic, err := r.semanticSearch(ctx, snap.Semantic, query, fetch)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("semantic search failed, using lexical results only", "err", err)
		r.degrade(result, monitor, IndexSemantic, err)
	}
	monitor.AfterSemanticSearch(semantic)

	// 2. Lexical candidates
	lexical := snap.Lexical.Search(index.Tokenize(query), fetch)
	monitor.AfterLexicalSearch(lexical)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Merge, semantic first
	merged := make([]core.CandidateResult, 0, len(semantic)+len(lexical))
	positions := make(map[core.ID]int, len(semantic)+len(lexical))
	add := func(h index.Hit, from core.Provenance) {
		if i, ok := positions[h.ID]; ok {
			merged[i].Provenance |= from
			if from == core.ProvenanceLexical {
				merged[i].LexicalScore = h.Score
			}
			return
		}
		record, ok := snap.View.Get(h.ID)
		if !ok {
			r.logger.Warn("index returned unknown clause", "id", h.ID, "index", from)
			return
		}
		c := core.CandidateResult{ID: h.ID.String(), Clause: record, Provenance: from}
		if from == core.ProvenanceSemantic {
			c.SemanticScore = h.Score
		} else {
			c.LexicalScore = h.Score
		}
		positions[h.ID] = len(merged)
		merged = append(merged, c)
	}
	for _, h := range semantic {
		add(h, core.ProvenanceSemantic)
	}
	for _, h := range lexical {
		add(h, core.ProvenanceLexical)
	}

	for i := range merged {
		c := &merged[i]
		switch {
		case c.Provenance.Has(core.ProvenanceSemantic | core.ProvenanceLexical):
			monitor.SemanticAndLexicalHit(c)
		case c.Provenance.Has(core.ProvenanceSemantic):
			monitor.SemanticHit(c)
		default:
			monitor.LexicalHit(c)
		}
	}

	// 4. Rank and truncate
	if err := r.rank(merged); err != nil {
		return nil, err
	}
	if len(merged) > k {
		merged = merged[:k]
	}
	result.Candidates = merged

	elapsed := time.Since(start)
	r.metrics.RetrievalCompleted(r.policy.String(), result.IsDegraded(), len(result.Candidates), elapsed)
	r.logger.Debug("retrieval complete",
		"query", core.Preview(query, 80),
		"semantic", len(semantic),
		"lexical", len(lexical),
		"results", len(result.Candidates),
		"degraded", result.IsDegraded(),
		"duration", elapsed)
	monitor.Finish(result)
	return result, nil
}

func (r *Retriever) semanticSearch(ctx context.Context, semantic index.VectorIndex, query string, k int) ([]index.Hit, error) {
	if r.embedder == nil || semantic == nil || semantic.Len() == 0 {
		return nil, nil
	}

	embedCtx := ctx
	if r.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
	}

	vector, err := r.embedder.EmbedText(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vector) == 0 {
		return nil, ErrEmptyQueryVector
	}
	return semantic.Search(ctx, vector, k)
}

func (r *Retriever) degrade(result *Result, monitor SearchMonitor, name string, err error) {
	result.Degraded = append(result.Degraded, Degradation{Index: name, Err: err})
	r.metrics.SubIndexFailed(name)
	monitor.SubIndexFailed(name, err)
}

// rank orders candidates in place according to the policy.
func (r *Retriever) rank(candidates []core.CandidateResult) error {
	switch r.policy {
	case Blended:
		maxLexical := 0.0
		for _, c := range candidates {
			maxLexical = max(maxLexical, c.LexicalScore)
		}
		if maxLexical <= 0 {
			maxLexical = 1
		}
		for i := range candidates {
			c := &candidates[i]
			b, err := r.scorer.Score(max(c.SemanticScore, 0),
				scoring.Feature{Name: ComponentRisk, Value: c.Clause.RiskScore, Max: 1},
				scoring.Feature{Name: ComponentLexical, Value: max(c.LexicalScore, 0), Max: maxLexical},
			)
			if err != nil {
				return err
			}
			c.Score = b.Total
			c.Breakdown = b.Map()
		}
	default:
		for i := range candidates {
			c := &candidates[i]
			c.Score = c.Clause.RiskScore
			c.Breakdown = map[string]float64{
				scoring.SimilarityComponent: c.SemanticScore,
				ComponentRisk:               c.Clause.RiskScore,
				ComponentLexical:            c.LexicalScore,
			}
		}
	}

	slices.SortStableFunc(candidates, func(a, b core.CandidateResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return nil
}
