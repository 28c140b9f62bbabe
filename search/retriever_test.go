package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/clausewise/ai/mock"
	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
	"github.com/poiesic/clausewise/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const query = "indemnify customer"

// recordingMonitor implements SearchMonitor for testing
type recordingMonitor struct {
	started  string
	semantic []index.Hit
	lexical  []index.Hit
	failed   []string
	both     int
	semOnly  int
	lexOnly  int
	finished *Result
}

func (m *recordingMonitor) Start(q string)                           { m.started = q }
func (m *recordingMonitor) AfterSemanticSearch(hits []index.Hit)     { m.semantic = hits }
func (m *recordingMonitor) AfterLexicalSearch(hits []index.Hit)      { m.lexical = hits }
func (m *recordingMonitor) SubIndexFailed(name string, _ error)      { m.failed = append(m.failed, name) }
func (m *recordingMonitor) SemanticAndLexicalHit(*core.CandidateResult) { m.both++ }
func (m *recordingMonitor) SemanticHit(*core.CandidateResult)        { m.semOnly++ }
func (m *recordingMonitor) LexicalHit(*core.CandidateResult)         { m.lexOnly++ }
func (m *recordingMonitor) Finish(r *Result)                         { m.finished = r }

// recordingMetrics implements metrics.Recorder for testing
type recordingMetrics struct {
	policy   string
	degraded bool
	results  int
	failed   []string
}

func (m *recordingMetrics) ClausesIngested(string, int)    {}
func (m *recordingMetrics) FragmentFailed(string)          {}
func (m *recordingMetrics) IngestCompleted(time.Duration) {}
func (m *recordingMetrics) RetrievalCompleted(policy string, degraded bool, results int, _ time.Duration) {
	m.policy, m.degraded, m.results = policy, degraded, results
}
func (m *recordingMetrics) SubIndexFailed(name string) { m.failed = append(m.failed, name) }

type fixture struct {
	indemnify   *core.ClauseRecord // HIGH 0.8, semantic and lexical match
	payment     *core.ClauseRecord // LOW
	termination *core.ClauseRecord // HIGH 0.7, semantic neighbour
	filler1     *core.ClauseRecord
	filler2     *core.ClauseRecord
	unlimited   *core.ClauseRecord // CRITICAL, matched by neither index
	index       *index.DualIndex
}

func record(text string, score float64, embedding []float32) *core.ClauseRecord {
	return &core.ClauseRecord{
		ID:           core.NewID(),
		Text:         text,
		Section:      "General",
		RiskScore:    score,
		RiskCategory: core.CategoryForScore(score),
		Embedding:    embedding,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		indemnify:   record("The Supplier shall indemnify the Customer.", 0.8, []float32{1, 0}),
		payment:     record("Payment is due within thirty days of invoice.", 0.3, []float32{0, 1}),
		termination: record("Either party may terminate for convenience.", 0.7, []float32{0.7, 0.7}),
		filler1:     record("Headings are for convenience of reference only.", 0.3, []float32{0, 1}),
		filler2:     record("This document may be signed in counterparts.", 0.3, []float32{0, 1}),
		unlimited:   record("The Guarantor accepts unlimited liability.", 1.0, nil),
	}

	store := clauses.NewStore()
	require.NoError(t, store.Append(f.indemnify, f.payment, f.termination, f.filler1, f.filler2, f.unlimited))

	idx, err := index.NewDualIndex()
	require.NoError(t, err)
	_, err = idx.Build(context.Background(), store.Snapshot())
	require.NoError(t, err)
	f.index = idx
	return f
}

func queryEmbedder() *mock.MockEmbedder {
	return mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	})
}

func ids(candidates []core.CandidateResult) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.ID
	}
	return out
}

func TestNewRetriever_Validation(t *testing.T) {
	_, err := NewRetriever(nil)
	assert.ErrorIs(t, err, ErrIndexRequired)

	idx, err := index.NewDualIndex()
	require.NoError(t, err)

	_, err = NewRetriever(idx, WithScorer(scoring.MustNewScorer(0.5, 0.5)))
	assert.ErrorIs(t, err, scoring.ErrWeightCountMismatch)

	_, err = NewRetriever(idx, WithPolicy(Policy(7)))
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	r, err := NewRetriever(idx)
	require.NoError(t, err)
	assert.Equal(t, RiskFirst, r.Policy())
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": RiskFirst, "risk_first": RiskFirst, "RISK-FIRST": RiskFirst, "blended": Blended} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("random")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
	assert.Equal(t, "blended", Blended.String())
}

func TestRetrieve_OnlyIndexedCandidates(t *testing.T) {
	f := newFixture(t)
	r, err := NewRetriever(f.index, WithEmbedder(queryEmbedder()))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := r.RetrieveWithMonitor(context.Background(), query, 2, monitor)
	require.NoError(t, err)

	retrieved := map[string]bool{}
	for _, h := range monitor.semantic {
		retrieved[h.ID.String()] = true
	}
	for _, h := range monitor.lexical {
		retrieved[h.ID.String()] = true
	}
	for _, c := range result.Candidates {
		assert.True(t, retrieved[c.ID], "candidate %s was not returned by either index", c.ID)
	}

	assert.Len(t, monitor.semantic, 4)
	assert.Len(t, monitor.lexical, 4)
	assert.NotContains(t, ids(result.Candidates), f.unlimited.ID.String())
	assert.Equal(t, []string{f.indemnify.ID.String(), f.termination.ID.String()}, ids(result.Candidates))
	assert.Equal(t, query, monitor.started)
	assert.Same(t, result, monitor.finished)
	assert.False(t, result.IsDegraded())
}

func TestRetrieve_RiskFirstOrdering(t *testing.T) {
	f := newFixture(t)
	r, err := NewRetriever(f.index, WithEmbedder(queryEmbedder()))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), query, 5)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	assert.Equal(t, f.unlimited.ID.String(), result.Candidates[0].ID)
	for i := 1; i < len(result.Candidates); i++ {
		assert.GreaterOrEqual(t, result.Candidates[i-1].Clause.RiskScore, result.Candidates[i].Clause.RiskScore)
		assert.Equal(t, result.Candidates[i].Clause.RiskScore, result.Candidates[i].Score)
	}
}

func TestRetrieve_Provenance(t *testing.T) {
	f := newFixture(t)
	r, err := NewRetriever(f.index, WithEmbedder(queryEmbedder()))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := r.RetrieveWithMonitor(context.Background(), query, 2, monitor)
	require.NoError(t, err)

	top := result.Candidates[0]
	assert.Equal(t, core.ProvenanceSemantic|core.ProvenanceLexical, top.Provenance)
	assert.InDelta(t, 1.0, top.SemanticScore, 1e-6)
	assert.Greater(t, top.LexicalScore, 0.0)

	second := result.Candidates[1]
	assert.True(t, second.Provenance.Has(core.ProvenanceSemantic))
	assert.InDelta(t, 0.7071, second.SemanticScore, 1e-3)

	assert.Equal(t, 4, monitor.both)
}

func TestRetrieve_SemanticFailureDegrades(t *testing.T) {
	f := newFixture(t)
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	})
	rec := &recordingMetrics{}
	r, err := NewRetriever(f.index, WithEmbedder(embedder), WithMetrics(rec))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	result, err := r.RetrieveWithMonitor(context.Background(), query, 2, monitor)
	require.NoError(t, err)

	require.True(t, result.IsDegraded())
	assert.Equal(t, IndexSemantic, result.Degraded[0].Index)
	assert.ErrorContains(t, result.Degraded[0].Err, "embedding service down")
	assert.Equal(t, []string{IndexSemantic}, monitor.failed)
	assert.Equal(t, []string{IndexSemantic}, rec.failed)
	assert.True(t, rec.degraded)

	require.Len(t, result.Candidates, 2)
	for _, c := range result.Candidates {
		assert.Equal(t, core.ProvenanceLexical, c.Provenance)
	}
	assert.Equal(t, f.indemnify.ID.String(), result.Candidates[0].ID)
}

func TestRetrieve_EmbedTimeoutDegrades(t *testing.T) {
	f := newFixture(t)
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r, err := NewRetriever(f.index, WithEmbedder(embedder), WithEmbedTimeout(10*time.Millisecond))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), query, 2)
	require.NoError(t, err)
	require.True(t, result.IsDegraded())
	assert.ErrorIs(t, result.Degraded[0].Err, context.DeadlineExceeded)
	assert.False(t, result.Empty())
}

func TestRetrieve_LexicalOnlyWithoutEmbedder(t *testing.T) {
	f := newFixture(t)
	r, err := NewRetriever(f.index)
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), query, 3)
	require.NoError(t, err)
	assert.False(t, result.IsDegraded())
	require.Len(t, result.Candidates, 3)
	for _, c := range result.Candidates {
		assert.Equal(t, core.ProvenanceLexical, c.Provenance)
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	idx, err := index.NewDualIndex()
	require.NoError(t, err)
	r, err := NewRetriever(idx, WithEmbedder(queryEmbedder()))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), query, 5)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.False(t, result.IsDegraded())
}

func TestRetrieve_BlankQueryAndZeroK(t *testing.T) {
	f := newFixture(t)
	embedder := queryEmbedder()
	r, err := NewRetriever(f.index, WithEmbedder(embedder))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.True(t, result.Empty())

	result, err = r.Retrieve(context.Background(), query, 0)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.Equal(t, 0, embedder.CallCount())
}

func TestRetrieve_CancelledContext(t *testing.T) {
	f := newFixture(t)
	r, err := NewRetriever(f.index, WithEmbedder(queryEmbedder()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Retrieve(ctx, query, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrieve_Blended(t *testing.T) {
	f := newFixture(t)
	rec := &recordingMetrics{}
	r, err := NewRetriever(f.index, WithEmbedder(queryEmbedder()), WithPolicy(Blended), WithMetrics(rec))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), query, 3)
	require.NoError(t, err)

	require.Len(t, result.Candidates, 3)
	assert.Equal(t, []string{f.indemnify.ID.String(), f.termination.ID.String(), f.unlimited.ID.String()}, ids(result.Candidates))

	top := result.Candidates[0]
	assert.InDelta(t, 0.94, top.Score, 1e-6)
	assert.InDelta(t, 0.5, top.Breakdown[scoring.SimilarityComponent], 1e-6)
	assert.InDelta(t, 0.24, top.Breakdown[ComponentRisk], 1e-6)
	assert.InDelta(t, 0.2, top.Breakdown[ComponentLexical], 1e-6)

	assert.InDelta(t, 0.5*0.70710678+0.3*0.7, result.Candidates[1].Score, 1e-4)
	assert.InDelta(t, 0.3, result.Candidates[2].Score, 1e-6)

	assert.Equal(t, "blended", rec.policy)
	assert.Equal(t, 3, rec.results)
}

func TestRetrieve_RiskFirstBreakdown(t *testing.T) {
	f := newFixture(t)
	r, err := NewRetriever(f.index, WithEmbedder(queryEmbedder()))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), query, 2)
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)

	for _, c := range result.Candidates {
		require.Len(t, c.Breakdown, 3)
		assert.Equal(t, c.Clause.RiskScore, c.Breakdown[ComponentRisk])
		assert.Equal(t, c.SemanticScore, c.Breakdown[scoring.SimilarityComponent])
		assert.Equal(t, c.LexicalScore, c.Breakdown[ComponentLexical])
	}

	top := result.Candidates[0]
	assert.Equal(t, f.indemnify.ID.String(), top.ID)
	assert.InDelta(t, 0.8, top.Breakdown[ComponentRisk], 1e-9)
	assert.InDelta(t, 1.0, top.Breakdown[scoring.SimilarityComponent], 1e-6)
	assert.Greater(t, top.Breakdown[ComponentLexical], 0.0)
}
