package index

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/clausewise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, Cosine([]float32{1, 0}, []float32{1, 1}), 1e-6)

	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestMemoryVectorIndex_Search(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVectorIndex()
	a, b, c := core.NewID(), core.NewID(), core.NewID()

	require.NoError(t, m.Add(ctx, a, []float32{1, 0}, map[string]string{MetaSection: "Payment"}))
	require.NoError(t, m.Add(ctx, b, []float32{0, 1}, nil))
	require.NoError(t, m.Add(ctx, c, []float32{1, 1}, nil))
	assert.Equal(t, 3, m.Len())

	hits, err := m.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a, hits[0].ID)
	assert.Equal(t, "Payment", hits[0].Metadata[MetaSection])
	assert.Equal(t, c, hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryVectorIndex_ReplaceAndTies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVectorIndex()
	a, b := core.NewID(), core.NewID()

	require.NoError(t, m.Add(ctx, a, []float32{0, 1}, nil))
	require.NoError(t, m.Add(ctx, b, []float32{1, 0}, nil))
	require.NoError(t, m.Add(ctx, a, []float32{1, 0}, nil))
	assert.Equal(t, 2, m.Len())

	hits, err := m.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a, hits[0].ID)
	assert.Equal(t, b, hits[1].ID)
}

func TestMemoryVectorIndex_Errors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryVectorIndex()

	assert.ErrorIs(t, m.Add(ctx, core.NewID(), nil, nil), ErrEmptyVector)

	hits, err := m.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, m.Add(ctx, core.NewID(), []float32{1, 0}, nil))
	assert.ErrorIs(t, m.Add(ctx, core.NewID(), []float32{1, 0, 0}, nil), ErrDimensionMismatch)

	_, err = m.Search(ctx, []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = m.Search(ctx, nil, 3)
	assert.ErrorIs(t, err, ErrEmptyVector)
}

func TestMemoryVectorIndex_Cancelled(t *testing.T) {
	m := NewMemoryVectorIndex()
	require.NoError(t, m.Add(context.Background(), core.NewID(), []float32{1, 0}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Search(ctx, []float32{1, 0}, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordMetadata(t *testing.T) {
	r := &core.ClauseRecord{Index: 3, Section: "Termination", RiskScore: 0.7, RiskCategory: core.SeverityHigh}
	md := RecordMetadata(r)
	assert.Equal(t, "Termination", md[MetaSection])
	assert.Equal(t, "0.7", md[MetaRiskScore])
	assert.Equal(t, "HIGH", md[MetaRiskCategory])
	assert.Equal(t, "3", md[MetaIndex])
}
