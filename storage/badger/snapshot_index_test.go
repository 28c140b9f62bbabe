package badger

import (
	"context"
	"testing"

	"github.com/poiesic/clausewise/clauses"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIndex_AddPersistsEmbedding(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	records := testClauses()
	saved, err := repo.SaveSnapshot(ctx, nil, records)
	require.NoError(t, err)

	idx := NewSnapshotIndex(repo, saved.ID)
	require.NoError(t, idx.Add(ctx, records[1].ID, []float32{0, 1}, nil))
	assert.Equal(t, 1, idx.Len())

	stored, err := repo.GetClause(ctx, records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, stored.Embedding)

	hits, err := idx.Search(ctx, []float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 1, "only added clauses are searchable")
	assert.Equal(t, records[1].ID, hits[0].ID)
	assert.Equal(t, "Payment", hits[0].Metadata[index.MetaSection])
}

func TestSnapshotIndex_Errors(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	records := testClauses()
	saved, err := repo.SaveSnapshot(ctx, nil, records)
	require.NoError(t, err)

	idx := NewSnapshotIndex(repo, saved.ID)
	assert.ErrorIs(t, idx.Add(ctx, records[0].ID, nil, nil), index.ErrEmptyVector)

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Add(ctx, records[0].ID, []float32{1, 0}, nil))
	assert.ErrorIs(t, idx.Add(ctx, records[2].ID, []float32{1, 0, 0}, nil), index.ErrDimensionMismatch)

	_, err = idx.Search(ctx, []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestSnapshotIndexFactory_WithDualIndex(t *testing.T) {
	repo, _ := newTestRepos(t)
	ctx := context.Background()

	records := testClauses()
	saved, err := repo.SaveSnapshot(ctx, nil, records)
	require.NoError(t, err)

	store := clauses.NewStore()
	require.NoError(t, store.Append(records...))

	dual, err := index.NewDualIndex(index.WithVectorIndexFactory(SnapshotIndexFactory(repo, saved.ID)))
	require.NoError(t, err)

	stats, err := dual.Build(ctx, store.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Lexical)
	assert.Equal(t, 2, stats.Semantic)
	assert.False(t, stats.SemanticFailed)

	hits, err := dual.Current().Semantic.Search(ctx, []float32{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, records[2].ID, hits[0].ID)
	assert.Equal(t, "HIGH", hits[0].Metadata[index.MetaRiskCategory])

	missing, err := index.NewDualIndex(index.WithVectorIndexFactory(SnapshotIndexFactory(repo, core.NewID())))
	require.NoError(t, err)
	stats, err = missing.Build(ctx, store.Snapshot())
	require.NoError(t, err)
	assert.True(t, stats.SemanticFailed)
}
