package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/clausewise/ai/mock"
	"github.com/poiesic/clausewise/core"
	"github.com/poiesic/clausewise/storage/badger"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.ClauseRepository {
	t.Helper()
	repo, profiles, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		profiles.Close()
		backend.Close()
	})
	return repo
}

// seedSnapshot stores n clauses; those at the given indexes already carry an embedding.
func seedSnapshot(t *testing.T, repo *badger.ClauseRepository, n int, embedded ...int) *core.Snapshot {
	t.Helper()
	have := make(map[int]bool, len(embedded))
	for _, i := range embedded {
		have[i] = true
	}

	records := make([]*core.ClauseRecord, n)
	for i := range records {
		records[i] = &core.ClauseRecord{
			ID:           core.NewID(),
			Index:        i,
			Text:         fmt.Sprintf("Clause %d of the services agreement between the parties.", i),
			RiskScore:    core.RiskFloor,
			RiskCategory: core.CategoryForScore(core.RiskFloor),
		}
		if have[i] {
			records[i].Embedding = []float32{0, 0, 1}
		}
	}
	snap, err := repo.SaveSnapshot(context.Background(), &core.Snapshot{Source: "test.pdf"}, records)
	require.NoError(t, err)
	return snap
}

// unnormalizedEmbedder returns [1,2,2] for every text, magnitude 3.
func unnormalizedEmbedder() *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 2, 2}
		}
		return out, nil
	}
	return m
}

func magnitude(v []float32) float32 {
	var m float32
	for _, x := range v {
		m += x * x
	}
	return m
}
