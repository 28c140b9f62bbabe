package clauses

import (
	"sync"
	"testing"

	"github.com/poiesic/clausewise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(text string, score float64) *core.ClauseRecord {
	return &core.ClauseRecord{
		ID:           core.NewID(),
		Text:         text,
		Section:      "General",
		RiskScore:    score,
		RiskCategory: core.CategoryForScore(score),
	}
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	s := NewStore()
	a, b, c := record("a", 0.3), record("b", 0.9), record("c", 0.7)

	require.NoError(t, s.Append(a, b))
	require.NoError(t, s.Append(c))

	view := s.Snapshot()
	require.Equal(t, 3, view.Len())
	assert.Same(t, a, view.At(0))
	assert.Same(t, b, view.At(1))
	assert.Same(t, c, view.At(2))

	pos, ok := view.Position(c.ID)
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	got, ok := s.Get(b.ID)
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = s.Get(core.NewID())
	assert.False(t, ok)
}

func TestStore_AppendIsAllOrNothing(t *testing.T) {
	s := NewStore()
	a := record("a", 0.3)
	require.NoError(t, s.Append(a))

	err := s.Append(record("b", 0.5), a)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())

	err = s.Append(record("c", 0.5), nil)
	assert.ErrorIs(t, err, ErrNilRecord)
	assert.Equal(t, 1, s.Len())
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(record("a", 0.3)))

	before := s.Snapshot()
	require.NoError(t, s.Append(record("b", 0.3)))

	assert.Equal(t, 1, before.Len())
	assert.Equal(t, 2, s.Len())

	records := before.Records()
	records[0] = nil
	assert.NotNil(t, before.At(0))
}

func TestStore_Replace(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Append(record("a", 0.3), record("b", 0.3)))

	c := record("c", 0.5)
	require.NoError(t, s.Replace([]*core.ClauseRecord{c}))
	assert.Equal(t, 1, s.Len())
	assert.Same(t, c, s.Snapshot().At(0))

	require.NoError(t, s.Replace(nil))
	assert.Equal(t, 0, s.Len())
}

func TestStore_Update(t *testing.T) {
	s := NewStore()
	a, b := record("a", 0.3), record("b", 0.8)
	require.NoError(t, s.Append(a, b))
	before := s.Snapshot()

	embedded := b.WithEmbedding([]float32{1, 0})
	require.NoError(t, s.Update(embedded))

	got, ok := s.Get(b.ID)
	require.True(t, ok)
	assert.True(t, got.HasEmbedding())
	assert.False(t, b.HasEmbedding())

	old, _ := before.Get(b.ID)
	assert.False(t, old.HasEmbedding())

	err := s.Update(record("x", 0.3))
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestStore_ConcurrentReadersAndWriter(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Append(record("w", 0.3))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				v := s.Snapshot()
				for j := 0; j < v.Len(); j++ {
					_, ok := v.Get(v.At(j).ID)
					assert.True(t, ok)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, s.Len())
}

func TestComputeStats(t *testing.T) {
	records := []*core.ClauseRecord{
		record("a", 1.0),
		record("b", 0.85),
		record("c", 0.7),
		record("d", 0.6),
		record("e", 0.3),
	}
	records[0].Section = "Liability"
	records[1].Embedding = []float32{1}

	st := ComputeStats(records)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.HighRisk)
	assert.Equal(t, 2, st.Critical)
	assert.Equal(t, 1, st.Embedded)
	assert.Equal(t, 2, st.ByCategory[core.SeverityCritical])
	assert.Equal(t, 1, st.ByCategory[core.SeverityHigh])
	assert.Equal(t, 1, st.ByCategory[core.SeverityMedium])
	assert.Equal(t, 1, st.ByCategory[core.SeverityLow])
	assert.Equal(t, 1, st.BySection["Liability"])
	assert.Equal(t, 4, st.BySection["General"])
}

func TestComputeStats_Empty(t *testing.T) {
	st := NewStore().Stats()
	assert.Equal(t, 0, st.Total)
	assert.Len(t, st.ByCategory, 4)
}
