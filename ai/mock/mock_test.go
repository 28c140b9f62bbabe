package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/poiesic/clausewise/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "indemnify")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "indemnify")
	require.NoError(t, err)
	c, err := m.EmbedText(ctx, "payment")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, DefaultDimension)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, []string{"indemnify", "indemnify", "payment"}, m.Texts())
}

func TestMockEmbedder_InjectedBehavior(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	})

	_, err := m.EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	_, err = m.EmbedText(context.Background(), "x")
	assert.NoError(t, err)
}

func TestMockEmbedder_Concurrent(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "clause")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, m.CallCount())
}

func TestMockSummarizer(t *testing.T) {
	s := NewMockSummarizer()
	req := ai.SummaryRequest{Query: "risks", Stats: ai.DocumentStats{TotalClauses: 3, HighRisk: 1}}

	out, err := s.Summarize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `query="risks" total=3 high=1 critical=0`, out)
	assert.Equal(t, req, s.LastRequest())
	assert.Equal(t, 1, s.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp := p.(*MockProvider)

	assert.Same(t, mp.GetMockEmbedder(), p.Embedder())
	assert.Same(t, mp.GetMockSummarizer(), p.Summarizer())
	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
