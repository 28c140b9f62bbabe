package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/poiesic/clausewise/ai"
)

// MockSummarizer is a test double for ai.Summarizer.
// It allows custom behavior injection via function fields.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, returns a one-line digest of the request.
	SummarizeFunc func(ctx context.Context, req ai.SummaryRequest) (string, error)

	callCount atomic.Int64
	mu        sync.Mutex
	last      ai.SummaryRequest
}

// NewMockSummarizer creates a mock summarizer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockSummarizer().
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize records req and returns a deterministic digest.
func (m *MockSummarizer) Summarize(ctx context.Context, req ai.SummaryRequest) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.last = req
	m.mu.Unlock()

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, req)
	}

	return fmt.Sprintf("query=%q total=%d high=%d critical=%d",
		req.Query, req.Stats.TotalClauses, req.Stats.HighRisk, req.Stats.Critical), nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// LastRequest returns the most recent request passed to Summarize.
func (m *MockSummarizer) LastRequest() ai.SummaryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset clears the call count and injected behavior.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.last = ai.SummaryRequest{}
	m.mu.Unlock()
	m.SummarizeFunc = nil
}
