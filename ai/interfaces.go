package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentStats are the document-level risk counts shown to the summarizer.
type DocumentStats struct {
	TotalClauses int
	HighRisk     int // risk score >= 0.7
	Critical     int // risk score >= 0.85
}

// SummaryRequest is everything a summarizer sees for one query.
// RelevantClauses and RiskClauses are pre-rendered text blocks.
type SummaryRequest struct {
	Query           string
	Stats           DocumentStats
	RelevantClauses string
	RiskClauses     string
}

// Summarizer writes a natural-language risk analysis for a query.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize returns the analysis text for req.
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Summarizer returns the analysis service.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
