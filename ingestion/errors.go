package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a clause store is not provided.
	ErrStoreRequired = errors.New("clause store required")

	// ErrScannerRequired is returned when a risk scanner is not provided.
	ErrScannerRequired = errors.New("risk scanner required")

	// ErrClassifierRequired is returned when a section classifier is not provided.
	ErrClassifierRequired = errors.New("section classifier required")

	// ErrEmbedderRequired is returned when an embedding processor has no embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrPanic wraps a panic recovered from a fragment's processing.
	ErrPanic = errors.New("panic during processing")

	// ErrEmbeddingEmpty is returned when an embedder yields an empty vector.
	ErrEmbeddingEmpty = errors.New("embedder returned an empty vector")
)
