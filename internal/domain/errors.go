package domain

import "errors"

var (
	// ErrInvalidQuery signals a query that cannot be served (empty text, unknown category or tone, bad counts).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrIndexUnavailable signals a failed vector index call.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrCatalogLoad signals that the book catalog could not be loaded.
	ErrCatalogLoad = errors.New("catalog load failure")
	// ErrNotReady signals that a lazily initialized dependency is not usable yet.
	ErrNotReady = errors.New("not ready")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
