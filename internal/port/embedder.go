package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex searches stored fragment vectors.
type VectorIndex interface {
	// Search finds the k nearest vectors to the query, nearest first.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)
}

// VectorResult is one nearest-neighbor hit.
type VectorResult struct {
	ID       string            // Fragment ID
	Document string            // Stored fragment text
	Metadata map[string]string // Stored metadata, "ref" among others
	Distance *float64          // Cosine distance; nil when the index does not report it
}
