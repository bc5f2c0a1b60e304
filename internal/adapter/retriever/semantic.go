package retriever

import (
	"context"
	"fmt"
	"math"
	"strings"

	"regbot/internal/domain"
	"regbot/internal/port"
)

// MetadataRef is the metadata key holding a fragment's reference.
const MetadataRef = "ref"

// SemanticRetriever embeds the question, queries the vector index and
// applies an all-or-nothing similarity gate on the best match.
type SemanticRetriever struct {
	index     port.VectorIndex
	embedder  port.Embedder
	topK      int
	threshold float64
}

// NewSemanticRetriever creates a retriever. A nil index means the index is
// unavailable and every retrieval is empty.
func NewSemanticRetriever(
	index port.VectorIndex,
	embedder port.Embedder,
	topK int,
	threshold float64,
) *SemanticRetriever {
	return &SemanticRetriever{
		index:     index,
		embedder:  embedder,
		topK:      topK,
		threshold: threshold,
	}
}

// Retrieve returns the top-K fragments for the question, or an empty result
// when the best similarity is below the threshold. Collaborator failures
// return an empty result together with the error.
func (r *SemanticRetriever) Retrieve(ctx context.Context, question string) (domain.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" || r.index == nil || r.embedder == nil {
		return domain.RetrievalResult{}, nil
	}

	embeddings, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return domain.RetrievalResult{}, fmt.Errorf("embedding returned empty result")
	}

	results, err := r.index.Search(ctx, normalize(embeddings[0]), r.topK)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("vector search failed: %w", err)
	}
	if len(results) == 0 {
		return domain.RetrievalResult{}, nil
	}

	return r.gate(results), nil
}

// gate converts distances to similarities and keeps every fragment when
// the best one clears the threshold. Without distances the gate is skipped.
func (r *SemanticRetriever) gate(results []port.VectorResult) domain.RetrievalResult {
	fragments := make([]domain.RetrievedFragment, len(results))
	hasDistances := true
	best := math.Inf(-1)

	for i, res := range results {
		fragments[i] = domain.RetrievedFragment{
			Ref:  res.Metadata[MetadataRef],
			Text: res.Document,
		}
		if res.Distance == nil {
			hasDistances = false
			continue
		}
		sim := 1 - *res.Distance
		fragments[i].Similarity = &sim
		if sim > best {
			best = sim
		}
	}

	if !hasDistances {
		for i := range fragments {
			fragments[i].Similarity = nil
		}
		return domain.RetrievalResult{Fragments: fragments}
	}

	if best < r.threshold {
		return domain.RetrievalResult{}
	}

	return domain.RetrievalResult{Fragments: fragments}
}

// normalize scales v to unit length. Zero vectors are returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
