package store

import "fmt"

// CurrentSchemaVersion is the current collection layout version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// CollectionInfo describes how a collection's vectors were produced.
type CollectionInfo struct {
	Name           string `json:"name"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	SchemaVersion  int    `json:"schema_version"`
}

// CheckEmbedder reports why vectors from the given embedder cannot be
// compared with this collection. An empty string means they are compatible.
func (c CollectionInfo) CheckEmbedder(model string, dimension int) string {
	if c.SchemaVersion > CurrentSchemaVersion {
		return fmt.Sprintf("collection schema v%d is newer than supported v%d", c.SchemaVersion, CurrentSchemaVersion)
	}
	if c.Dimension != dimension {
		return fmt.Sprintf("dimension mismatch: collection %d, embedder %d", c.Dimension, dimension)
	}
	if c.EmbeddingModel != "" && c.EmbeddingModel != model {
		return fmt.Sprintf("embedding model changed: collection %s, embedder %s", c.EmbeddingModel, model)
	}
	return ""
}
