package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
	"regbot/internal/port"
)

// BoltVectorStore implements VectorIndex for one collection using BoltDB.
// Uses brute-force search; a regulation document is a few hundred fragments.
type BoltVectorStore struct {
	db     *bbolt.DB
	info   CollectionInfo
	bucket []byte
	mu     sync.RWMutex
	// In-memory copy for fast search
	vectors map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	document string
	metadata map[string]string
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Document string            `json:"d"`
	Metadata map[string]string `json:"m,omitempty"`
}

// VectorItem is a fragment to be stored.
type VectorItem struct {
	ID       string
	Vector   []float32
	Document string
	Metadata map[string]string
}

func newBoltVectorStore(db *bbolt.DB, info CollectionInfo) (*BoltVectorStore, error) {
	store := &BoltVectorStore{
		db:      db,
		info:    info,
		bucket:  collectionBucket(info.Name),
		vectors: make(map[string]vectorEntry),
	}

	if err := store.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return store, nil
}

// loadVectors loads all vectors of the collection into memory.
func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.vectors[string(k)] = vectorEntry{
				vector:   stored.Vector,
				document: stored.Document,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// Info returns the collection description.
func (s *BoltVectorStore) Info() CollectionInfo {
	return s.info
}

// Upsert adds or updates fragments in the collection.
func (s *BoltVectorStore) Upsert(items []VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, s.info.Name)
		}

		for _, item := range items {
			if len(item.Vector) != s.info.Dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.info.Dimension, len(item.Vector))
			}

			data, err := json.Marshal(storedVector{
				Vector:   item.Vector,
				Document: item.Document,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}

			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}

			s.vectors[item.ID] = vectorEntry{
				vector:   item.Vector,
				document: item.Document,
				metadata: item.Metadata,
			}
		}

		return nil
	})
}

// Search finds the k nearest fragments to the query by cosine distance.
func (s *BoltVectorStore) Search(ctx context.Context, query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.info.Dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.info.Dimension, len(query))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
		entry vectorEntry
	}

	scores := make([]scored, 0, len(s.vectors))
	for id, entry := range s.vectors {
		scores = append(scores, scored{
			id:    id,
			score: cosineSimilarity(query, entry.vector),
			entry: entry,
		})
	}

	// Sort by score descending, ID breaks ties so rank order is stable
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]port.VectorResult, k)
	for i := 0; i < k; i++ {
		distance := 1 - scores[i].score
		results[i] = port.VectorResult{
			ID:       scores[i].id,
			Document: scores[i].entry.document,
			Metadata: scores[i].entry.metadata,
			Distance: &distance,
		}
	}

	return results, nil
}

// Count returns the number of fragments in the collection.
func (s *BoltVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
