package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

// ErrCollectionNotFound is returned when a collection has not been seeded.
var ErrCollectionNotFound = errors.New("collection not found")

var (
	bucketCollections      = []byte("collections")
	collectionBucketPrefix = "collection/"
)

// BoltStore is a bbolt database holding one vector bucket per collection.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCollections); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketCollections, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func collectionBucket(name string) []byte {
	return []byte(collectionBucketPrefix + name)
}

// CreateCollection registers a collection and returns its vector store.
// An existing collection with the same name is reopened unchanged.
func (s *BoltStore) CreateCollection(info CollectionInfo) (*BoltVectorStore, error) {
	if info.Name == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if info.Dimension <= 0 {
		return nil, fmt.Errorf("collection dimension must be positive, got %d", info.Dimension)
	}
	if info.SchemaVersion == 0 {
		info.SchemaVersion = CurrentSchemaVersion
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketCollections)
		if meta.Get([]byte(info.Name)) == nil {
			data, err := json.Marshal(info)
			if err != nil {
				return err
			}
			if err := meta.Put([]byte(info.Name), data); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucketIfNotExists(collectionBucket(info.Name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", info.Name, err)
	}

	return s.Collection(info.Name)
}

// Collection opens an existing collection.
func (s *BoltStore) Collection(name string) (*BoltVectorStore, error) {
	info, err := s.CollectionInfo(name)
	if err != nil {
		return nil, err
	}
	return newBoltVectorStore(s.db, info)
}

// CollectionInfo returns the stored description of a collection.
func (s *BoltStore) CollectionInfo(name string) (CollectionInfo, error) {
	var info CollectionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCollections).Get([]byte(name))
		if data == nil || tx.Bucket(collectionBucket(name)) == nil {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return json.Unmarshal(data, &info)
	})
	return info, err
}

// ListCollections returns all registered collections sorted by name.
func (s *BoltStore) ListCollections() ([]CollectionInfo, error) {
	var infos []CollectionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, v []byte) error {
			var info CollectionInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			infos = append(infos, info)
			return nil
		})
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, err
}
