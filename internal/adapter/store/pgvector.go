package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"regbot/internal/port"
)

// PgVectorStore implements VectorIndex over a Postgres table with columns
// (id text, document text, metadata jsonb, embedding vector).
type PgVectorStore struct {
	db    *sql.DB
	table string
	query string
}

// NewPgVectorStore connects to Postgres and checks that the collection
// table exists.
func NewPgVectorStore(ctx context.Context, dsn, collection string) (*PgVectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	var exists bool
	err = db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, pq.QuoteIdentifier(collection)).Scan(&exists)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check table %s: %w", collection, err)
	}
	if !exists {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	return &PgVectorStore{
		db:    db,
		table: collection,
		query: searchSQL(collection),
	}, nil
}

// searchSQL orders by cosine distance (<=>), nearest first.
func searchSQL(table string) string {
	return fmt.Sprintf(
		`SELECT id, document, metadata, embedding <=> $1 AS distance FROM %s ORDER BY embedding <=> $1 LIMIT $2`,
		pq.QuoteIdentifier(table),
	)
}

// Search finds the k nearest fragments to the query.
func (s *PgVectorStore) Search(ctx context.Context, query []float32, k int) ([]port.VectorResult, error) {
	rows, err := s.db.QueryContext(ctx, s.query, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("vector query on %s failed: %w", s.table, err)
	}
	defer rows.Close()

	var results []port.VectorResult
	for rows.Next() {
		var (
			id       string
			document sql.NullString
			metadata []byte
			distance sql.NullFloat64
		)
		if err := rows.Scan(&id, &document, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		meta, err := decodeMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("metadata of %s: %w", id, err)
		}

		result := port.VectorResult{
			ID:       id,
			Document: document.String,
			Metadata: meta,
		}
		if distance.Valid {
			d := distance.Float64
			result.Distance = &d
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

// decodeMetadata flattens a jsonb object into string values.
func decodeMetadata(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			meta[k] = val
		case float64:
			meta[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			meta[k] = string(b)
		}
	}
	return meta, nil
}
