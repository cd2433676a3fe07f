// Package docstore is the document-store collaborator that supplies raw
// records to the ingestion stage. Records live as schema-less JSONB documents
// in a postgres table, one collection per logical dataset.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Document is one schema-less record.
type Document map[string]any

// Source fetches every record of a collection.
type Source interface {
	FetchAll(ctx context.Context, collection string) ([]Document, error)
}

type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	if db == nil {
		return nil
	}
	return &PostgresSource{db: db}
}

// WaitReady pings the database, retrying with exponential backoff until the
// store answers or maxElapsed passes. Only the initial connection is retried;
// pipeline stages never retry their own calls.
func (s *PostgresSource) WaitReady(ctx context.Context, maxElapsed time.Duration) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("document source not initialized")
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed
	op := func() error { return s.db.PingContext(ctx) }
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("ping document store: %w", err)
	}
	return nil
}

func (s *PostgresSource) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("document source not initialized")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT doc_id, body FROM documents WHERE collection = $1 ORDER BY doc_id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var docID string
		var body []byte
		if err := rows.Scan(&docID, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", docID, err)
		}
		if doc == nil {
			doc = Document{}
		}
		doc["_id"] = docID
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection %s: %w", collection, err)
	}
	return docs, nil
}
