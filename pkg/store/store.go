// Package store keeps chunked documents in a single SQLite database:
// relational chunk rows, an FTS5 keyword index over chunk text and
// breadcrumbs, and embedding vectors for semantic search.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/pattern"
)

// ErrNotFound is returned when a document is not in the index.
var ErrNotFound = errors.New("not found")

// Document is the index row for one chunked document.
type Document struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Kind       pattern.Kind `json:"kind"`
	ChunkCount int          `json:"chunk_count"`
	IndexedAt  time.Time    `json:"indexed_at"`
}

// Embedding is the vector of one chunk.
type Embedding struct {
	ChunkID string
	Vector  []float32
}

// Hit is one search result.
type Hit struct {
	DocumentID   string      `json:"document_id"`
	DocumentName string      `json:"document_name"`
	Chunk        chunk.Chunk `json:"chunk"`
	Score        float64     `json:"score"`
}

// Stats holds row counts and the database size.
type Stats struct {
	Documents   int64 `json:"documents"`
	Chunks      int64 `json:"chunks"`
	Embeddings  int64 `json:"embeddings"`
	DBSizeBytes int64 `json:"db_size_bytes"`
}

// Store is a SQLite-backed chunk index.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the index at dbPath. Pass ":memory:" for a
// throwaway database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceDocument stores doc and its chunks, dropping whatever was indexed
// under doc.ID before, embeddings included. It runs in one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, doc Document, chunks []chunk.Chunk) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentTx(ctx, tx, doc.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, kind, chunk_count, indexed_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, string(doc.Kind), len(chunks), doc.IndexedAt.Unix(),
	); err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	insertChunk, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_id, seq, text, element_type, number, element_rank,
		                     context, page, char_length, is_partial, treatment, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer insertChunk.Close()

	insertFTS, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks_fts (rowid, text, context) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing FTS insert: %w", err)
	}
	defer insertFTS.Close()

	for i, c := range chunks {
		tags, err := json.Marshal(c.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags of %s: %w", c.ID, err)
		}
		res, err := insertChunk.ExecContext(ctx,
			doc.ID, c.ID, i, c.Text, c.Type, c.Number, c.Rank,
			c.Context, c.Page, c.CharLength, c.IsPartial, string(c.Treatment), string(tags),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading chunk row id: %w", err)
		}
		if _, err := insertFTS.ExecContext(ctx, rowID, c.Text, c.Context); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document %s: %w", doc.ID, err)
	}
	return nil
}

// PutEmbeddings stores vectors for chunks of an indexed document, replacing
// earlier vectors of the same chunks.
func (s *Store) PutEmbeddings(ctx context.Context, documentID, model string, embeddings []Embedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (document_id, chunk_id, model, dims, vector) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(document_id, chunk_id) DO UPDATE SET
		   model = excluded.model, dims = excluded.dims, vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("preparing embedding insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range embeddings {
		if _, err := stmt.ExecContext(ctx, documentID, e.ChunkID, model, len(e.Vector), float32ToBytes(e.Vector)); err != nil {
			return fmt.Errorf("storing embedding for %s/%s: %w", documentID, e.ChunkID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns the index row of one document.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, chunk_count, indexed_at FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, err
}

// ListDocuments returns every indexed document ordered by ID.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, chunk_count, indexed_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document with its chunks and embeddings.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking document %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err := deleteDocumentTx(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Stats returns row counts and the on-disk size of the database.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{"documents", &stats.Documents},
		{"chunks", &stats.Chunks},
		{"embeddings", &stats.Embeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting %s: %w", c.table, err)
		}
	}
	if s.dbPath != ":memory:" {
		if info, err := os.Stat(s.dbPath); err == nil {
			stats.DBSizeBytes = info.Size()
		}
	}
	return stats, nil
}

func deleteDocumentTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks_fts WHERE rowid IN (SELECT id FROM chunks WHERE document_id = ?)`, id,
	); err != nil {
		return fmt.Errorf("removing FTS rows of %s: %w", id, err)
	}
	// chunks and embeddings go through ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing document %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc       Document
		kind      string
		indexedAt int64
	)
	if err := row.Scan(&doc.ID, &doc.Name, &kind, &doc.ChunkCount, &indexedAt); err != nil {
		return nil, err
	}
	doc.Kind = pattern.Kind(kind)
	doc.IndexedAt = time.Unix(indexedAt, 0).UTC()
	return &doc, nil
}
