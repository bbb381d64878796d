package store

import "fmt"

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		kind        TEXT NOT NULL DEFAULT '',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		indexed_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_id     TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		text         TEXT NOT NULL,
		element_type TEXT NOT NULL,
		number       TEXT NOT NULL DEFAULT '',
		element_rank INTEGER NOT NULL,
		context      TEXT NOT NULL DEFAULT '',
		page         INTEGER NOT NULL DEFAULT 0,
		char_length  INTEGER NOT NULL,
		is_partial   INTEGER NOT NULL DEFAULT 0,
		treatment    TEXT NOT NULL DEFAULT '',
		tags         TEXT NOT NULL DEFAULT '{}',
		UNIQUE (document_id, chunk_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, seq)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		text, context,
		tokenize = 'unicode61 remove_diacritics 2'
	)`,
	`CREATE TABLE IF NOT EXISTS embeddings (
		document_id TEXT NOT NULL,
		chunk_id    TEXT NOT NULL,
		model       TEXT NOT NULL,
		dims        INTEGER NOT NULL,
		vector      BLOB NOT NULL,
		PRIMARY KEY (document_id, chunk_id),
		FOREIGN KEY (document_id, chunk_id) REFERENCES chunks(document_id, chunk_id) ON DELETE CASCADE
	)`,
}

// migrate creates the schema when the database is older than schemaVersion.
func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range schemaDDL {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}
	return tx.Commit()
}
