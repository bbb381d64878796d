package library

import (
	"time"

	"github.com/coolbeans/regchunk/pkg/pattern"
	"github.com/coolbeans/regchunk/pkg/pipeline"
)

// DocumentStatus represents the state of a document in the library.
type DocumentStatus string

const (
	// StatusReady indicates the document has been chunked and is available for queries.
	StatusReady DocumentStatus = "ready"

	// StatusIngesting indicates the document is currently being chunked.
	StatusIngesting DocumentStatus = "ingesting"

	// StatusFailed indicates the last run for this document failed.
	StatusFailed DocumentStatus = "failed"
)

// LibraryManifest is the top-level index of all documents in the library.
type LibraryManifest struct {
	Version   string           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Documents []*DocumentEntry `json:"documents"`
}

// DocumentEntry represents a single normative document stored in the library.
type DocumentEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Kind        pattern.Kind    `json:"kind,omitempty"`
	Status      DocumentStatus  `json:"status"`
	RunID       string          `json:"run_id"`
	AddedAt     time.Time       `json:"added_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	SourceInfo  string          `json:"source_info,omitempty"`
	SourceBytes int             `json:"source_bytes"`
	Stats       *pipeline.Stats `json:"stats,omitempty"`
	StorageHash string          `json:"storage_hash"`
	Error       string          `json:"error,omitempty"`
}

// DocumentMetadata is written next to a document's chunks.
type DocumentMetadata struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	RunID     string            `json:"run_id"`
	Kind      pattern.Kind      `json:"kind"`
	Detection pattern.Detection `json:"detection"`
	Stats     pipeline.Stats    `json:"stats"`
	ChunkedAt time.Time         `json:"chunked_at"`
}

// AddOptions configures how a document is added to the library.
type AddOptions struct {
	Name       string
	SourceInfo string
	Force      bool // re-chunk and overwrite an existing document with the same ID
}

// LibraryStats aggregates statistics across all documents in the library.
type LibraryStats struct {
	TotalDocuments  int            `json:"total_documents"`
	TotalElements   int            `json:"total_elements"`
	TotalChunks     int            `json:"total_chunks"`
	PartialChunks   int            `json:"partial_chunks"`
	TotalSourceSize int            `json:"total_source_bytes"`
	ByKind          map[string]int `json:"by_kind"`
	ByStatus        map[string]int `json:"by_status"`
}
