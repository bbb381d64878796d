package library

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/pipeline"
)

const (
	manifestFileName = "library.json"
	documentsDir     = "documents"
	sourceFileName   = "source.txt"
	chunksFileName   = "chunks.json"
	metadataFileName = "metadata.json"
	manifestVersion  = "1.0.0"
)

// ErrDocumentNotFound is returned when an ID is not in the manifest.
var ErrDocumentNotFound = errors.New("document not found")

// Runner chunks one document. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, name, raw string) (*pipeline.Result, error)
}

// Library manages a persistent collection of chunked normative documents.
type Library struct {
	mu       sync.RWMutex
	path     string
	runner   Runner
	manifest *LibraryManifest
}

// Init creates a new library at the given path. runner may be nil for a
// library that is only read.
func Init(libraryPath string, runner Runner) (*Library, error) {
	documentsPath := filepath.Join(libraryPath, documentsDir)
	if err := os.MkdirAll(documentsPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	now := time.Now().UTC()
	lib := &Library{
		path:   libraryPath,
		runner: runner,
		manifest: &LibraryManifest{
			Version:   manifestVersion,
			CreatedAt: now,
			UpdatedAt: now,
			Documents: []*DocumentEntry{},
		},
	}

	if err := lib.saveManifest(); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}
	return lib, nil
}

// Open loads an existing library from disk.
func Open(libraryPath string, runner Runner) (*Library, error) {
	data, err := os.ReadFile(filepath.Join(libraryPath, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read library manifest: %w", err)
	}

	var manifest LibraryManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse library manifest: %w", err)
	}

	return &Library{
		path:     libraryPath,
		runner:   runner,
		manifest: &manifest,
	}, nil
}

// OpenOrInit opens the library at libraryPath, creating it when no manifest
// exists yet.
func OpenOrInit(libraryPath string, runner Runner) (*Library, error) {
	if _, err := os.Stat(filepath.Join(libraryPath, manifestFileName)); errors.Is(err, os.ErrNotExist) {
		return Init(libraryPath, runner)
	}
	return Open(libraryPath, runner)
}

// AddDocument chunks sourceText and stores the source, chunks and metadata.
// Adding an ID that is already ready returns the existing entry unless
// opts.Force is set; failed or interrupted entries are chunked again. A failed run is recorded in the manifest with
// StatusFailed and returned as an error.
func (lib *Library) AddDocument(ctx context.Context, documentID string, sourceText []byte, opts AddOptions) (*DocumentEntry, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	if documentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}
	if len(sourceText) == 0 {
		return nil, fmt.Errorf("source text is empty")
	}
	if lib.runner == nil {
		return nil, fmt.Errorf("library has no pipeline configured")
	}

	existing := lib.findDocumentUnsafe(documentID)
	if existing != nil && existing.Status == StatusReady && !opts.Force {
		return existing, nil
	}

	name := opts.Name
	if name == "" {
		name = documentID
	}
	now := time.Now().UTC()
	entry := &DocumentEntry{
		ID:          documentID,
		Name:        name,
		Status:      StatusIngesting,
		RunID:       uuid.New().String(),
		AddedAt:     now,
		UpdatedAt:   now,
		SourceInfo:  opts.SourceInfo,
		SourceBytes: len(sourceText),
		StorageHash: hashDocumentID(documentID),
	}
	if existing != nil {
		entry.AddedAt = existing.AddedAt
	}
	lib.upsertEntry(entry)
	if err := lib.saveManifest(); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	result, err := lib.runner.Run(ctx, name, string(sourceText))
	if err != nil {
		return nil, lib.failUnsafe(entry, fmt.Errorf("chunking failed for %s: %w", documentID, err))
	}

	if err := lib.persistUnsafe(entry, sourceText, result); err != nil {
		return nil, lib.failUnsafe(entry, err)
	}

	stats := result.Stats
	entry.Kind = result.Kind
	entry.Stats = &stats
	entry.Status = StatusReady
	entry.UpdatedAt = time.Now().UTC()
	lib.upsertEntry(entry)

	if err := lib.saveManifest(); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}
	return entry, nil
}

func (lib *Library) persistUnsafe(entry *DocumentEntry, sourceText []byte, result *pipeline.Result) error {
	if err := lib.writeDocumentFile(entry.StorageHash, sourceFileName, sourceText); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}

	chunksData, err := SerializeChunks(result.Chunks)
	if err != nil {
		return fmt.Errorf("failed to serialize chunks: %w", err)
	}
	if err := lib.writeDocumentFile(entry.StorageHash, chunksFileName, chunksData); err != nil {
		return fmt.Errorf("failed to save chunks: %w", err)
	}

	metadata := DocumentMetadata{
		ID:        entry.ID,
		Name:      entry.Name,
		RunID:     entry.RunID,
		Kind:      result.Kind,
		Detection: result.Detection,
		Stats:     result.Stats,
		ChunkedAt: time.Now().UTC(),
	}
	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := lib.writeDocumentFile(entry.StorageHash, metadataFileName, metadataBytes); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (lib *Library) failUnsafe(entry *DocumentEntry, cause error) error {
	entry.Status = StatusFailed
	entry.Error = cause.Error()
	entry.UpdatedAt = time.Now().UTC()
	lib.upsertEntry(entry)
	if err := lib.saveManifest(); err != nil {
		return fmt.Errorf("%v (and failed to save manifest: %w)", cause, err)
	}
	return cause
}

// RemoveDocument deletes a document and its associated files from the library.
func (lib *Library) RemoveDocument(documentID string) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	if err := os.RemoveAll(lib.documentDir(entry.StorageHash)); err != nil {
		return fmt.Errorf("failed to remove document files: %w", err)
	}

	lib.removeEntry(documentID)

	if err := lib.saveManifest(); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// GetDocument returns the entry for a specific document, or nil.
func (lib *Library) GetDocument(documentID string) *DocumentEntry {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return lib.findDocumentUnsafe(documentID)
}

// ListDocuments returns all document entries, sorted by ID.
func (lib *Library) ListDocuments() []*DocumentEntry {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	result := make([]*DocumentEntry, len(lib.manifest.Documents))
	copy(result, lib.manifest.Documents)

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// LoadChunks reads the stored chunks of a ready document.
func (lib *Library) LoadChunks(documentID string) ([]chunk.Chunk, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	if entry.Status != StatusReady {
		return nil, fmt.Errorf("document %s is not ready (status: %s)", documentID, entry.Status)
	}

	data, err := lib.readDocumentFile(entry.StorageHash, chunksFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks for %s: %w", documentID, err)
	}
	return DeserializeChunks(data)
}

// LoadMetadata reads the metadata written by the last successful run.
func (lib *Library) LoadMetadata(documentID string) (*DocumentMetadata, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	data, err := lib.readDocumentFile(entry.StorageHash, metadataFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for %s: %w", documentID, err)
	}
	var metadata DocumentMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", documentID, err)
	}
	return &metadata, nil
}

// LoadSource returns the source text a document was chunked from.
func (lib *Library) LoadSource(documentID string) ([]byte, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}
	return lib.readDocumentFile(entry.StorageHash, sourceFileName)
}

// Stats returns aggregate statistics across all documents.
func (lib *Library) Stats() *LibraryStats {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	libraryStats := &LibraryStats{
		ByKind:   make(map[string]int),
		ByStatus: make(map[string]int),
	}

	for _, entry := range lib.manifest.Documents {
		libraryStats.TotalDocuments++
		libraryStats.TotalSourceSize += entry.SourceBytes
		libraryStats.ByStatus[string(entry.Status)]++
		if entry.Kind != "" {
			libraryStats.ByKind[string(entry.Kind)]++
		}
		if entry.Stats != nil {
			libraryStats.TotalElements += entry.Stats.Elements
			libraryStats.TotalChunks += entry.Stats.Chunks
			libraryStats.PartialChunks += entry.Stats.PartialChunks
		}
	}
	return libraryStats
}

// Path returns the library's root directory.
func (lib *Library) Path() string {
	return lib.path
}

func (lib *Library) findDocumentUnsafe(documentID string) *DocumentEntry {
	for _, entry := range lib.manifest.Documents {
		if entry.ID == documentID {
			return entry
		}
	}
	return nil
}

func (lib *Library) upsertEntry(entry *DocumentEntry) {
	lib.manifest.UpdatedAt = time.Now().UTC()
	for i, existing := range lib.manifest.Documents {
		if existing.ID == entry.ID {
			lib.manifest.Documents[i] = entry
			return
		}
	}
	lib.manifest.Documents = append(lib.manifest.Documents, entry)
}

func (lib *Library) removeEntry(documentID string) {
	filtered := make([]*DocumentEntry, 0, len(lib.manifest.Documents))
	for _, entry := range lib.manifest.Documents {
		if entry.ID != documentID {
			filtered = append(filtered, entry)
		}
	}
	lib.manifest.Documents = filtered
	lib.manifest.UpdatedAt = time.Now().UTC()
}

func (lib *Library) saveManifest() error {
	data, err := json.MarshalIndent(lib.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(lib.path, manifestFileName), data, 0644)
}

func (lib *Library) documentDir(storageHash string) string {
	return filepath.Join(lib.path, documentsDir, storageHash)
}

func (lib *Library) writeDocumentFile(storageHash string, fileName string, data []byte) error {
	dirPath := lib.documentDir(storageHash)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dirPath, fileName), data, 0644)
}

func (lib *Library) readDocumentFile(storageHash string, fileName string) ([]byte, error) {
	return os.ReadFile(filepath.Join(lib.documentDir(storageHash), fileName))
}

func hashDocumentID(documentID string) string {
	hash := sha256.Sum256([]byte(documentID))
	return fmt.Sprintf("%x", hash)
}
