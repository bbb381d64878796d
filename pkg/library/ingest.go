package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coolbeans/regchunk/pkg/pdftext"
)

// ReadSource returns the text of the file at filePath. PDF files, detected
// by extension or when asPDF is set, are extracted page by page with
// [[PAGINA:n]] markers; anything else is read as UTF-8 text.
func ReadSource(ctx context.Context, filePath string, asPDF bool) ([]byte, error) {
	if asPDF || strings.EqualFold(filepath.Ext(filePath), ".pdf") {
		extraction, err := pdftext.Extract(ctx, filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", filePath, err)
		}
		return []byte(extraction.Text), nil
	}

	sourceText, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return sourceText, nil
}

// AddFile reads a file from disk and adds it to the library. An empty
// documentID is derived from the file name.
func (lib *Library) AddFile(ctx context.Context, filePath string, documentID string, asPDF bool, opts AddOptions) (*DocumentEntry, error) {
	sourceText, err := ReadSource(ctx, filePath, asPDF)
	if err != nil {
		return nil, err
	}

	if documentID == "" {
		documentID = DeriveDocumentID(filePath)
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(filePath)
	}
	if opts.SourceInfo == "" {
		opts.SourceInfo = filePath
	}
	return lib.AddDocument(ctx, documentID, sourceText, opts)
}

// DeriveDocumentID creates a document ID from a file path by lowercasing the basename
// without its extension.
func DeriveDocumentID(filePath string) string {
	baseName := filepath.Base(filePath)
	if idx := strings.LastIndex(baseName, "."); idx != -1 {
		baseName = baseName[:idx]
	}
	return strings.ToLower(baseName)
}
