// Package chunk turns parsed normative elements into retrieval-sized chunks
// that carry their breadcrumb.
package chunk

import (
	"fmt"

	"github.com/coolbeans/regchunk/pkg/extract"
)

// Treatment records how an element was turned into chunks.
type Treatment string

const (
	Normal        Treatment = "normal"
	Split         Treatment = "split"
	Marker        Treatment = "marker"
	VerbatimAnnex Treatment = "verbatim_annex"
	LineAnnex     Treatment = "line_annex"
)

// SemanticTags holds the spans a Tagger extracted from a chunk.
type SemanticTags = extract.SemanticTags

// Tagger annotates chunk text with semantic spans.
type Tagger interface {
	Tag(text string) (SemanticTags, error)
}

// Chunk is one retrieval unit.
type Chunk struct {
	ID         string       `json:"chunk_id"`
	Text       string       `json:"text"`
	Type       string       `json:"element_type"`
	Number     string       `json:"number"`
	Rank       int          `json:"rank"`
	Context    string       `json:"hierarchical_context"`
	Page       int          `json:"page"`
	CharLength int          `json:"char_length"`
	IsPartial  bool         `json:"is_partial"`
	Treatment  Treatment    `json:"treatment"`
	Tags       SemanticTags `json:"semantic_tags"`
}

// ID returns the identifier of the n-th chunk of a document.
func ID(n int) string {
	return fmt.Sprintf("chunk_%d", n)
}

// Prefix returns the breadcrumb prefix of chunk text, or "" without context.
func Prefix(context string) string {
	if context == "" {
		return ""
	}
	return "[" + context + "] "
}

// Body returns the chunk text without its breadcrumb prefix.
func (c Chunk) Body() string {
	p := Prefix(c.Context)
	if len(c.Text) >= len(p) && c.Text[:len(p)] == p {
		return c.Text[len(p):]
	}
	return c.Text
}

// Tag runs tagger over every chunk in place. It stops at the first error.
func Tag(chunks []Chunk, tagger Tagger) error {
	if tagger == nil {
		return nil
	}
	for i := range chunks {
		tags, err := tagger.Tag(chunks[i].Text)
		if err != nil {
			return fmt.Errorf("tagging %s: %w", chunks[i].ID, err)
		}
		chunks[i].Tags = tags
	}
	return nil
}
