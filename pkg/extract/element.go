// Package extract provides the hierarchical parser for Brazilian normative
// texts: line classification, numbering validation, hierarchy reconstruction,
// deduplication of amended provisions and removal of revoked ones.
package extract

import (
	"fmt"
	"strings"
)

// ElementType is the closed set of structural units of a normative document.
type ElementType int

const (
	Resolution ElementType = iota
	Preamble
	Title
	Annex
	Chapter
	Section
	Subsection
	Article
	Clause
	Paragraph
	Inciso
	Alinea
	Item
)

// NoParent marks an element without a parent.
const NoParent = -1

// SoleParagraph is the number given to a "Parágrafo único".
const SoleParagraph = "único"

var elementTypeNames = map[ElementType]string{
	Resolution: "resolution",
	Preamble:   "preamble",
	Title:      "title",
	Annex:      "annex",
	Chapter:    "chapter",
	Section:    "section",
	Subsection: "subsection",
	Article:    "article",
	Clause:     "clause",
	Paragraph:  "paragraph",
	Inciso:     "inciso",
	Alinea:     "alinea",
	Item:       "item",
}

var elementTypeRanks = map[ElementType]int{
	Resolution: 0,
	Preamble:   0,
	Title:      1,
	Annex:      1,
	Chapter:    2,
	Section:    3,
	Subsection: 4,
	Article:    5,
	Clause:     5,
	Paragraph:  6,
	Inciso:     7,
	Alinea:     8,
	Item:       9,
}

// Rank is the hierarchy depth of the type; smaller is higher.
func (t ElementType) Rank() int {
	return elementTypeRanks[t]
}

func (t ElementType) String() string {
	if name, ok := elementTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ElementType(%d)", int(t))
}

// BreadcrumbWorthy reports whether the type appears in breadcrumbs.
func (t ElementType) BreadcrumbWorthy() bool {
	return t != Resolution && t != Preamble
}

// MarshalText encodes the type by name.
func (t ElementType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *ElementType) UnmarshalText(b []byte) error {
	parsed, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseElementType converts a type name into an ElementType.
func ParseElementType(s string) (ElementType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range elementTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// DisplayNames maps element types to breadcrumb labels.
type DisplayNames map[ElementType]string

// DefaultDisplayNames returns the labels used for Brazilian norms.
func DefaultDisplayNames() DisplayNames {
	return DisplayNames{
		Resolution: "Resolução",
		Preamble:   "Preâmbulo",
		Title:      "TÍTULO",
		Annex:      "ANEXO",
		Chapter:    "CAPÍTULO",
		Section:    "Seção",
		Subsection: "Subseção",
		Article:    "Art.",
		Clause:     "Cláusula",
		Paragraph:  "§",
		Inciso:     "Inc.",
		Alinea:     "Alínea",
		Item:       "Item",
	}
}

// Label renders one breadcrumb segment for an element.
func (d DisplayNames) Label(t ElementType, number string) string {
	switch t {
	case Paragraph:
		if number == SoleParagraph {
			return "Parágrafo Único"
		}
		return "§ " + number
	case Inciso:
		return "Inc. " + number
	}
	name, ok := d[t]
	if !ok {
		name = DefaultDisplayNames()[t]
	}
	return name + " " + number
}

// Element is one structural unit recognized in a document.
type Element struct {
	ID      int         `json:"id"`
	Type    ElementType `json:"type"`
	Number  string      `json:"number"`
	Text    string      `json:"text"`
	Rank    int         `json:"rank"`
	Page    int         `json:"page"`
	Parent  int         `json:"parent"`
	Context string      `json:"hierarchical_context"`
}

// Document owns every element produced by one parse, indexed by Element.ID.
type Document struct {
	Elements []Element `json:"elements"`
	Lines    int       `json:"lines"`
	Pages    int       `json:"pages"`
}

// Parent returns the parent of e, if any.
func (d *Document) Parent(e Element) (Element, bool) {
	if e.Parent == NoParent || e.Parent < 0 || e.Parent >= len(d.Elements) {
		return Element{}, false
	}
	return d.Elements[e.Parent], true
}

// Ancestors returns the chain of parents of e, nearest first.
func (d *Document) Ancestors(e Element) []Element {
	var chain []Element
	for p, ok := d.Parent(e); ok; p, ok = d.Parent(p) {
		chain = append(chain, p)
	}
	return chain
}

func (d *Document) add(t ElementType, number, text string, page int) int {
	id := len(d.Elements)
	d.Elements = append(d.Elements, Element{
		ID:     id,
		Type:   t,
		Number: number,
		Text:   text,
		Rank:   t.Rank(),
		Page:   page,
		Parent: NoParent,
	})
	return id
}
