package extract

import "strings"

// BreadcrumbSeparator joins breadcrumb segments.
const BreadcrumbSeparator = " > "

// HierarchyBuilder links elements to their parents with a stack of open
// element handles ordered by increasing rank.
type HierarchyBuilder struct {
	names DisplayNames
	stack []int
}

// NewHierarchyBuilder creates a builder rendering breadcrumbs with names.
func NewHierarchyBuilder(names DisplayNames) *HierarchyBuilder {
	if names == nil {
		names = DefaultDisplayNames()
	}
	return &HierarchyBuilder{names: names}
}

// Attach links element id to the nearest open element of smaller rank,
// computes its breadcrumb and pushes it onto the stack.
func (h *HierarchyBuilder) Attach(doc *Document, id int) {
	e := &doc.Elements[id]
	if e.Type == Preamble {
		e.Parent = NoParent
		e.Context = ""
		return
	}

	for len(h.stack) > 0 && doc.Elements[h.stack[len(h.stack)-1]].Rank >= e.Rank {
		h.stack = h.stack[:len(h.stack)-1]
	}

	e.Parent = NoParent
	if len(h.stack) > 0 {
		e.Parent = h.stack[len(h.stack)-1]
	}
	e.Context = h.breadcrumb(doc, *e)
	h.stack = append(h.stack, id)
}

// Rebuild recomputes every parent link and breadcrumb from scratch.
// Running it on a consistent document changes nothing.
func (h *HierarchyBuilder) Rebuild(doc *Document) {
	h.stack = h.stack[:0]
	for id := range doc.Elements {
		h.Attach(doc, id)
	}
}

// breadcrumb renders e and its ancestors, highest rank first.
func (h *HierarchyBuilder) breadcrumb(doc *Document, e Element) string {
	var parts []string
	if e.Type.BreadcrumbWorthy() {
		parts = append(parts, h.names.Label(e.Type, e.Number))
	}
	for _, a := range doc.Ancestors(e) {
		if a.Type.BreadcrumbWorthy() {
			parts = append(parts, h.names.Label(a.Type, a.Number))
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, BreadcrumbSeparator)
}
