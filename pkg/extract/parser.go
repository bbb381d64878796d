package extract

import "strings"

// Parser turns cleaned normative text into a Document. A Parser holds only
// read-only configuration; every call to Parse owns its own state, so one
// Parser may serve many goroutines.
type Parser struct {
	grammar   *Grammar
	gap       int
	structure bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithSequenceGap sets the forward gap tolerated by the sequence validator.
func WithSequenceGap(gap int) ParserOption {
	return func(p *Parser) {
		if gap > 0 {
			p.gap = gap
		}
	}
}

// WithStructure toggles structural classification. When disabled every line
// is body text and the whole input becomes a single Preamble.
func WithStructure(enabled bool) ParserOption {
	return func(p *Parser) {
		p.structure = enabled
	}
}

// NewParser creates a Parser for the given grammar.
func NewParser(g *Grammar, opts ...ParserOption) *Parser {
	p := &Parser{
		grammar:   g,
		gap:       DefaultSequenceGap,
		structure: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Grammar returns the grammar the parser classifies with.
func (p *Parser) Grammar() *Grammar {
	return p.grammar
}

// Parse runs a single left-to-right pass over text. Page markers set the page
// of subsequent elements, trash lines are dropped, lines failing
// classification or sequence validation become body text of the open element,
// and text before the first element becomes a Preamble.
func (p *Parser) Parse(text string) *Document {
	s := &parseState{
		p:            p,
		doc:          &Document{},
		builder:      NewHierarchyBuilder(p.grammar.Names()),
		validator:    NewSequenceValidator(p.gap),
		page:         1,
		current:      NoParent,
		preamblePage: 1,
	}
	for _, raw := range strings.Split(text, "\n") {
		s.consume(raw)
	}
	return s.finish()
}

type parseState struct {
	p         *Parser
	doc       *Document
	builder   *HierarchyBuilder
	validator *SequenceValidator

	page         int
	maxPage      int
	current      int
	buf          []string
	preamblePage int

	// inclusion is set while a multi-line amendment annotation is open.
	inclusion bool
}

func (s *parseState) consume(raw string) {
	g := s.p.grammar
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	if n, ok := g.PageMarker(line); ok {
		s.page = n
		return
	}
	if g.IsTrash(line) {
		return
	}
	s.doc.Lines++
	if s.page > s.maxPage {
		s.maxPage = s.page
	}

	if s.inclusion {
		s.appendToLast(line)
		if g.closesInclusion(line) {
			s.inclusion = false
		}
		return
	}

	opens := g.opensInclusion(line)
	if s.p.structure {
		if m, ok := g.Classify(line); ok && s.accept(m) {
			s.open(m, line)
			s.inclusion = opens
			return
		}
	}
	if opens {
		s.appendToLast(line)
		s.inclusion = true
		return
	}
	s.append(line)
}

func (s *parseState) accept(m Match) bool {
	if !m.Validate {
		return true
	}
	key := ScopeKey(s.scopeContext(m.Type), m.Type)
	return s.validator.Accept(m.Type, m.Number, key, s.inAnnex())
}

// scopeContext locates the numbering scope of a candidate of type t. Ranks up
// to Article share the document scope; deeper ranks are scoped under the
// nearest open ancestor of smaller rank.
func (s *parseState) scopeContext(t ElementType) string {
	target := t.Rank()
	if target <= Article.Rank() {
		return globalScope
	}
	id := s.current
	for id != NoParent && s.doc.Elements[id].Rank >= target {
		id = s.doc.Elements[id].Parent
	}
	if id == NoParent {
		return globalScope
	}
	a := s.doc.Elements[id]
	return a.Context + BreadcrumbSeparator + a.Type.String() + "_" + a.Number
}

func (s *parseState) inAnnex() bool {
	for id := s.current; id != NoParent; id = s.doc.Elements[id].Parent {
		if s.doc.Elements[id].Type == Annex {
			return true
		}
	}
	return false
}

func (s *parseState) open(m Match, line string) {
	s.flush()
	if m.Type == Annex {
		s.validator.EnterAnnex()
	}
	id := s.doc.add(m.Type, m.Number, "", s.page)
	s.current = id
	s.buf = []string{line}
	s.builder.Attach(s.doc, id)
}

func (s *parseState) append(line string) {
	if len(s.buf) == 0 && s.current == NoParent {
		s.preamblePage = s.page
	}
	s.buf = append(s.buf, line)
}

// appendToLast joins line onto the last buffered line with a space.
func (s *parseState) appendToLast(line string) {
	if len(s.buf) == 0 {
		s.append(line)
		return
	}
	s.buf[len(s.buf)-1] += " " + line
}

// flush freezes the text of the open element, or emits the Preamble when no
// element has been opened yet.
func (s *parseState) flush() {
	text := strings.Join(s.buf, "\n")
	switch {
	case s.current != NoParent:
		s.doc.Elements[s.current].Text = text
	case len(s.buf) > 0:
		id := s.doc.add(Preamble, "0", text, s.preamblePage)
		s.builder.Attach(s.doc, id)
	}
	s.buf = nil
}

func (s *parseState) finish() *Document {
	s.flush()
	s.builder.Rebuild(s.doc)
	s.doc.Pages = s.maxPage
	return s.doc
}
