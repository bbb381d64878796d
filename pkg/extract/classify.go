package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/coolbeans/regchunk/pkg/pattern"
)

// Match is the outcome of classifying one line.
type Match struct {
	Type     ElementType
	Number   string
	Validate bool
}

type rule struct {
	typ      ElementType
	re       *regexp.Regexp
	group    int
	fixed    string
	trim     string
	validate bool
}

// Grammar is a compiled pattern table. It is read-only after construction
// and safe to share between parsers.
type Grammar struct {
	rules          []rule
	pageMarker     *regexp.Regexp
	trash          []*regexp.Regexp
	revoked        *regexp.Regexp
	amendment      *regexp.Regexp
	inclusionOpen  *regexp.Regexp
	inclusionClose *regexp.Regexp
	revokedSole    []string
	names          DisplayNames
}

// NewGrammar builds a Grammar from a pattern table.
func NewGrammar(t *pattern.Table) (*Grammar, error) {
	if t == nil {
		return nil, fmt.Errorf("pattern table cannot be nil")
	}
	if !t.IsCompiled() {
		if err := t.Compile(); err != nil {
			return nil, fmt.Errorf("compiling table %q: %w", t.ID, err)
		}
	}
	c := t.Compiled()

	g := &Grammar{
		pageMarker:     c.PageMarker,
		trash:          c.Trash,
		revoked:        c.Revoked,
		amendment:      c.Amendment,
		inclusionOpen:  c.InclusionOpen,
		inclusionClose: c.InclusionClose,
		names:          DefaultDisplayNames(),
	}
	if g.pageMarker == nil {
		return nil, fmt.Errorf("table %q has no page marker", t.ID)
	}

	for i, level := range t.Levels {
		typ, err := ParseElementType(level.Type)
		if err != nil {
			return nil, fmt.Errorf("table %q level %d: %w", t.ID, i, err)
		}
		g.rules = append(g.rules, rule{
			typ:      typ,
			re:       c.Levels[i],
			group:    level.NumberIndex(),
			fixed:    level.Fixed,
			trim:     level.Trim,
			validate: level.Validate,
		})
	}

	for name, label := range t.DisplayNames {
		typ, err := ParseElementType(name)
		if err != nil {
			return nil, fmt.Errorf("table %q display name: %w", t.ID, err)
		}
		g.names[typ] = label
	}

	for _, s := range t.RevokedSoleParagraphs {
		if folded := foldText(s); folded != "" {
			g.revokedSole = append(g.revokedSole, folded)
		}
	}

	return g, nil
}

// Classify returns the first rule matching line. Line must be trimmed.
func (g *Grammar) Classify(line string) (Match, bool) {
	for _, r := range g.rules {
		m := r.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		number := r.fixed
		if number == "" && r.group < len(m) {
			number = strings.Trim(strings.TrimSpace(m[r.group]), r.trim)
		}
		return Match{Type: r.typ, Number: number, Validate: r.validate}, true
	}
	return Match{}, false
}

// PageMarker returns the page number if line is a page marker.
func (g *Grammar) PageMarker(line string) (int, bool) {
	m := g.pageMarker.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsTrash reports whether line is boilerplate that must be discarded.
func (g *Grammar) IsTrash(line string) bool {
	for _, re := range g.trash {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsRevoked reports whether text carries a revocation marker.
func (g *Grammar) IsRevoked(text string) bool {
	return g.revoked != nil && g.revoked.MatchString(text)
}

// IsAmended reports whether text carries an amendment marker.
func (g *Grammar) IsAmended(text string) bool {
	return g.amendment != nil && g.amendment.MatchString(text)
}

// IsRevokedSoleParagraph reports whether text matches a known revoked sole paragraph.
func (g *Grammar) IsRevokedSoleParagraph(text string) bool {
	if len(g.revokedSole) == 0 {
		return false
	}
	folded := foldText(text)
	for _, s := range g.revokedSole {
		if strings.Contains(folded, s) {
			return true
		}
	}
	return false
}

// Names returns the display-name table.
func (g *Grammar) Names() DisplayNames {
	return g.names
}

// Amendment returns the amendment marker pattern, which may be nil.
func (g *Grammar) Amendment() *regexp.Regexp {
	return g.amendment
}

func (g *Grammar) opensInclusion(line string) bool {
	return g.inclusionOpen != nil && g.inclusionOpen.MatchString(line)
}

func (g *Grammar) closesInclusion(line string) bool {
	return g.inclusionClose != nil && g.inclusionClose.MatchString(line)
}

// foldText lowercases and collapses whitespace for loose comparisons.
func foldText(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}
