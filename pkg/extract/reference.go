package extract

import (
	"regexp"
	"sort"
	"strings"
)

// ReferenceKind is the kind of provision a cross-reference points to.
type ReferenceKind string

const (
	RefArticle   ReferenceKind = "article"
	RefParagraph ReferenceKind = "paragraph"
	RefInciso    ReferenceKind = "inciso"
	RefAlinea    ReferenceKind = "alinea"
	RefNorm      ReferenceKind = "norm"
)

// Reference is a cross-reference found in text.
type Reference struct {
	Kind  ReferenceKind `json:"kind"`
	Text  string        `json:"text"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

type spanPattern struct {
	kind string
	re   *regexp.Regexp
}

// ReferenceExtractor detects cross-references to other provisions and norms.
type ReferenceExtractor struct {
	patterns []spanPattern
}

// NewReferenceExtractor creates a ReferenceExtractor with default patterns.
// Group 1 of every pattern holds the reference text.
func NewReferenceExtractor() *ReferenceExtractor {
	return &ReferenceExtractor{
		patterns: []spanPattern{
			// "Resolução Normativa ANEEL nº 1.000", "Lei nº 8.987/95"
			{string(RefNorm), regexp.MustCompile(`(?i)(?:^|[^\pL])((?:Resolu[çc][ãa]o(?:\s+Normativa)?(?:\s+[A-Z]{2,10})?|Lei(?:\s+Complementar)?|Decreto(?:-Lei)?|Portaria|Medida\s+Provis[óo]ria|Instru[çc][ãa]o\s+Normativa)\s+n[º°o.]*\s*\d[\d.]*(?:/\d{2,4})?)`)},
			// "art. 5º", "arts. 3º e 4º"
			{string(RefArticle), regexp.MustCompile(`(?:^|[^\pL])([Aa]rts?\.\s*\d+(?:-[A-Z])?[º°o]?(?:\s*(?:,|e|a)\s*\d+(?:-[A-Z])?[º°o]?)*)`)},
			// "§ 2º", "§§ 1º e 2º"
			{string(RefParagraph), regexp.MustCompile(`(§§?\s*\d+(?:-[A-Z])?[º°o]?)`)},
			// "inciso IV"
			{string(RefInciso), regexp.MustCompile(`(?:^|[^\pL])([Ii]ncisos?\s+[IVXLCDM]+(?:-[A-Z])?)(?:[^\pL]|$)`)},
			// "alínea "a""
			{string(RefAlinea), regexp.MustCompile(`(?:^|[^\pL])([Aa]l[íi]neas?\s+["“”']?[a-z]["“”']?)(?:[^\pL]|$)`)},
		},
	}
}

// Extract returns references in text order, without overlaps.
func (e *ReferenceExtractor) Extract(text string) []Reference {
	var refs []Reference
	for _, s := range findSpans(e.patterns, text) {
		refs = append(refs, Reference{
			Kind:  ReferenceKind(s.kind),
			Text:  strings.TrimRight(s.text, ".,"),
			Start: s.start,
			End:   s.end,
		})
	}
	return refs
}

// ValueKind is the kind of a numeric value.
type ValueKind string

const (
	ValueCurrency   ValueKind = "currency"
	ValuePercentage ValueKind = "percentage"
	ValueDuration   ValueKind = "duration"
	ValueQuantity   ValueKind = "quantity"
)

// Value is a numeric value with its unit as it appears in text.
type Value struct {
	Kind  ValueKind `json:"kind"`
	Text  string    `json:"text"`
	Start int       `json:"start"`
	End   int       `json:"end"`
}

// ValueExtractor detects amounts, percentages, deadlines and electrical quantities.
type ValueExtractor struct {
	patterns []spanPattern
}

// NewValueExtractor creates a ValueExtractor with default patterns.
func NewValueExtractor() *ValueExtractor {
	return &ValueExtractor{
		patterns: []spanPattern{
			// "R$ 1.234,56"
			{string(ValueCurrency), regexp.MustCompile(`(R\$\s*\d+(?:\.\d{3})*(?:,\d+)?)`)},
			// "10%", "2,5 por cento"
			{string(ValuePercentage), regexp.MustCompile(`(?i)(\d+(?:,\d+)?\s*(?:%|por\s+cento))`)},
			// "30 (trinta) dias úteis"
			{string(ValueDuration), regexp.MustCompile(`(?i)(\d+\s*(?:\([^)]{1,40}\)\s*)?(?:dias|dia|horas|hora|meses|m[êe]s|anos|ano|minutos|minuto)(?:\s+(?:úteis|corridos))?)(?:[^\pL]|$)`)},
			// "5 MW", "13,8 kV"
			{string(ValueQuantity), regexp.MustCompile(`(\d+(?:[.,]\d+)*\s*(?:kWh|MWh|GWh|kVA|MVA|kW|MW|GW|kV))(?:[^\pL]|$)`)},
		},
	}
}

// Extract returns values in text order, without overlaps.
func (e *ValueExtractor) Extract(text string) []Value {
	var values []Value
	for _, s := range findSpans(e.patterns, text) {
		values = append(values, Value{
			Kind:  ValueKind(s.kind),
			Text:  s.text,
			Start: s.start,
			End:   s.end,
		})
	}
	return values
}

type span struct {
	kind       string
	text       string
	start, end int
}

// findSpans collects group 1 of every pattern match, sorted by position.
// Earlier patterns win when spans overlap.
func findSpans(patterns []spanPattern, text string) []span {
	var spans []span
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			start, end := m[2], m[3]
			if isOverlapping(start, end, spans) {
				continue
			}
			spans = append(spans, span{kind: p.kind, text: text[start:end], start: start, end: end})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func isOverlapping(start, end int, spans []span) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}
