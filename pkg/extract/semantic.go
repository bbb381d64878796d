package extract

import (
	"regexp"
	"strings"
)

// SemanticType classifies a normative sentence.
type SemanticType string

const (
	SemanticObligation  SemanticType = "obligation"
	SemanticProhibition SemanticType = "prohibition"
)

// SemanticTags holds the spans extracted from one chunk of text.
type SemanticTags struct {
	Obligations     []string `json:"obligations"`
	Prohibitions    []string `json:"prohibitions"`
	CrossReferences []string `json:"cross_references"`
	NumericValues   []string `json:"numeric_values"`
}

// Empty reports whether no span was found.
func (t SemanticTags) Empty() bool {
	return len(t.Obligations) == 0 && len(t.Prohibitions) == 0 &&
		len(t.CrossReferences) == 0 && len(t.NumericValues) == 0
}

// semanticPattern represents a pattern for detecting semantic content.
type semanticPattern struct {
	Pattern     *regexp.Regexp
	Type        SemanticType
	Description string
}

// SemanticTagger extracts obligations, prohibitions, cross-references and
// numeric values from normative text. It holds no mutable state.
type SemanticTagger struct {
	obligationPatterns  []*semanticPattern
	prohibitionPatterns []*semanticPattern
	references          *ReferenceExtractor
	values              *ValueExtractor
}

// breadcrumbPrefixPattern matches the "[context] " prefix of chunk text.
var breadcrumbPrefixPattern = regexp.MustCompile(`^\[[^\]]*\]\s+`)

// NewSemanticTagger creates a tagger with the default Portuguese patterns.
func NewSemanticTagger() *SemanticTagger {
	t := &SemanticTagger{
		references: NewReferenceExtractor(),
		values:     NewValueExtractor(),
	}
	t.initObligationPatterns()
	t.initProhibitionPatterns()
	return t
}

func (t *SemanticTagger) initObligationPatterns() {
	t.obligationPatterns = []*semanticPattern{
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})(?:deve|devem|dever[áã]o|deverá)(?:\P{L}|$)`),
			Type:        SemanticObligation,
			Description: "dever",
		},
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})[ée]\s+obrigat[óo]ri[oa]s?(?:\P{L}|$)`),
			Type:        SemanticObligation,
			Description: "é obrigatório",
		},
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})(?:obriga-se|ficam?\s+obrigad[oa]s?)(?:\P{L}|$)`),
			Type:        SemanticObligation,
			Description: "obriga-se / fica obrigado",
		},
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})(?:compete|cabe\s+(?:à|ao|aos|às))(?:\P{L}|$)`),
			Type:        SemanticObligation,
			Description: "competência",
		},
	}
}

func (t *SemanticTagger) initProhibitionPatterns() {
	t.prohibitionPatterns = []*semanticPattern{
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})[ée]\s+(?:vedad[oa]s?|proibid[oa]s?)(?:\P{L}|$)`),
			Type:        SemanticProhibition,
			Description: "é vedado / é proibido",
		},
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})ficam?\s+(?:vedad[oa]s?|proibid[oa]s?)(?:\P{L}|$)`),
			Type:        SemanticProhibition,
			Description: "fica vedado",
		},
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})n[ãa]o\s+(?:pode|podem|poder[áã]o|poderá|deve|devem|dever[áã]o|deverá)(?:\P{L}|$)`),
			Type:        SemanticProhibition,
			Description: "não pode / não deve",
		},
		{
			Pattern:     regexp.MustCompile(`(?i)(?:^|\P{L})vedad[oa]s?(?:\P{L}|$)`),
			Type:        SemanticProhibition,
			Description: "vedado",
		},
	}
}

// Tag extracts all semantic spans from text. A leading breadcrumb prefix is
// ignored. Sentences classified as prohibitions are not also reported as
// obligations.
func (t *SemanticTagger) Tag(text string) (SemanticTags, error) {
	body := breadcrumbPrefixPattern.ReplaceAllString(text, "")

	tags := SemanticTags{
		Obligations:     []string{},
		Prohibitions:    []string{},
		CrossReferences: []string{},
		NumericValues:   []string{},
	}

	for _, sentence := range SplitSentences(body) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		switch {
		case matchesAny(t.prohibitionPatterns, sentence):
			tags.Prohibitions = appendUnique(tags.Prohibitions, sentence)
		case matchesAny(t.obligationPatterns, sentence):
			tags.Obligations = appendUnique(tags.Obligations, sentence)
		}
	}

	for _, ref := range t.references.Extract(body) {
		tags.CrossReferences = appendUnique(tags.CrossReferences, ref.Text)
	}
	for _, v := range t.values.Extract(body) {
		tags.NumericValues = appendUnique(tags.NumericValues, v.Text)
	}

	return tags, nil
}

// Classify returns the semantic type of a sentence, or "" when neutral.
func (t *SemanticTagger) Classify(sentence string) SemanticType {
	if matchesAny(t.prohibitionPatterns, sentence) {
		return SemanticProhibition
	}
	if matchesAny(t.obligationPatterns, sentence) {
		return SemanticObligation
	}
	return ""
}

func matchesAny(patterns []*semanticPattern, s string) bool {
	for _, p := range patterns {
		if p.Pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
