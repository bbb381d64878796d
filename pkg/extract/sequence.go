package extract

import (
	"strconv"
	"strings"
)

// DefaultSequenceGap is the default forward gap tolerated between numbers.
const DefaultSequenceGap = 5

// globalScope is the scope context of elements of rank 5 and above.
const globalScope = "doc"

type scope struct {
	last  int
	annex bool
}

// SequenceValidator tracks the last accepted number per scope so that stray
// numerals are not mistaken for new elements. One validator serves one parse.
type SequenceValidator struct {
	gap    int
	scopes map[string]*scope
}

// NewSequenceValidator returns a validator tolerating forward gaps below gap.
func NewSequenceValidator(gap int) *SequenceValidator {
	if gap < 1 {
		gap = DefaultSequenceGap
	}
	return &SequenceValidator{gap: gap, scopes: make(map[string]*scope)}
}

// NumberValue converts an element number into its ordinal value.
// Article and Paragraph use the leading decimal run, Inciso the Roman prefix
// and Alinea the letter position. Other types have no ordinal.
func NumberValue(t ElementType, number string) (int, bool) {
	switch t {
	case Inciso:
		prefix := romanPrefix(number)
		if prefix == "" {
			return 0, false
		}
		return RomanToInt(prefix)
	case Alinea:
		if number == "" {
			return 0, false
		}
		c := strings.ToLower(number)[0]
		if c < 'a' || c > 'z' {
			return 0, false
		}
		return int(c-'a') + 1, true
	case Article, Paragraph:
		end := 0
		for end < len(number) && number[end] >= '0' && number[end] <= '9' {
			end++
		}
		if end == 0 {
			return 0, false
		}
		n, err := strconv.Atoi(number[:end])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// ScopeKey builds the key under which numbering continuity is tracked.
func ScopeKey(context string, t ElementType) string {
	return context + "|" + t.String()
}

// Accept decides whether number continues the sequence of scopeKey.
// inAnnex tags a newly created scope as belonging to an annex.
func (v *SequenceValidator) Accept(t ElementType, number, scopeKey string, inAnnex bool) bool {
	if number == SoleParagraph {
		return true
	}
	num, ok := NumberValue(t, number)
	if !ok {
		return true
	}

	s, exists := v.scopes[scopeKey]
	last := 0
	if exists {
		last = s.last
	}

	accepted := num == 1 ||
		num == last+1 ||
		num == last ||
		(num > last && num-last < v.gap)
	if !accepted {
		return false
	}
	if num > last {
		if !exists {
			s = &scope{annex: inAnnex}
			v.scopes[scopeKey] = s
		}
		s.last = num
	}
	return true
}

// Last returns the last accepted number of a scope.
func (v *SequenceValidator) Last(scopeKey string) int {
	if s, ok := v.scopes[scopeKey]; ok {
		return s.last
	}
	return 0
}

// EnterAnnex forgets every scope except the document-global ones and those
// opened inside an annex.
func (v *SequenceValidator) EnterAnnex() {
	for key, s := range v.scopes {
		if strings.HasPrefix(key, globalScope+"|") || s.annex {
			continue
		}
		delete(v.scopes, key)
	}
}
