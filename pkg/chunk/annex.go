package chunk

import (
	"strings"

	"github.com/coolbeans/regchunk/pkg/extract"
)

// AnnexPolicy decides whether an element gets a special annex treatment.
// It returns LineAnnex, VerbatimAnnex, or Normal for ordinary handling.
type AnnexPolicy interface {
	Treatment(e extract.Element) Treatment
}

// AnnexPolicyFunc adapts a function to AnnexPolicy.
type AnnexPolicyFunc func(e extract.Element) Treatment

// Treatment calls f(e).
func (f AnnexPolicyFunc) Treatment(e extract.Element) Treatment {
	return f(e)
}

// NoAnnexPolicy treats every element as normal.
type NoAnnexPolicy struct{}

// Treatment always returns Normal.
func (NoAnnexPolicy) Treatment(extract.Element) Treatment {
	return Normal
}

// NumberedAnnexPolicy selects annexes by number. An element is covered when
// it is the annex itself or when its breadcrumb has the annex segment.
// PerLine wins over Verbatim when a number is in both lists.
type NumberedAnnexPolicy struct {
	Verbatim []string
	PerLine  []string
	// Names renders the annex breadcrumb segment; nil uses the defaults.
	Names extract.DisplayNames
}

// DefaultAnnexPolicy keeps ANEXO III whole and splits ANEXO IV per line.
func DefaultAnnexPolicy() NumberedAnnexPolicy {
	return NumberedAnnexPolicy{
		Verbatim: []string{"III"},
		PerLine:  []string{"IV"},
	}
}

// BindNames returns policy with names filled in when it is a
// NumberedAnnexPolicy without its own. Other policies are returned as is.
func BindNames(policy AnnexPolicy, names extract.DisplayNames) AnnexPolicy {
	if p, ok := policy.(NumberedAnnexPolicy); ok && p.Names == nil {
		p.Names = names
		return p
	}
	return policy
}

// Treatment implements AnnexPolicy.
func (p NumberedAnnexPolicy) Treatment(e extract.Element) Treatment {
	if p.covers(e, p.PerLine) {
		return LineAnnex
	}
	if p.covers(e, p.Verbatim) {
		return VerbatimAnnex
	}
	return Normal
}

func (p NumberedAnnexPolicy) covers(e extract.Element, numbers []string) bool {
	if len(numbers) == 0 {
		return false
	}
	names := p.Names
	if names == nil {
		names = extract.DefaultDisplayNames()
	}
	segments := strings.Split(e.Context, extract.BreadcrumbSeparator)
	for _, n := range numbers {
		if e.Type == extract.Annex && strings.EqualFold(e.Number, n) {
			return true
		}
		label := names.Label(extract.Annex, n)
		for _, s := range segments {
			if strings.EqualFold(s, label) {
				return true
			}
		}
	}
	return false
}
