package extract

import "regexp"

// DedupKey identifies the provision an element stands for.
func DedupKey(e Element) string {
	return e.Type.String() + "|" + e.Number + "|" + e.Context
}

// Dedup keeps one element per (type, number, context). The winner is the last
// element carrying an amendment marker, or the first one when none does. The
// survivor takes the position of the first occurrence. Preamble elements pass
// through untouched.
func Dedup(elems []Element, amendment *regexp.Regexp) []Element {
	winners := make(map[string]Element, len(elems))
	for _, e := range elems {
		if e.Type == Preamble {
			continue
		}
		key := DedupKey(e)
		if _, seen := winners[key]; !seen || (amendment != nil && amendment.MatchString(e.Text)) {
			winners[key] = e
		}
	}

	out := make([]Element, 0, len(winners))
	emitted := make(map[string]bool, len(winners))
	for _, e := range elems {
		if e.Type == Preamble {
			out = append(out, e)
			continue
		}
		key := DedupKey(e)
		if emitted[key] {
			continue
		}
		emitted[key] = true
		out = append(out, winners[key])
	}
	return out
}

// FilterRevoked drops elements marked as revoked and sole paragraphs known to
// be revoked. It must run after Dedup.
func FilterRevoked(elems []Element, g *Grammar) (kept []Element, dropped int) {
	kept = make([]Element, 0, len(elems))
	for _, e := range elems {
		if g.IsRevoked(e.Text) {
			dropped++
			continue
		}
		if e.Type == Paragraph && e.Number == SoleParagraph && g.IsRevokedSoleParagraph(e.Text) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}
