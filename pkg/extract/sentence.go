package extract

import (
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits text at whitespace runs that directly follow one of
// '.', ';', '!' or '?'. Punctuation stays with the preceding sentence and the
// whitespace is dropped. Text without any boundary is returned whole.
func SplitSentences(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isSentenceEnd(r) {
			i += size
			continue
		}
		end := i + size
		j := end
		for j < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += wsize
		}
		if j > end && j < len(text) {
			out = append(out, text[start:end])
			start = j
		}
		i = j
		if j == end {
			i = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == ';' || r == '!' || r == '?'
}
