package extract

import "strings"

var romanValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// RomanToInt parses a Roman numeral using subtractive notation.
// It returns false for an empty string or any non-Roman character.
func RomanToInt(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0, false
		}
		if i+1 < len(s) {
			if next, ok := romanValues[s[i+1]]; ok && next > v {
				total -= v
				continue
			}
		}
		total += v
	}
	return total, true
}

// romanPrefix returns the leading run of Roman numeral characters.
func romanPrefix(s string) string {
	end := 0
	for end < len(s) {
		if _, ok := romanValues[upperASCII(s[end])]; !ok {
			break
		}
		end++
	}
	return s[:end]
}

func upperASCII(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
