package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Cleaner normalizes raw extracted text before parsing.
type Cleaner interface {
	Clean(raw string) (string, error)
}

var (
	// pageMarkerLinePattern matches page markers, which must survive cleaning.
	pageMarkerLinePattern = regexp.MustCompile(`^\[\[PAGINA:\d+\]\]$`)

	// trashLinePatterns match boilerplate left by the publication portal.
	trashLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^Voto$`),
		regexp.MustCompile(`^Texto\s+[Cc]ompilado$`),
		regexp.MustCompile(`^\d{1,4}$`),
		regexp.MustCompile(`^P[áa]gina\s+\d+\s+de\s+\d+$`),
	}

	// isolatedCrasePattern matches "ã" or "ãs" standing alone, an extraction
	// error for the crase "à"/"às".
	isolatedCrasePattern = regexp.MustCompile(`(^|[\s(])ã(s?)([\s,;.)]|$)`)

	// horizontalSpacePattern matches runs of spaces and tabs.
	horizontalSpacePattern = regexp.MustCompile(`[ \t\x{00A0}]+`)

	// hyphenatedLineEndPattern matches lines ending with a hyphen after a letter.
	hyphenatedLineEndPattern = regexp.MustCompile(`\pL-$`)
)

// mojibakeReplacer repairs UTF-8 text that was decoded as Latin-1.
var mojibakeReplacer = strings.NewReplacer(
	"Ã§", "ç", "Ã‡", "Ç",
	"Ã£", "ã", "Ãµ", "õ",
	"Ã¡", "á", "Ã©", "é", "Ã\u00ad", "í", "Ã³", "ó", "Ãº", "ú",
	"Ã¢", "â", "Ãª", "ê", "Ã´", "ô",
	"Ã\u00a0", "à",
	"Ã‰", "É", "Ã“", "Ó", "Ãš", "Ú",
	"Âº", "º", "Âª", "ª", "Â§", "§", "Â°", "°",
)

// TextCleaner is the default Cleaner for Portuguese normative text.
type TextCleaner struct {
	// KeepTrash disables removal of boilerplate lines.
	KeepTrash bool
}

// NewTextCleaner creates a TextCleaner with default settings.
func NewTextCleaner() *TextCleaner {
	return &TextCleaner{}
}

// Clean normalizes line endings and Unicode, repairs encoding artifacts,
// drops boilerplate lines and rejoins words hyphenated across line breaks.
// Page markers are preserved verbatim.
func (c *TextCleaner) Clean(raw string) (string, error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if r == 0 || r == '\uFEFF' {
			return -1
		}
		return r
	}, text)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	text = mojibakeReplacer.Replace(text)
	text = norm.NFC.String(text)

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(horizontalSpacePattern.ReplaceAllString(line, " "))
		if pageMarkerLinePattern.MatchString(line) {
			cleaned = append(cleaned, line)
			continue
		}
		if !c.KeepTrash && isTrashLine(line) {
			continue
		}
		cleaned = append(cleaned, fixIsolatedCrase(line))
	}

	cleaned = rejoinHyphenatedLines(cleaned)
	return strings.Join(cleaned, "\n"), nil
}

func isTrashLine(line string) bool {
	for _, re := range trashLinePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// fixIsolatedCrase turns a standalone "ã" into "à". Words such as "não" or
// "ação" are never affected because the match requires word boundaries.
func fixIsolatedCrase(line string) string {
	if !strings.Contains(line, "ã") {
		return line
	}
	// Matches may share a boundary character, so repeat until stable.
	for {
		fixed := isolatedCrasePattern.ReplaceAllString(line, "${1}à${2}${3}")
		if fixed == line {
			return fixed
		}
		line = fixed
	}
}

// rejoinHyphenatedLines merges lines where a word was broken with a hyphen
// at the line end. For example:
//
//	"a distribui-"
//	"dora deverá"
//
// becomes:
//
//	"a distribuidora deverá"
//
// A hyphen followed by an enclitic pronoun ("aplica-" then "se") is a real
// hyphen and the lines are left apart.
func rejoinHyphenatedLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}

	var result []string
	for i := 0; i < len(lines); i++ {
		current := strings.TrimRight(lines[i], " \t")

		if i+1 < len(lines) && hyphenatedLineEndPattern.MatchString(current) {
			next := strings.TrimSpace(lines[i+1])
			first, _ := utf8.DecodeRuneInString(next)

			// Only rejoin when the next line continues the word in lowercase
			// and is not an enclitic pronoun such as "aplica-" "se".
			if next != "" && unicode.IsLower(first) && !startsWithClitic(next) {
				result = append(result, current[:len(current)-1]+next)
				i++
				continue
			}
		}

		result = append(result, lines[i])
	}

	return result
}

var clitics = map[string]bool{
	"se": true, "lhe": true, "lhes": true, "o": true, "a": true, "os": true,
	"as": true, "lo": true, "la": true, "los": true, "las": true, "me": true,
	"te": true, "nos": true, "vos": true,
}

func startsWithClitic(s string) bool {
	word := s
	if i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		word = s[:i]
	}
	return clitics[word]
}
