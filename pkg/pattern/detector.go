package pattern

import (
	"fmt"
	"strings"
)

// Kind classifies a whole document before parsing.
type Kind string

const (
	// KindLegal is normative text with article structure.
	KindLegal Kind = "legal"
	// KindGeneric is any other prose.
	KindGeneric Kind = "generic"
)

// Detection is the result of classifying a document.
type Detection struct {
	Kind              Kind     `json:"kind"`
	StructuralMatches int      `json:"structural_matches"`
	HeaderFound       bool     `json:"header_found"`
	Headers           []string `json:"headers,omitempty"`
	Confidence        float64  `json:"confidence"`
}

// String returns a human-readable summary of the detection.
func (d Detection) String() string {
	return fmt.Sprintf("%s: %.1f%% confidence (%d structural matches, header: %t)",
		d.Kind, d.Confidence*100, d.StructuralMatches, d.HeaderFound)
}

// Detector decides whether a text is normative using a table's indicators.
type Detector struct {
	table *Table
}

// NewDetector creates a detector for a compiled table.
func NewDetector(table *Table) (*Detector, error) {
	if table == nil {
		return nil, fmt.Errorf("table cannot be nil")
	}
	if !table.IsCompiled() {
		if err := table.Compile(); err != nil {
			return nil, fmt.Errorf("compiling table %q: %w", table.ID, err)
		}
	}
	return &Detector{table: table}, nil
}

// Detect counts structural indicators over the whole text and looks for a
// normative header. A document is legal when a header is present alongside
// MinStructuralWithHeader matches, or when MinStructural matches are found.
func (d *Detector) Detect(text string) Detection {
	c := d.table.Compiled()
	cfg := d.table.Detection

	var det Detection
	for _, re := range c.Structural {
		det.StructuralMatches += len(re.FindAllStringIndex(text, -1))
	}
	for i, re := range c.Headers {
		if re.MatchString(text) {
			det.HeaderFound = true
			det.Headers = append(det.Headers, cfg.Headers[i].Pattern)
		}
	}

	minWithHeader := cfg.MinStructuralWithHeader
	if minWithHeader <= 0 {
		minWithHeader = 3
	}
	minAlone := cfg.MinStructural
	if minAlone <= 0 {
		minAlone = 10
	}

	det.Kind = KindGeneric
	if (det.HeaderFound && det.StructuralMatches >= minWithHeader) || det.StructuralMatches >= minAlone {
		det.Kind = KindLegal
	}
	det.Confidence = confidence(det, minAlone)
	return det
}

func confidence(det Detection, minAlone int) float64 {
	score := float64(det.StructuralMatches) / float64(minAlone)
	if det.HeaderFound {
		score += 0.5
	}
	if score > 1 {
		score = 1
	}
	if det.Kind == KindGeneric {
		return 1 - score
	}
	return score
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLegal:
		return KindLegal, nil
	case KindGeneric:
		return KindGeneric, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}
