package pattern

import (
	"strings"
	"testing"
)

func defaultDetector(t *testing.T) *Detector {
	t.Helper()
	registry, err := NewDefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	table, err := registry.Table(DefaultTableID)
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewDetector(table)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDetectorDetect(t *testing.T) {
	d := defaultDetector(t)

	tests := []struct {
		name        string
		text        string
		wantKind    Kind
		wantHeader  bool
		wantMatches int
	}{
		{
			name:        "resolution with three articles",
			text:        "RESOLUÇÃO NORMATIVA ANEEL Nº 1.000, DE 7 DE DEZEMBRO DE 2021\nArt. 1º Objeto.\nArt. 2º Campo.\nArt. 3º Vigência.",
			wantKind:    KindLegal,
			wantHeader:  true,
			wantMatches: 3,
		},
		{
			name:        "header with too few articles",
			text:        "LEI Nº 8.987\nArt. 1º Objeto.",
			wantKind:    KindGeneric,
			wantHeader:  true,
			wantMatches: 1,
		},
		{
			name:        "many articles without header",
			text:        strings.Repeat("Art. 1 texto. ", 10),
			wantKind:    KindLegal,
			wantHeader:  false,
			wantMatches: 10,
		},
		{
			name:        "plain prose",
			text:        "Relatório anual de atividades da agência.",
			wantKind:    KindGeneric,
			wantHeader:  false,
			wantMatches: 0,
		},
		{
			name:        "paragraph markers count",
			text:        "CONSIDERANDO o disposto no § 1 e no § 2 e no Artigo 5,",
			wantKind:    KindLegal,
			wantHeader:  true,
			wantMatches: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.text)
			if got.Kind != tt.wantKind {
				t.Errorf("Detect().Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.HeaderFound != tt.wantHeader {
				t.Errorf("Detect().HeaderFound = %t, want %t", got.HeaderFound, tt.wantHeader)
			}
			if got.StructuralMatches != tt.wantMatches {
				t.Errorf("Detect().StructuralMatches = %d, want %d", got.StructuralMatches, tt.wantMatches)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Errorf("Detect().Confidence = %f, out of range", got.Confidence)
			}
		})
	}
}

func TestNewDetectorNil(t *testing.T) {
	if _, err := NewDetector(nil); err == nil {
		t.Error("NewDetector(nil) should return error")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Legal "); err != nil || k != KindLegal {
		t.Errorf("ParseKind(Legal) = %v, %v", k, err)
	}
	if _, err := ParseKind("poem"); err == nil {
		t.Error("ParseKind(poem) should fail")
	}
}
