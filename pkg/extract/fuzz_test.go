package extract

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

// FuzzParser tests the document parser with arbitrary input.
// Run with: go test -fuzz=FuzzParser -fuzztime=30s ./pkg/extract/...
func FuzzParser(f *testing.F) {
	seeds := []string{
		"Art. 1º Esta norma regula X.\nParágrafo único. Aplica-se a Y.",

		`RESOLUÇÃO NORMATIVA ANEEL Nº 1.000, DE 7 DE DEZEMBRO DE 2021
O DIRETOR-GERAL DA AGÊNCIA NACIONAL DE ENERGIA ELÉTRICA resolve:
TÍTULO I
DAS DISPOSIÇÕES GERAIS
CAPÍTULO I
DO OBJETO
Art. 1º Esta Resolução estabelece as regras.
Art. 2º Para os fins desta Resolução, considera-se:
I - consumidor: pessoa física ou jurídica;
II - distribuidora: agente titular de concessão;
a) primeira alínea;
b) segunda alínea.
§ 1º O disposto no caput aplica-se também aos permissionários.
§ 2º (Revogado)`,

		`[[PAGINA:1]]
Art. 1º Texto original
(Incluído pela Resolução Normativa
nº 1.059, de 2023)
[[PAGINA:2]]
Art. 2º Outro texto.
Art. 50 da Lei nº 8.987 não é novo artigo.
Art. 1º Texto novo. (Redação dada pela Resolução nº 5)`,

		`CLÁUSULA PRIMEIRA: DO OBJETO
O presente contrato regula a concessão.
CLÁUSULA SEGUNDA – DAS OBRIGAÇÕES
ANEXO III
1. Primeiro item.
1.1) Subitem.`,

		"",
		"\n\n\n",
		"[[PAGINA:999999999999999999999]]",
		"(Incluído pela",
		"§ 0º\nI -\na)\n1. ",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	g := defaultGrammar(f)
	parser := NewParser(g)

	f.Fuzz(func(t *testing.T, input string) {
		doc := parser.Parse(input)

		for i, e := range doc.Elements {
			if e.ID != i {
				t.Fatalf("element %d has ID %d", i, e.ID)
			}
			if e.Rank != e.Type.Rank() {
				t.Errorf("element %d rank = %d, want %d", i, e.Rank, e.Type.Rank())
			}
			if e.Parent == NoParent {
				continue
			}
			if e.Parent < 0 || e.Parent >= i {
				t.Fatalf("element %d has parent %d outside arena order", i, e.Parent)
			}
			if p := doc.Elements[e.Parent]; p.Rank >= e.Rank {
				t.Errorf("element %d (rank %d) has parent of rank %d", i, e.Rank, p.Rank)
			}
			if e.Type == Preamble {
				t.Errorf("preamble %d has parent %d", i, e.Parent)
			}
		}

		once := Dedup(doc.Elements, g.Amendment())
		twice := Dedup(once, g.Amendment())
		if len(once) != len(twice) {
			t.Errorf("Dedup() not idempotent: %d then %d elements", len(once), len(twice))
		}
	})
}

// FuzzSplitSentences checks that splitting only ever drops whitespace.
func FuzzSplitSentences(f *testing.F) {
	seeds := []string{
		"Primeira frase. Segunda frase; terceira? Fim!",
		"Art. 1º Texto sem fim",
		"   . ; ? !   ",
		"R$ 1.000,00 em 30 dias.",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	stripSpace := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			return
		}
		parts := SplitSentences(input)
		for i, p := range parts {
			if p == "" {
				t.Errorf("SplitSentences() part %d is empty", i)
			}
		}
		if got, want := stripSpace(strings.Join(parts, "")), stripSpace(input); got != want {
			t.Errorf("SplitSentences() lost content: %q, want %q", got, want)
		}
	})
}
