package extract

import (
	"testing"

	"github.com/coolbeans/regchunk/pkg/pattern"
)

func defaultGrammar(t testing.TB) *Grammar {
	t.Helper()
	registry, err := pattern.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}
	table, err := registry.Table(pattern.DefaultTableID)
	if err != nil {
		t.Fatalf("Table(%q) error = %v", pattern.DefaultTableID, err)
	}
	g, err := NewGrammar(table)
	if err != nil {
		t.Fatalf("NewGrammar() error = %v", err)
	}
	return g
}

func TestGrammarClassify(t *testing.T) {
	g := defaultGrammar(t)

	tests := []struct {
		line     string
		wantOK   bool
		wantType ElementType
		wantNum  string
	}{
		{"RESOLUÇÃO NORMATIVA ANEEL Nº 1.000, DE 7 DE DEZEMBRO DE 2021", true, Resolution, "1.000"},
		{"TÍTULO I", true, Title, "I"},
		{"CAPÍTULO II - DAS DEFINIÇÕES", true, Chapter, "II"},
		{"Seção III", true, Section, "III"},
		{"SUBSEÇÃO IV", true, Subsection, "IV"},
		{"Art. 1º Esta norma regula X.", true, Article, "1"},
		{"Art. 10. Texto", true, Article, "10"},
		{"Art. 5-A Texto incluído", true, Article, "5-A"},
		{"CLÁUSULA PRIMEIRA: DO OBJETO", true, Clause, "PRIMEIRA"},
		{"CLÁUSULA DÉCIMA PRIMEIRA – DAS TARIFAS", true, Clause, "DÉCIMA PRIMEIRA"},
		{"ANEXO IV", true, Annex, "IV"},
		{"Parágrafo único. Aplica-se a Y.", true, Paragraph, SoleParagraph},
		{"§ 2º O prazo é de 30 dias.", true, Paragraph, "2"},
		{"I - fornecer informações;", true, Inciso, "I"},
		{"IV – manter registros;", true, Inciso, "IV"},
		{"a) primeira hipótese;", true, Alinea, "a"},
		{"1. Primeiro item.", true, Item, "1"},
		{"1.2) Subitem.", true, Item, "1.2"},
		{"Esta norma regula X.", false, 0, ""},
		{"DAS DISPOSIÇÕES GERAIS", false, 0, ""},
		{"Artigo sem número", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m, ok := g.Classify(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Type != tt.wantType {
				t.Errorf("Classify(%q).Type = %v, want %v", tt.line, m.Type, tt.wantType)
			}
			if m.Number != tt.wantNum {
				t.Errorf("Classify(%q).Number = %q, want %q", tt.line, m.Number, tt.wantNum)
			}
		})
	}
}

func TestGrammarClassifyValidateFlag(t *testing.T) {
	g := defaultGrammar(t)

	m, _ := g.Classify("Art. 3º Texto")
	if !m.Validate {
		t.Error("article match should require sequence validation")
	}
	m, _ = g.Classify("Parágrafo único. Texto")
	if m.Validate {
		t.Error("sole paragraph match should not require sequence validation")
	}
	m, _ = g.Classify("CAPÍTULO I")
	if m.Validate {
		t.Error("chapter match should not require sequence validation")
	}
}

func TestGrammarMarkers(t *testing.T) {
	g := defaultGrammar(t)

	if n, ok := g.PageMarker("[[PAGINA:12]]"); !ok || n != 12 {
		t.Errorf("PageMarker() = %d, %v, want 12, true", n, ok)
	}
	if _, ok := g.PageMarker("PAGINA 12"); ok {
		t.Error("PageMarker() accepted a malformed marker")
	}

	trash := []string{"Voto", "Texto Compilado", "42", "Página 3 de 10"}
	for _, line := range trash {
		if !g.IsTrash(line) {
			t.Errorf("IsTrash(%q) = false, want true", line)
		}
	}
	if g.IsTrash("Art. 1º Texto") {
		t.Error("IsTrash() flagged an article")
	}

	if !g.IsRevoked("§ 2º (Revogado pela Resolução Normativa nº 1.059, de 2023)") {
		t.Error("IsRevoked() = false for a revoked paragraph")
	}
	if g.IsRevoked("As regras revogadas não se aplicam.") {
		t.Error("IsRevoked() = true without a parenthesized marker")
	}

	if !g.IsAmended("Art. 1º Texto. (Redação dada pela Resolução nº 5)") {
		t.Error("IsAmended() = false for redação dada")
	}
	if !g.IsAmended("Art. 5-A Texto. (Incluído pela Resolução nº 7)") {
		t.Error("IsAmended() = false for incluído")
	}
	if g.IsAmended("Art. 1º Texto original.") {
		t.Error("IsAmended() = true for plain text")
	}
}

func TestGrammarInclusionMarkers(t *testing.T) {
	g := defaultGrammar(t)

	tests := []struct {
		line      string
		wantOpen  bool
		wantClose bool
	}{
		{"(Incluído pela Resolução Normativa", true, false},
		{"(Redação dada pela Lei", true, false},
		{"(Incluído pela Resolução nº 5)", false, true},
		{"nº 1.059, de 2023)", false, true},
		{"Texto sem marcador", false, false},
	}
	for _, tt := range tests {
		if got := g.opensInclusion(tt.line); got != tt.wantOpen {
			t.Errorf("opensInclusion(%q) = %v, want %v", tt.line, got, tt.wantOpen)
		}
		if got := g.closesInclusion(tt.line); got != tt.wantClose {
			t.Errorf("closesInclusion(%q) = %v, want %v", tt.line, got, tt.wantClose)
		}
	}
}

func TestNewGrammarNil(t *testing.T) {
	if _, err := NewGrammar(nil); err == nil {
		t.Error("NewGrammar(nil) error = nil, want error")
	}
}

func TestGrammarRevokedSoleParagraph(t *testing.T) {
	table := &pattern.Table{
		Name:       "Sole",
		ID:         "sole",
		Version:    "1.0.0",
		PageMarker: `^\[\[PAGINA:(\d+)\]\]$`,
		Levels: []pattern.Level{
			{Type: "paragraph", Pattern: `^Par[áa]grafo\s+[úu]nico`, Fixed: SoleParagraph},
		},
		RevokedSoleParagraphs: []string{"A  distribuidora poderá   cobrar"},
	}
	g, err := NewGrammar(table)
	if err != nil {
		t.Fatalf("NewGrammar() error = %v", err)
	}
	if !g.IsRevokedSoleParagraph("Parágrafo único. A distribuidora\npoderá cobrar a taxa.") {
		t.Error("IsRevokedSoleParagraph() = false, want true")
	}
	if g.IsRevokedSoleParagraph("Parágrafo único. Outro texto.") {
		t.Error("IsRevokedSoleParagraph() = true, want false")
	}
}
