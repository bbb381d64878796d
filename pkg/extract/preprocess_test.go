package extract

import (
	"strings"
	"testing"
)

func TestTextCleanerClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drops boilerplate lines",
			in:   "Voto\nArt. 1º Texto\nTexto Compilado\n12\nPágina 1 de 3",
			want: "Art. 1º Texto",
		},
		{
			name: "normalizes line endings",
			in:   "Art. 1º A\r\nArt. 2º B\rArt. 3º C",
			want: "Art. 1º A\nArt. 2º B\nArt. 3º C",
		},
		{
			name: "keeps page markers",
			in:   "[[PAGINA:2]]\nArt. 1º A",
			want: "[[PAGINA:2]]\nArt. 1º A",
		},
		{
			name: "fixes isolated crase",
			in:   "Cabe ã concessionária e ãs permissionárias",
			want: "Cabe à concessionária e às permissionárias",
		},
		{
			name: "keeps words with til",
			in:   "não, ação, informação, são",
			want: "não, ação, informação, são",
		},
		{
			name: "collapses spaces",
			in:   "  Art.   1º\tTexto livre  ",
			want: "Art. 1º Texto livre",
		},
		{
			name: "repairs mojibake",
			in:   "aÃ§Ã£o e distribuiÃ§Ã£o",
			want: "ação e distribuição",
		},
		{
			name: "rejoins hyphenated words",
			in:   "a distribui-\ndora deverá",
			want: "a distribuidora deverá",
		},
		{
			name: "keeps enclitic hyphens",
			in:   "aplica-\nse o disposto",
			want: "aplica-\nse o disposto",
		},
		{
			name: "strips byte order mark",
			in:   "\uFEFFArt. 1º A",
			want: "Art. 1º A",
		},
	}

	c := NewTextCleaner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Clean(tt.in)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextCleanerKeepTrash(t *testing.T) {
	c := &TextCleaner{KeepTrash: true}
	got, err := c.Clean("Voto\nArt. 1º A")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if !strings.HasPrefix(got, "Voto\n") {
		t.Errorf("Clean() = %q, want boilerplate kept", got)
	}
}

func TestTextCleanerNormalizesToNFC(t *testing.T) {
	decomposed := "Sec\u0327a\u0303o"
	got, err := NewTextCleaner().Clean(decomposed)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got != "Seção" {
		t.Errorf("Clean() = %q, want %q", got, "Seção")
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Primeira frase. Segunda; terceira? Fim!", []string{"Primeira frase.", "Segunda;", "terceira?", "Fim!"}},
		{"sem pontuação final", []string{"sem pontuação final"}},
		{"Fim.  ", []string{"Fim.  "}},
		{"R$ 1.000,00 é o valor.", []string{"R$ 1.000,00 é o valor."}},
		{"", nil},
	}
	for _, tt := range tests {
		got := SplitSentences(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitSentences(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
