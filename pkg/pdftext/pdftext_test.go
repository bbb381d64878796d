package pdftext

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestShouldJoin(t *testing.T) {
	tests := []struct {
		name string
		prev string
		next string
		want bool
	}{
		{"lowercase continuation", "A distribuidora deve", "informar o consumidor.", true},
		{"sentence ended", "Art. 1º Texto.", "informar o consumidor.", false},
		{"uppercase start", "A distribuidora deve", "Art. 2º Outro.", false},
		{"trailing connective", "conforme disposto no art. 5º e", "Art. 6º desta Resolução", true},
		{"trailing connective with comma", "nos termos da Lei nº 8.987, de", "1995.", true},
		{"numbered reference continues", "Resolução Normativa nº 1.000;", "7 (sete) de dezembro", true},
		{"numbered line without paren", "Fim do artigo.", "1. Primeiro item", false},
		{"accented connective", "aplica-se à", "Distribuidora", true},
		{"empty previous", "", "texto", false},
		{"empty next", "texto", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldJoin(tt.prev, tt.next); got != tt.want {
				t.Errorf("ShouldJoin(%q, %q) = %v, want %v", tt.prev, tt.next, got, tt.want)
			}
		})
	}
}

func TestJoinPages(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  string
	}{
		{
			name:  "separate pages",
			pages: []string{"Art. 1º Texto.", "Art. 2º Outro."},
			want:  "[[PAGINA:1]]\nArt. 1º Texto.\n\n[[PAGINA:2]]\nArt. 2º Outro.",
		},
		{
			name:  "continued sentence",
			pages: []string{"Art. 1º A distribuidora deve", "informar o consumidor.\nArt. 2º Outro."},
			want:  "[[PAGINA:1]]\nArt. 1º A distribuidora deve informar o consumidor.\nArt. 2º Outro.",
		},
		{
			name:  "trailing blank lines",
			pages: []string{"Art. 1º Cabe à\n\n", "distribuidora informar."},
			want:  "[[PAGINA:1]]\nArt. 1º Cabe à distribuidora informar.",
		},
		{
			name:  "leading blank lines on the next page",
			pages: []string{"Art. 1º A distribuidora deve", "\n \n  informar o consumidor.\nArt. 2º Outro."},
			want:  "[[PAGINA:1]]\nArt. 1º A distribuidora deve informar o consumidor.\nArt. 2º Outro.",
		},
		{
			name:  "empty page keeps its number",
			pages: []string{"Art. 1º Texto.", "", "Art. 2º Outro."},
			want:  "[[PAGINA:1]]\nArt. 1º Texto.\n\n[[PAGINA:2]]\n\n\n[[PAGINA:3]]\nArt. 2º Outro.",
		},
		{
			name:  "never glues onto a marker",
			pages: []string{"", "continua aqui"},
			want:  "[[PAGINA:1]]\n\n\n[[PAGINA:2]]\ncontinua aqui",
		},
		{
			name:  "no pages",
			pages: nil,
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinPages(tt.pages); got != tt.want {
				t.Errorf("JoinPages() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	if _, err := Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Extract() on a missing file error = nil")
	}

	notPDF := filepath.Join(t.TempDir(), "plain.pdf")
	if err := os.WriteFile(notPDF, []byte("isto não é um PDF"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Extract(context.Background(), notPDF); err == nil {
		t.Error("Extract() on a non-PDF file error = nil")
	}
}
