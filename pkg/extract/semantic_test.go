package extract

import (
	"reflect"
	"testing"
)

func TestSemanticTaggerClassify(t *testing.T) {
	tagger := NewSemanticTagger()

	tests := []struct {
		sentence string
		want     SemanticType
	}{
		{"A distribuidora deverá informar o consumidor.", SemanticObligation},
		{"As distribuidoras devem manter cadastro atualizado.", SemanticObligation},
		{"É obrigatória a instalação do medidor.", SemanticObligation},
		{"Fica obrigada a concessionária a publicar o relatório.", SemanticObligation},
		{"Compete à ANEEL fiscalizar.", SemanticObligation},
		{"É vedado à distribuidora cobrar taxa de religação.", SemanticProhibition},
		{"Ficam proibidas as cobranças em duplicidade.", SemanticProhibition},
		{"A distribuidora não deverá suspender o fornecimento.", SemanticProhibition},
		{"O consumidor não pode ser cobrado duas vezes.", SemanticProhibition},
		{"Esta Resolução entra em vigor na data de sua publicação.", ""},
		{"O devedor foi notificado.", ""},
	}
	for _, tt := range tests {
		if got := tagger.Classify(tt.sentence); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.sentence, got, tt.want)
		}
	}
}

func TestSemanticTaggerTag(t *testing.T) {
	tagger := NewSemanticTagger()
	text := "[Art. 5 > § 1] A distribuidora deverá informar o consumidor. É vedado cobrar taxa. " +
		"Aplica-se o art. 5º e o § 2º da Resolução Normativa nº 1.000/2021."

	got, err := tagger.Tag(text)
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	want := SemanticTags{
		Obligations:     []string{"A distribuidora deverá informar o consumidor."},
		Prohibitions:    []string{"É vedado cobrar taxa."},
		CrossReferences: []string{"art. 5º", "§ 2º", "Resolução Normativa nº 1.000/2021"},
		NumericValues:   []string{},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tag() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestSemanticTaggerTagEmpty(t *testing.T) {
	got, err := NewSemanticTagger().Tag("Texto neutro sem marcadores.")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	if !got.Empty() {
		t.Errorf("Tag() = %+v, want empty tags", got)
	}
	if got.Obligations == nil || got.NumericValues == nil {
		t.Error("Tag() returned nil slices, want empty slices")
	}
}

func TestReferenceExtractor(t *testing.T) {
	tests := []struct {
		text string
		want []Reference
	}{
		{
			text: "nos termos dos arts. 3º e 4º",
			want: []Reference{{Kind: RefArticle, Text: "arts. 3º e 4º", Start: 15, End: 30}},
		},
		{
			text: "conforme inciso IV do § 1º",
			want: []Reference{
				{Kind: RefInciso, Text: "inciso IV", Start: 9, End: 18},
				{Kind: RefParagraph, Text: "§ 1º", Start: 22, End: 28},
			},
		},
		{
			text: "Lei nº 8.987, de 1995",
			want: []Reference{{Kind: RefNorm, Text: "Lei nº 8.987", Start: 0, End: 13}},
		},
	}

	e := NewReferenceExtractor()
	for _, tt := range tests {
		got := e.Extract(tt.text)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Extract(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
		for _, r := range got {
			if tt.text[r.Start:r.End] != r.Text {
				t.Errorf("Extract(%q): text[%d:%d] = %q, want %q", tt.text, r.Start, r.End, tt.text[r.Start:r.End], r.Text)
			}
		}
	}
}

func TestReferenceExtractorKinds(t *testing.T) {
	text := "Ver a alínea \"b\" do inciso II do art. 10 e o Decreto-Lei nº 200/67."
	got := NewReferenceExtractor().Extract(text)

	var kinds []ReferenceKind
	for _, r := range got {
		kinds = append(kinds, r.Kind)
	}
	want := []ReferenceKind{RefAlinea, RefInciso, RefArticle, RefNorm}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Extract() kinds = %v, want %v", kinds, want)
	}
}

func TestValueExtractor(t *testing.T) {
	text := "multa de R$ 1.000,00 ou 2% do faturamento em 30 (trinta) dias úteis para usinas de 5 MW"
	got := NewValueExtractor().Extract(text)

	want := []struct {
		kind ValueKind
		text string
	}{
		{ValueCurrency, "R$ 1.000,00"},
		{ValuePercentage, "2%"},
		{ValueDuration, "30 (trinta) dias úteis"},
		{ValueQuantity, "5 MW"},
	}
	if len(got) != len(want) {
		t.Fatalf("Extract() = %+v, want %d values", got, len(want))
	}
	for i, w := range want {
		if got[i].Kind != w.kind || got[i].Text != w.text {
			t.Errorf("Extract()[%d] = %s %q, want %s %q", i, got[i].Kind, got[i].Text, w.kind, w.text)
		}
	}
}
