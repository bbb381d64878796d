package answer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/embed"
	"github.com/coolbeans/regchunk/pkg/store"
)

type stubSearcher struct {
	hits  []*store.Hit
	model string
	limit int
	err   error
}

func (s *stubSearcher) SearchVector(_ context.Context, model string, _ []float32, limit int) ([]*store.Hit, error) {
	s.model = model
	s.limit = limit
	return s.hits, s.err
}

type stubCompleter struct {
	system, user string
	reply        string
	err          error
}

func (c *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	c.system, c.user = system, user
	return c.reply, c.err
}

func hit(doc, text string) *store.Hit {
	return &store.Hit{DocumentID: strings.ToLower(doc), DocumentName: doc, Chunk: chunk.Chunk{Text: text}}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsk(t *testing.T) {
	searcher := &stubSearcher{hits: []*store.Hit{
		hit("REN 1000", "[Art. 1] Art. 1º Prazo de 30 dias."),
		hit("REN 414", "[Art. 5] Art. 5º Outro prazo."),
		hit("REN 1000", "[Art. 2] Art. 2º Vedação."),
	}}
	completer := &stubCompleter{reply: "O prazo é de 30 dias."}
	a := New(embed.NewHashEmbedder(8), searcher, completer, 3, discard())

	got, err := a.Ask(context.Background(), "  Qual o prazo?  ")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	want := &Answer{
		Text:        "O prazo é de 30 dias.",
		Sources:     []string{"REN 1000", "REN 414"},
		ContextUsed: 3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ask() = %+v, want %+v", got, want)
	}
	if searcher.limit != 3 {
		t.Errorf("search limit = %d, want 3", searcher.limit)
	}
	if searcher.model != "hash-8" {
		t.Errorf("search model = %q, want hash-8", searcher.model)
	}
	if completer.system != SystemPrompt {
		t.Error("system prompt not sent")
	}
	for _, s := range []string{"--- DOCUMENTO: REN 1000 ---\n[Art. 1]", "PERGUNTA DO USUÁRIO:\nQual o prazo?", "RESPOSTA:"} {
		if !strings.Contains(completer.user, s) {
			t.Errorf("user prompt missing %q:\n%s", s, completer.user)
		}
	}
}

func TestAskNoHits(t *testing.T) {
	completer := &stubCompleter{reply: "Não possuo essa informação."}
	a := New(embed.NewHashEmbedder(8), &stubSearcher{}, completer, 0, discard())

	got, err := a.Ask(context.Background(), "Qual o prazo?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.ContextUsed != 0 || len(got.Sources) != 0 || got.Sources == nil {
		t.Errorf("Ask() = %+v, want empty non-nil sources", got)
	}
}

func TestAskErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		question  string
		searcher  *stubSearcher
		completer *stubCompleter
	}{
		{"empty question", "  ", &stubSearcher{}, &stubCompleter{}},
		{"search fails", "q", &stubSearcher{err: boom}, &stubCompleter{}},
		{"completion fails", "q", &stubSearcher{}, &stubCompleter{err: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(embed.NewHashEmbedder(8), tt.searcher, tt.completer, 5, discard())
			if _, err := a.Ask(context.Background(), tt.question); err == nil {
				t.Error("Ask() error = nil")
			}
		})
	}
}

func TestBuildContext(t *testing.T) {
	text, sources := BuildContext([]*store.Hit{
		hit("A", "um"),
		{Chunk: chunk.Chunk{Text: "dois"}},
	})
	want := "--- DOCUMENTO: A ---\num\n\n--- DOCUMENTO: Documento desconhecido ---\ndois"
	if text != want {
		t.Errorf("BuildContext() text = %q, want %q", text, want)
	}
	if !reflect.DeepEqual(sources, []string{"A", "Documento desconhecido"}) {
		t.Errorf("BuildContext() sources = %v", sources)
	}
}

func TestOpenAICompleter(t *testing.T) {
	var gotModel string
	var gotMessages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotModel, gotMessages = req.Model, len(req.Messages)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Resposta."}}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "test-model"})
	got, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "Resposta." {
		t.Errorf("Complete() = %q, want Resposta.", got)
	}
	if gotModel != "test-model" || gotMessages != 2 {
		t.Errorf("request model = %q, messages = %d", gotModel, gotMessages)
	}
}
