// Package answer generates answers to questions about indexed norms from
// the chunks most similar to the question.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coolbeans/regchunk/pkg/embed"
	"github.com/coolbeans/regchunk/pkg/store"
)

// DefaultTopK is the number of chunks put in the prompt when none is set.
const DefaultTopK = 5

// SystemPrompt restricts the model to the supplied context.
const SystemPrompt = `Você é um assistente regulatório especializado em normas brasileiras.
Sua missão é responder perguntas baseando-se EXCLUSIVAMENTE nos documentos fornecidos como contexto.
Se a informação não estiver no contexto, diga honestamente que não possui essa informação específica nos documentos regulatórios disponíveis.
Cite o artigo ou dispositivo de onde a resposta foi tirada sempre que possível.
Mantenha um tom profissional, técnico e prestativo.`

const unknownDocument = "Documento desconhecido"

// Completer sends one system and one user message to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Searcher finds chunks by vector similarity. *store.Store satisfies it.
type Searcher interface {
	SearchVector(ctx context.Context, model string, vec []float32, limit int) ([]*store.Hit, error)
}

// Answer is the model's reply with the documents it was given.
type Answer struct {
	Text        string   `json:"answer"`
	Sources     []string `json:"sources"`
	ContextUsed int      `json:"context_used"`
}

// Answerer ties an embedder, a chunk index and a chat model together.
type Answerer struct {
	embedder  embed.Embedder
	searcher  Searcher
	completer Completer
	topK      int
	logger    *slog.Logger
}

// New creates an Answerer. topK <= 0 means DefaultTopK; a nil logger means
// slog.Default().
func New(embedder embed.Embedder, searcher Searcher, completer Completer, topK int, logger *slog.Logger) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		topK:      topK,
		logger:    logger,
	}
}

// Ask embeds question, retrieves the top chunks and asks the model to
// answer from them alone.
func (a *Answerer) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question is required")
	}

	vectors, err := a.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	hits, err := a.searcher.SearchVector(ctx, a.embedder.Model(), vectors[0], a.topK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	contextText, sources := BuildContext(hits)
	text, err := a.completer.Complete(ctx, SystemPrompt, BuildPrompt(contextText, question))
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	a.logger.Info("question answered", "hits", len(hits), "sources", len(sources))
	return &Answer{
		Text:        text,
		Sources:     sources,
		ContextUsed: len(hits),
	}, nil
}

// BuildContext renders hits as "--- DOCUMENTO: name ---" blocks separated by
// blank lines and returns the distinct document names in hit order.
func BuildContext(hits []*store.Hit) (string, []string) {
	blocks := make([]string, 0, len(hits))
	sources := []string{}
	seen := make(map[string]bool)
	for _, hit := range hits {
		title := hit.DocumentName
		if title == "" {
			title = hit.DocumentID
		}
		if title == "" {
			title = unknownDocument
		}
		blocks = append(blocks, fmt.Sprintf("--- DOCUMENTO: %s ---\n%s", title, hit.Chunk.Text))
		if !seen[title] {
			seen[title] = true
			sources = append(sources, title)
		}
	}
	return strings.Join(blocks, "\n\n"), sources
}

// BuildPrompt is the user message sent with SystemPrompt.
func BuildPrompt(contextText, question string) string {
	return "CONTEXTO REGULATÓRIO:\n" + contextText +
		"\n\nPERGUNTA DO USUÁRIO:\n" + question +
		"\n\nRESPOSTA:"
}
