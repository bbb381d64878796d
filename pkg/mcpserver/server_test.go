package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/coolbeans/regchunk/pkg/answer"
	"github.com/coolbeans/regchunk/pkg/embed"
	"github.com/coolbeans/regchunk/pkg/logging"
	"github.com/coolbeans/regchunk/pkg/pattern"
	"github.com/coolbeans/regchunk/pkg/pipeline"
	"github.com/coolbeans/regchunk/pkg/store"
)

const sampleText = "Art. 1º A distribuidora deve informar o consumidor.\nArt. 2º É vedada a suspensão do fornecimento."

type stubAsker struct{}

func (stubAsker) Ask(_ context.Context, q string) (*answer.Answer, error) {
	return &answer.Answer{Text: "resposta para " + q, Sources: []string{"REN"}, ContextUsed: 1}, nil
}

type toolResult struct {
	Text    string
	IsError bool
}

func setup(t *testing.T, withAsker bool) *server.MCPServer {
	t.Helper()
	registry, err := pattern.NewDefaultRegistry()
	if err != nil {
		t.Fatalf("NewDefaultRegistry() error = %v", err)
	}
	p := pipeline.New(registry, pipeline.WithLogger(logging.Discard()))

	idx, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	ctx := context.Background()
	res, err := p.Run(ctx, "ren", sampleText)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := idx.ReplaceDocument(ctx, store.Document{ID: "ren", Name: "REN", Kind: res.Kind}, res.Chunks); err != nil {
		t.Fatalf("ReplaceDocument() error = %v", err)
	}

	embedder := embed.NewHashEmbedder(16)
	var embeddings []store.Embedding
	for _, c := range res.Chunks {
		v, err := embedder.Embed(ctx, []string{c.Text})
		if err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		embeddings = append(embeddings, store.Embedding{ChunkID: c.ID, Vector: v[0]})
	}
	if err := idx.PutEmbeddings(ctx, "ren", embedder.Model(), embeddings); err != nil {
		t.Fatalf("PutEmbeddings() error = %v", err)
	}

	cfg := Config{Version: "test", Pipeline: p, Index: idx, Embedder: embedder}
	if withAsker {
		cfg.Asker = stubAsker{}
	}
	return NewServer(cfg)
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) toolResult {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	respBytes, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, respBytes)
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	out := toolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			out.Text += c.Text
		}
	}
	return out
}

func TestChunkTextTool(t *testing.T) {
	srv := setup(t, false)
	res := callTool(t, srv, "chunk_text", map[string]any{"text": sampleText, "name": "exemplo"})
	if res.IsError {
		t.Fatalf("chunk_text error: %s", res.Text)
	}

	var got pipeline.Result
	if err := json.Unmarshal([]byte(res.Text), &got); err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if got.DocumentName != "exemplo" || len(got.Chunks) != 2 {
		t.Errorf("chunk_text = %s with %d chunks", got.DocumentName, len(got.Chunks))
	}
	if got.Chunks[0].Context != "Art. 1" {
		t.Errorf("first chunk context = %q, want Art. 1", got.Chunks[0].Context)
	}
}

func TestChunkTextToolRequiresText(t *testing.T) {
	srv := setup(t, false)
	res := callTool(t, srv, "chunk_text", map[string]any{})
	if !res.IsError {
		t.Error("chunk_text without text did not fail")
	}
}

func TestSearchChunksTool(t *testing.T) {
	srv := setup(t, false)

	res := callTool(t, srv, "search_chunks", map[string]any{"query": "suspensão"})
	if res.IsError {
		t.Fatalf("search_chunks error: %s", res.Text)
	}
	var hits []store.Hit
	if err := json.Unmarshal([]byte(res.Text), &hits); err != nil {
		t.Fatalf("parsing hits: %v", err)
	}
	if len(hits) != 1 || hits[0].Chunk.ID != "chunk_1" || hits[0].DocumentName != "REN" {
		t.Errorf("keyword hits = %+v", hits)
	}

	res = callTool(t, srv, "search_chunks", map[string]any{"query": "qualquer", "mode": "semantic", "limit": float64(1)})
	if res.IsError {
		t.Fatalf("semantic search_chunks error: %s", res.Text)
	}
	hits = nil
	if err := json.Unmarshal([]byte(res.Text), &hits); err != nil {
		t.Fatalf("parsing hits: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("semantic hits = %d, want 1", len(hits))
	}

	res = callTool(t, srv, "search_chunks", map[string]any{"query": "x", "mode": "fuzzy"})
	if !res.IsError {
		t.Error("invalid mode did not fail")
	}
}

func TestListDocumentsTool(t *testing.T) {
	srv := setup(t, false)
	res := callTool(t, srv, "list_documents", nil)
	if res.IsError {
		t.Fatalf("list_documents error: %s", res.Text)
	}
	var docs []store.Document
	if err := json.Unmarshal([]byte(res.Text), &docs); err != nil {
		t.Fatalf("parsing documents: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "ren" || docs[0].ChunkCount != 2 {
		t.Errorf("list_documents = %+v", docs)
	}
}

func TestAskTool(t *testing.T) {
	srv := setup(t, true)
	res := callTool(t, srv, "ask", map[string]any{"question": "Qual o prazo?"})
	if res.IsError {
		t.Fatalf("ask error: %s", res.Text)
	}
	if !strings.Contains(res.Text, "resposta para Qual o prazo?") {
		t.Errorf("ask = %s", res.Text)
	}
}

func TestAskToolOnlyWithAsker(t *testing.T) {
	srv := setup(t, false)
	if srv.GetTool("ask") != nil {
		t.Error("ask tool registered without an answerer")
	}
	if srv.GetTool("chunk_text") == nil {
		t.Error("chunk_text tool not registered")
	}
}
