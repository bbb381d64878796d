package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	h := NewHashEmbedder(64)
	a, err := h.Embed(context.Background(), []string{"Art. 1º", "Art. 2º", "Art. 1º"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(a) != 3 || len(a[0]) != 64 {
		t.Fatalf("Embed() shape = %d x %d, want 3 x 64", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != a[2][i] {
			t.Fatalf("same text gave different vectors at %d", i)
		}
	}
	if a[0][0] == a[1][0] && a[0][1] == a[1][1] {
		t.Error("different texts gave the same vector")
	}

	var norm float64
	for _, v := range a[1] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("squared norm = %v, want 1", norm)
	}
}

func TestHashEmbedderDefaults(t *testing.T) {
	h := NewHashEmbedder(0)
	if h.Model() != "hash-256" {
		t.Errorf("Model() = %q, want hash-256", h.Model())
	}
	if _, err := h.Embed(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Embed(nil) error = %v, want ErrEmptyInput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Embed(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Embed() on canceled ctx error = %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"hash provider", Config{Provider: "hash", Dimensions: 8}, "hash-8", false},
		{"openai without key", Config{Provider: "openai"}, "hash-256", false},
		{"openai with key", Config{Provider: "openai", APIKey: "sk-test", Model: "m"}, "m", false},
		{"unknown", Config{Provider: "word2vec"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && e.Model() != tt.want {
				t.Errorf("Model() = %q, want %q", e.Model(), tt.want)
			}
		})
	}
}

// embeddingServer answers /embeddings with [len(text), index] vectors. The
// first failures requests get status instead.
func embeddingServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		// reversed on purpose: clients must order by index
		for i, text := range req.Input {
			data[len(req.Input)-1-i] = item{"embedding", i, []float64{float64(len(text)), float64(i)}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	srv, calls := embeddingServer(t, 0, 0)
	e := NewOpenAIEmbedder(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", BatchSize: 2})

	got, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("requests = %d, want 2", calls.Load())
	}
	want := [][]float32{{1, 0}, {2, 1}, {3, 0}}
	for i := range want {
		if got[i][0] != want[i][0] || got[i][1] != want[i][1] {
			t.Errorf("Embed()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOpenAIEmbedderRetries(t *testing.T) {
	srv, calls := embeddingServer(t, 2, http.StatusServiceUnavailable)
	e := NewOpenAIEmbedder(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 3, RetryDelay: time.Millisecond})

	if _, err := e.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("requests = %d, want 3", calls.Load())
	}
}

func TestOpenAIEmbedderRetriesRateLimit(t *testing.T) {
	srv, calls := embeddingServer(t, 1, http.StatusTooManyRequests)
	e := NewOpenAIEmbedder(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 1, RetryDelay: time.Millisecond})

	if _, err := e.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("requests = %d, want 2", calls.Load())
	}
}

func TestOpenAIEmbedderNoRetryOnClientError(t *testing.T) {
	srv, calls := embeddingServer(t, 5, http.StatusBadRequest)
	e := NewOpenAIEmbedder(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 3, RetryDelay: time.Millisecond})

	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("Embed() error = nil, want 400")
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want 1", calls.Load())
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(context.Canceled) {
		t.Error("IsRetryable(context.Canceled) = true")
	}
	if !IsRetryable(errors.New("connection reset")) {
		t.Error("IsRetryable(transport error) = false")
	}
}
