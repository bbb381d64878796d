package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regchunk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Chunking.MaxChunkSize != 1200 || cfg.Chunking.MarkerThreshold != 500 {
		t.Errorf("chunking defaults = %+v", cfg.Chunking)
	}
	if !reflect.DeepEqual(cfg.Chunking.VerbatimAnnexes, []string{"III"}) {
		t.Errorf("VerbatimAnnexes = %v, want [III]", cfg.Chunking.VerbatimAnnexes)
	}
	if cfg.Embedding.APIKey != "${OPENAI_API_KEY}" {
		t.Errorf("Embedding.APIKey = %q, want env placeholder", cfg.Embedding.APIKey)
	}
}

func TestNewManagerFromFile(t *testing.T) {
	path := writeConfig(t, `
chunking:
  max_chunk_size: 900
  line_annexes: ["IV", "V"]
patterns:
  dir: ./tables
embedding:
  provider: hash
`)

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	cfg := m.Get()

	if cfg.Chunking.MaxChunkSize != 900 {
		t.Errorf("MaxChunkSize = %d, want 900", cfg.Chunking.MaxChunkSize)
	}
	if !reflect.DeepEqual(cfg.Chunking.LineAnnexes, []string{"IV", "V"}) {
		t.Errorf("LineAnnexes = %v, want [IV V]", cfg.Chunking.LineAnnexes)
	}
	if cfg.Chunking.MarkerThreshold != 500 {
		t.Errorf("MarkerThreshold = %d, want default 500", cfg.Chunking.MarkerThreshold)
	}
	if cfg.Patterns.Dir != "./tables" || cfg.Patterns.Table != "brazilian-norms" {
		t.Errorf("Patterns = %+v", cfg.Patterns)
	}
	if cfg.Embedding.Provider != "hash" {
		t.Errorf("Embedding.Provider = %q, want hash", cfg.Embedding.Provider)
	}
	if m.ConfigFile() != path {
		t.Errorf("ConfigFile() = %q, want %q", m.ConfigFile(), path)
	}
}

func TestNewManagerEnvOverride(t *testing.T) {
	t.Setenv("REGCHUNK_CHUNKING_MAX_CHUNK_SIZE", "800")
	t.Setenv("REGCHUNK_LOGGING_LEVEL", "debug")
	path := writeConfig(t, "chunking:\n  max_chunk_size: 900\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if got := m.Get().Chunking.MaxChunkSize; got != 800 {
		t.Errorf("MaxChunkSize = %d, want 800", got)
	}
	if got := m.Get().Logging.Level; got != "debug" {
		t.Errorf("Logging.Level = %q, want debug", got)
	}
}

func TestNewManagerResolvesAPIKey(t *testing.T) {
	t.Setenv("TEST_REGCHUNK_KEY", "sk-test")
	path := writeConfig(t, "embedding:\n  api_key: ${TEST_REGCHUNK_KEY}\n")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if got := m.Get().Embedding.APIKey; got != "sk-test" {
		t.Errorf("Embedding.APIKey = %q, want sk-test", got)
	}
}

func TestNewManagerInvalidFile(t *testing.T) {
	path := writeConfig(t, "chunking: [unterminated\n")
	if _, err := NewManager(path); err == nil {
		t.Error("NewManager() error = nil, want parse error")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret123")

	tests := []struct {
		in   string
		want string
	}{
		{"${TEST_API_KEY}", "secret123"},
		{"${DEFINITELY_NOT_SET_12345}", ""},
		{"literal-value", "literal-value"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.in); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regchunk.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if got := m.Get().Answer.Model; got != "gpt-4o-mini" {
		t.Errorf("Answer.Model = %q, want gpt-4o-mini", got)
	}
}
