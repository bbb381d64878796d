// Package embed turns chunk text into vectors for semantic search.
package embed

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyInput is returned when Embed is called with no texts.
var ErrEmptyInput = errors.New("no texts to embed")

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config selects and configures an Embedder.
type Config struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// New returns the embedder named by cfg.Provider. The OpenAI provider falls
// back to the hash embedder when no API key is configured.
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderHash:
		return NewHashEmbedder(cfg.Dimensions), nil
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return NewHashEmbedder(cfg.Dimensions), nil
		}
		return NewOpenAIEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// DefaultHashDimensions is used when HashEmbedder is given no size.
const DefaultHashDimensions = 256

// HashEmbedder derives a unit vector from a hash of the text. It needs no
// network and is stable across runs, but carries no meaning: only identical
// texts end up close together.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing dims-sized vectors.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Model names the embedder and its size.
func (h *HashEmbedder) Model() string {
	return "hash-" + strconv.Itoa(h.dims)
}

// Embed implements Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	hasher := fnv.New64a()
	hasher.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(hasher.Sum64())))

	vec := make([]float32, h.dims)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
