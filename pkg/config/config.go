// Package config loads regchunk settings from defaults, an optional YAML
// file and REGCHUNK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree.
type Config struct {
	Chunking  ChunkingConfig  `mapstructure:"chunking" yaml:"chunking"`
	Patterns  PatternsConfig  `mapstructure:"patterns" yaml:"patterns"`
	Library   LibraryConfig   `mapstructure:"library" yaml:"library"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Answer    AnswerConfig    `mapstructure:"answer" yaml:"answer"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

type ChunkingConfig struct {
	MaxChunkSize    int      `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
	MarkerThreshold int      `mapstructure:"marker_threshold" yaml:"marker_threshold"`
	MarkerTag       string   `mapstructure:"marker_tag" yaml:"marker_tag"`
	SequenceGap     int      `mapstructure:"sequence_gap" yaml:"sequence_gap"`
	VerbatimAnnexes []string `mapstructure:"verbatim_annexes" yaml:"verbatim_annexes"`
	LineAnnexes     []string `mapstructure:"line_annexes" yaml:"line_annexes"`
	GenericAsProse  bool     `mapstructure:"generic_as_prose" yaml:"generic_as_prose"`
}

type PatternsConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Table string `mapstructure:"table" yaml:"table"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

type LibraryConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

type AnswerConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
	TopK  int    `mapstructure:"top_k" yaml:"top_k"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type MetricsConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxChunkSize:    1200,
			MarkerThreshold: 500,
			MarkerTag:       "MARCADOR_ESTRUTURAL:",
			SequenceGap:     5,
			VerbatimAnnexes: []string{"III"},
			LineAnnexes:     []string{"IV"},
		},
		Patterns: PatternsConfig{
			Table: "brazilian-norms",
		},
		Library: LibraryConfig{Path: ".regchunk/library"},
		Store:   StoreConfig{Path: ".regchunk/index.db"},
		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKey:     "${OPENAI_API_KEY}",
			Dimensions: 256,
			BatchSize:  32,
			MaxRetries: 3,
		},
		Answer: AnswerConfig{
			Model: "gpt-4o-mini",
			TopK:  5,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Namespace: "regchunk"},
	}
}

// Manager owns a viper instance and the last loaded Config.
type Manager struct {
	mu     sync.RWMutex
	v      *viper.Viper
	config *Config
}

// NewManager loads configuration. cfgFile may be empty, in which case
// ./regchunk.yaml and $HOME/.regchunk/config.yaml are tried; a missing file
// is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

func (m *Manager) initViper(cfgFile string) error {
	v := m.v
	d := Default()
	v.SetDefault("chunking.max_chunk_size", d.Chunking.MaxChunkSize)
	v.SetDefault("chunking.marker_threshold", d.Chunking.MarkerThreshold)
	v.SetDefault("chunking.marker_tag", d.Chunking.MarkerTag)
	v.SetDefault("chunking.sequence_gap", d.Chunking.SequenceGap)
	v.SetDefault("chunking.verbatim_annexes", d.Chunking.VerbatimAnnexes)
	v.SetDefault("chunking.line_annexes", d.Chunking.LineAnnexes)
	v.SetDefault("chunking.generic_as_prose", d.Chunking.GenericAsProse)
	v.SetDefault("patterns.dir", d.Patterns.Dir)
	v.SetDefault("patterns.table", d.Patterns.Table)
	v.SetDefault("patterns.watch", d.Patterns.Watch)
	v.SetDefault("library.path", d.Library.Path)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)
	v.SetDefault("answer.model", d.Answer.Model)
	v.SetDefault("answer.top_k", d.Answer.TopK)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	// REGCHUNK_CHUNKING_MAX_CHUNK_SIZE overrides chunking.max_chunk_size.
	v.SetEnvPrefix("REGCHUNK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("regchunk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.regchunk")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (m *Manager) load() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Embedding.APIKey = ResolveEnvVars(cfg.Embedding.APIKey)
	return &cfg, nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the file the configuration was read from, if any.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

var envRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# regchunk configuration\n# Values can be overridden with REGCHUNK_<SECTION>_<KEY> environment variables.\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
