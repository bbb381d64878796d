package main

import (
	"fmt"
	"log/slog"

	"github.com/coolbeans/regchunk/pkg/answer"
	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/config"
	"github.com/coolbeans/regchunk/pkg/embed"
	"github.com/coolbeans/regchunk/pkg/library"
	"github.com/coolbeans/regchunk/pkg/logging"
	"github.com/coolbeans/regchunk/pkg/pattern"
	"github.com/coolbeans/regchunk/pkg/pipeline"
	"github.com/coolbeans/regchunk/pkg/store"
)

// app holds what every command builds from the configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadApp() (*app, error) {
	manager, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := manager.Get()

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, nil)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	if f := manager.ConfigFile(); f != "" {
		logger.Debug("configuration loaded", "file", f)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// registry loads the embedded pattern tables plus patterns.dir, if set.
func (a *app) registry() (*pattern.DefaultRegistry, error) {
	var (
		reg *pattern.DefaultRegistry
		err error
	)
	if a.cfg.Patterns.Dir != "" {
		reg, err = pattern.NewRegistryWithDirectory(a.cfg.Patterns.Dir)
	} else {
		reg, err = pattern.NewDefaultRegistry()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pattern tables: %w", err)
	}
	reg.SetLogger(a.logger)
	return reg, nil
}

func (a *app) chunkOptions() chunk.Options {
	opts := chunk.DefaultOptions()
	c := a.cfg.Chunking
	if c.MaxChunkSize > 0 {
		opts.MaxChunkSize = c.MaxChunkSize
	}
	if c.MarkerThreshold > 0 {
		opts.MarkerThreshold = c.MarkerThreshold
	}
	if c.MarkerTag != "" {
		opts.MarkerTag = c.MarkerTag
	}
	return opts
}

func (a *app) annexPolicy() chunk.AnnexPolicy {
	c := a.cfg.Chunking
	if len(c.VerbatimAnnexes) == 0 && len(c.LineAnnexes) == 0 {
		return chunk.NoAnnexPolicy{}
	}
	return chunk.NumberedAnnexPolicy{Verbatim: c.VerbatimAnnexes, PerLine: c.LineAnnexes}
}

// pipeline builds a pipeline over reg. extra options are applied last.
func (a *app) pipeline(reg pipeline.PatternSource, extra ...pipeline.Option) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithTable(a.cfg.Patterns.Table),
		pipeline.WithChunkOptions(a.chunkOptions()),
		pipeline.WithAnnexPolicy(a.annexPolicy()),
		pipeline.WithGenericAsProse(a.cfg.Chunking.GenericAsProse),
		pipeline.WithLogger(a.logger),
	}
	if a.cfg.Chunking.SequenceGap > 0 {
		opts = append(opts, pipeline.WithSequenceGap(a.cfg.Chunking.SequenceGap))
	}
	return pipeline.New(reg, append(opts, extra...)...)
}

func (a *app) embedder() (embed.Embedder, error) {
	e := a.cfg.Embedding
	embedder, err := embed.New(embed.Config{
		Provider:   e.Provider,
		Model:      e.Model,
		BaseURL:    e.BaseURL,
		APIKey:     e.APIKey,
		Dimensions: e.Dimensions,
		BatchSize:  e.BatchSize,
		MaxRetries: e.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("embedder ready", "model", embedder.Model())
	return embedder, nil
}

// answerer returns nil when no API key is configured.
func (a *app) answerer(embedder embed.Embedder, index answer.Searcher) *answer.Answerer {
	if a.cfg.Embedding.APIKey == "" {
		return nil
	}
	completer := answer.NewOpenAICompleter(answer.OpenAIConfig{
		APIKey:     a.cfg.Embedding.APIKey,
		BaseURL:    a.cfg.Embedding.BaseURL,
		Model:      a.cfg.Answer.Model,
		MaxRetries: a.cfg.Embedding.MaxRetries,
	})
	return answer.New(embedder, index, completer, a.cfg.Answer.TopK, a.logger)
}

func (a *app) openStore() (*store.Store, error) {
	s, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s: %w", a.cfg.Store.Path, err)
	}
	return s, nil
}

// openLibrary opens the configured library. runner may be nil for
// read-only commands.
func (a *app) openLibrary(runner library.Runner) (*library.Library, error) {
	lib, err := library.Open(a.cfg.Library.Path, runner)
	if err != nil {
		return nil, fmt.Errorf("library not found at %s (run 'regchunk library init' first): %w", a.cfg.Library.Path, err)
	}
	return lib, nil
}
