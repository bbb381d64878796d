// Package pipeline wires cleaning, detection, parsing, deduplication,
// revocation, chunk forming and tagging into a single call per document.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/extract"
	"github.com/coolbeans/regchunk/pkg/pattern"
)

// PatternSource provides pattern tables by ID. "" selects the default table.
type PatternSource interface {
	Table(id string) (*pattern.Table, error)
}

// Observer is notified once per Run with the result or the error.
type Observer interface {
	ObserveRun(res *Result, err error, elapsed time.Duration)
}

// Stats summarizes one run.
type Stats struct {
	Lines         int           `json:"lines"`
	Pages         int           `json:"pages"`
	Elements      int           `json:"elements"`
	Duplicates    int           `json:"duplicates"`
	Revoked       int           `json:"revoked"`
	Chunks        int           `json:"chunks"`
	PartialChunks int           `json:"partial_chunks"`
	MarkerChunks  int           `json:"marker_chunks"`
	AnnexChunks   int           `json:"annex_chunks"`
	Duration      time.Duration `json:"duration"`
}

// Result is the output of a successful run.
type Result struct {
	DocumentName string            `json:"document_name"`
	Kind         pattern.Kind      `json:"kind"`
	Detection    pattern.Detection `json:"detection"`
	Chunks       []chunk.Chunk     `json:"chunks"`
	Stats        Stats             `json:"stats"`
}

// Pipeline is immutable after New and safe for concurrent use.
type Pipeline struct {
	patterns       PatternSource
	tableID        string
	cleaner        extract.Cleaner
	tagger         chunk.Tagger
	chunkOpts      chunk.Options
	annexPolicy    chunk.AnnexPolicy
	sequenceGap    int
	genericAsProse bool
	logger         *slog.Logger
	observer       Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTable selects the pattern table by ID.
func WithTable(id string) Option {
	return func(p *Pipeline) { p.tableID = id }
}

// WithCleaner replaces the default text cleaner.
func WithCleaner(c extract.Cleaner) Option {
	return func(p *Pipeline) { p.cleaner = c }
}

// WithTagger replaces the default semantic tagger. nil disables tagging.
func WithTagger(t chunk.Tagger) Option {
	return func(p *Pipeline) { p.tagger = t }
}

// WithChunkOptions sets the chunk former options.
func WithChunkOptions(opts chunk.Options) Option {
	return func(p *Pipeline) { p.chunkOpts = opts }
}

// WithAnnexPolicy sets the annex policy. nil treats every element as normal.
func WithAnnexPolicy(policy chunk.AnnexPolicy) Option {
	return func(p *Pipeline) { p.annexPolicy = policy }
}

// WithSequenceGap sets the forward gap tolerated by the sequence validator.
func WithSequenceGap(gap int) Option {
	return func(p *Pipeline) { p.sequenceGap = gap }
}

// WithGenericAsProse parses documents detected as generic without structure.
func WithGenericAsProse(enabled bool) Option {
	return func(p *Pipeline) { p.genericAsProse = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New creates a Pipeline reading pattern tables from patterns.
func New(patterns PatternSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		patterns:    patterns,
		cleaner:     extract.NewTextCleaner(),
		tagger:      extract.NewSemanticTagger(),
		chunkOpts:   chunk.DefaultOptions(),
		annexPolicy: chunk.DefaultAnnexPolicy(),
		sequenceGap: extract.DefaultSequenceGap,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes one document. It returns either a complete result or an
// error, never both. ctx is checked between stages.
func (p *Pipeline) Run(ctx context.Context, name, raw string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if res != nil {
			res.Stats.Duration = elapsed
		}
		if p.observer != nil {
			p.observer.ObserveRun(res, err, elapsed)
		}
	}()
	log := p.logger.With("document", name)

	cleaned, err := p.cleaner.Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := p.patterns.Table(p.tableID)
	if err != nil {
		return nil, fmt.Errorf("grammar: %w", err)
	}
	grammar, err := extract.NewGrammar(table)
	if err != nil {
		return nil, fmt.Errorf("grammar: %w", err)
	}
	detector, err := pattern.NewDetector(table)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	detection := detector.Detect(cleaned)
	log.Debug("document detected", "kind", detection.Kind, "structural", detection.StructuralMatches, "header", detection.HeaderFound)

	structure := !(p.genericAsProse && detection.Kind == pattern.KindGeneric)
	parser := extract.NewParser(grammar,
		extract.WithSequenceGap(p.sequenceGap),
		extract.WithStructure(structure),
	)
	doc := parser.Parse(cleaned)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deduped := extract.Dedup(doc.Elements, grammar.Amendment())
	kept, revoked := extract.FilterRevoked(deduped, grammar)

	policy := chunk.BindNames(p.annexPolicy, grammar.Names())
	chunks := chunk.NewFormer(p.chunkOpts, policy).Form(kept)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := chunk.Tag(chunks, p.tagger); err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}

	res = &Result{
		DocumentName: name,
		Kind:         detection.Kind,
		Detection:    detection,
		Chunks:       chunks,
		Stats: Stats{
			Lines:      doc.Lines,
			Pages:      doc.Pages,
			Elements:   len(doc.Elements),
			Duplicates: len(doc.Elements) - len(deduped),
			Revoked:    revoked,
			Chunks:     len(chunks),
		},
	}
	for _, c := range chunks {
		switch c.Treatment {
		case chunk.Split:
			res.Stats.PartialChunks++
		case chunk.Marker:
			res.Stats.MarkerChunks++
		case chunk.VerbatimAnnex, chunk.LineAnnex:
			res.Stats.AnnexChunks++
		}
	}

	log.Info("document chunked",
		"kind", detection.Kind,
		"elements", res.Stats.Elements,
		"duplicates", res.Stats.Duplicates,
		"revoked", res.Stats.Revoked,
		"chunks", res.Stats.Chunks,
	)
	return res, nil
}
