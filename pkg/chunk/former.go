package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/coolbeans/regchunk/pkg/extract"
)

// Default chunking parameters.
const (
	DefaultMaxChunkSize    = 1200
	DefaultMarkerThreshold = 500
	DefaultMarkerTag       = "MARCADOR_ESTRUTURAL:"
)

// Options configures a Former. Zero fields take the defaults.
type Options struct {
	// MaxChunkSize is the largest body, in runes, emitted without splitting.
	MaxChunkSize int
	// MarkerThreshold is the length below which structural headers become markers.
	MarkerThreshold int
	MarkerTag       string
	MarkerTypes     []extract.ElementType
}

// DefaultOptions returns the default chunking parameters.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:    DefaultMaxChunkSize,
		MarkerThreshold: DefaultMarkerThreshold,
		MarkerTag:       DefaultMarkerTag,
		MarkerTypes:     []extract.ElementType{extract.Title, extract.Chapter, extract.Section, extract.Annex},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = d.MaxChunkSize
	}
	if o.MarkerThreshold <= 0 {
		o.MarkerThreshold = d.MarkerThreshold
	}
	if o.MarkerTag == "" {
		o.MarkerTag = d.MarkerTag
	}
	if o.MarkerTypes == nil {
		o.MarkerTypes = d.MarkerTypes
	}
	return o
}

// Former turns elements into chunks. It is stateless and safe for
// concurrent use.
type Former struct {
	opts    Options
	policy  AnnexPolicy
	markers map[extract.ElementType]bool
}

// NewFormer creates a Former. A nil policy treats every element as normal.
func NewFormer(opts Options, policy AnnexPolicy) *Former {
	opts = opts.withDefaults()
	if policy == nil {
		policy = NoAnnexPolicy{}
	}
	markers := make(map[extract.ElementType]bool, len(opts.MarkerTypes))
	for _, t := range opts.MarkerTypes {
		markers[t] = true
	}
	return &Former{opts: opts, policy: policy, markers: markers}
}

// Options returns the effective options.
func (f *Former) Options() Options {
	return f.opts
}

// Form emits the chunks of elems in order. Chunk IDs are numbered from 0.
func (f *Former) Form(elems []extract.Element) []Chunk {
	var chunks []Chunk
	emit := func(e extract.Element, body string, t Treatment, partial bool) {
		chunks = append(chunks, Chunk{
			ID:         ID(len(chunks)),
			Text:       Prefix(e.Context) + body,
			Type:       e.Type.String(),
			Number:     e.Number,
			Rank:       e.Rank,
			Context:    e.Context,
			Page:       e.Page,
			CharLength: utf8.RuneCountInString(body),
			IsPartial:  partial,
			Treatment:  t,
		})
	}

	for _, e := range elems {
		switch f.policy.Treatment(e) {
		case LineAnnex:
			for _, line := range strings.Split(e.Text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					emit(e, line, LineAnnex, false)
				}
			}
			continue
		case VerbatimAnnex:
			emit(e, e.Text, VerbatimAnnex, false)
			continue
		}

		length := utf8.RuneCountInString(e.Text)
		switch {
		case f.markers[e.Type] && length < f.opts.MarkerThreshold:
			emit(e, f.opts.MarkerTag+" "+e.Text, Marker, false)
		case length <= f.opts.MaxChunkSize:
			emit(e, e.Text, Normal, false)
		default:
			for _, piece := range SplitSentences(e.Text, f.opts.MaxChunkSize) {
				emit(e, piece, Split, true)
			}
		}
	}
	return chunks
}

// SplitSentences packs the sentences of text greedily into pieces of at most
// limit runes, joined with single spaces. A sentence longer than limit is emitted
// alone.
func SplitSentences(text string, limit int) []string {
	var pieces []string
	var cur strings.Builder
	curLen := 0
	for _, s := range extract.SplitSentences(text) {
		n := utf8.RuneCountInString(s)
		if curLen > 0 && curLen+1+n > limit {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(s)
		curLen += n
	}
	if curLen > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}
