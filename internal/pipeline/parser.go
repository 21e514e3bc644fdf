package pipeline

import (
	"log/slog"

	"rfqingest/internal/columns"
)

type Options struct {
	HeaderMinScore    float64
	HeaderStrongScore float64
	MaxSearchLines    int
	YTolerance        float64
	// MinItems is the item count under which a matched header triggers the
	// pattern fallback.
	MinItems           int
	ContinuationMaxLen int
	// MergeNumberedItems lets an item with its own line number be folded
	// into the previous item as a continuation.
	MergeNumberedItems bool
	LowConfidence      float64
	MaxLowRatio        float64
}

func DefaultOptions() Options {
	return Options{
		HeaderMinScore:     8,
		HeaderStrongScore:  15,
		MaxSearchLines:     50,
		YTolerance:         5,
		MinItems:           3,
		ContinuationMaxLen: 100,
		LowConfidence:      0.6,
		MaxLowRatio:        0.3,
	}
}

// Parser turns normalized documents into draft items. It holds no per-call
// state and may be shared.
type Parser struct {
	opts    Options
	matcher *columns.Matcher
	logger  *slog.Logger
}

func NewParser(matcher *columns.Matcher, opts Options, logger *slog.Logger) *Parser {
	def := DefaultOptions()
	if matcher == nil {
		matcher = columns.NewMatcher(nil, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HeaderMinScore <= 0 {
		opts.HeaderMinScore = def.HeaderMinScore
	}
	if opts.HeaderStrongScore <= 0 {
		opts.HeaderStrongScore = def.HeaderStrongScore
	}
	if opts.MaxSearchLines <= 0 {
		opts.MaxSearchLines = def.MaxSearchLines
	}
	if opts.YTolerance <= 0 {
		opts.YTolerance = def.YTolerance
	}
	if opts.MinItems <= 0 {
		opts.MinItems = def.MinItems
	}
	if opts.ContinuationMaxLen <= 0 {
		opts.ContinuationMaxLen = def.ContinuationMaxLen
	}
	if opts.LowConfidence <= 0 {
		opts.LowConfidence = def.LowConfidence
	}
	if opts.MaxLowRatio <= 0 {
		opts.MaxLowRatio = def.MaxLowRatio
	}
	return &Parser{opts: opts, matcher: matcher, logger: logger}
}

func (p *Parser) Options() Options { return p.opts }
