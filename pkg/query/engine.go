// ABOUTME: Search dispatcher: validate, translate, execute, normalize
// ABOUTME: One entry point for all four search paradigms

package query

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/repository"
)

// Recorder receives per-search measurements
type Recorder interface {
	RecordSearch(variant, outcome string, results int, duration time.Duration)
}

// Engine dispatches search requests to the repository. Safe for concurrent use.
type Engine struct {
	searcher repository.Searcher
	log      zerolog.Logger
	rec      Recorder
	tracer   trace.Tracer
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log.With().Str("component", "search").Logger()
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(rec Recorder) Option {
	return func(e *Engine) {
		e.rec = rec
	}
}

// NewEngine creates a new search engine
func NewEngine(searcher repository.Searcher, opts ...Option) *Engine {
	e := &Engine{
		searcher: searcher,
		log:      zerolog.Nop(),
		tracer:   otel.Tracer("github.com/nainya/contentmcp/pkg/query"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a search and returns normalized results in backend order
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req = concrete(req)
	variant := "unknown"
	if req != nil {
		variant = req.Variant()
	}
	ctx, span := e.tracer.Start(ctx, "search."+variant)
	defer span.End()

	res, err := e.execute(ctx, req)

	duration := time.Since(start)
	outcome := "success"
	count := 0
	if err != nil {
		outcome = string(faults.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		count = len(res.Entries)
		span.SetAttributes(attribute.Int("search.results", count))
	}
	if e.rec != nil {
		e.rec.RecordSearch(variant, outcome, count, duration)
	}
	event := e.log.Info()
	if err != nil {
		event = e.log.Warn().Err(err).Str("kind", outcome)
	}
	event.Str("variant", variant).
		Int("results", count).
		Dur("duration_ms", duration).
		Msg("Search completed")
	return res, err
}

func (e *Engine) execute(ctx context.Context, req Request) (*Result, error) {
	bq, err := Translate(req)
	if err != nil {
		return nil, err
	}

	raw, err := e.searcher.Search(ctx, bq)
	if err != nil {
		return nil, repository.AsFault("search", "", err)
	}

	res := &Result{Entries: make([]Entry, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		entry, ok := Normalize(row)
		if !ok {
			e.log.Debug().Interface("row", row.Properties).Msg("Dropping search row without identifier")
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	res.TotalCount = len(res.Entries)
	if raw.HasTotal {
		res.TotalCount = raw.TotalItems
	}
	return res, nil
}
