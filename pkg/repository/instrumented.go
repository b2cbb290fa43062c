// ABOUTME: Client decorator adding spans, metrics and logs per repository call
// ABOUTME: Keeps the REST and memory backends free of observability code

package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recorder receives per-call repository measurements
type Recorder interface {
	RecordRepoCall(op, status string, duration time.Duration)
}

type instrumented struct {
	next   Client
	rec    Recorder
	log    zerolog.Logger
	tracer trace.Tracer
}

// Instrument wraps c so every call is traced, counted and logged. rec may be nil.
func Instrument(c Client, rec Recorder, log zerolog.Logger) Client {
	return &instrumented{
		next:   c,
		rec:    rec,
		log:    log.With().Str("component", "repository").Logger(),
		tracer: otel.Tracer("github.com/nainya/contentmcp/pkg/repository"),
	}
}

func (i *instrumented) observe(ctx context.Context, op string, ref NodeRef) (context.Context, func(count int, err error)) {
	ctx, span := i.tracer.Start(ctx, "repository."+op, trace.WithSpanKind(trace.SpanKindClient))
	if ref != "" {
		span.SetAttributes(attribute.String("repository.node_id", ref.String()))
	}
	start := time.Now()
	return ctx, func(count int, err error) {
		duration := time.Since(start)
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if i.rec != nil {
			i.rec.RecordRepoCall(op, status, duration)
		}
		event := i.log.Debug()
		if err != nil {
			event = i.log.Warn().Err(err)
		}
		event.Str("operation", op).
			Str("node_id", ref.String()).
			Dur("duration_ms", duration).
			Int("record_count", count).
			Msg("Repository call completed")
	}
}

func (i *instrumented) Search(ctx context.Context, q BackendQuery) (*RawResultSet, error) {
	ctx, done := i.observe(ctx, "search", "")
	rs, err := i.next.Search(ctx, q)
	count := 0
	if rs != nil {
		count = len(rs.Rows)
	}
	done(count, err)
	return rs, err
}

func (i *instrumented) GetNode(ctx context.Context, ref NodeRef) (*Node, error) {
	ctx, done := i.observe(ctx, "get_node", ref)
	n, err := i.next.GetNode(ctx, ref)
	done(1, err)
	return n, err
}

func (i *instrumented) Lock(ctx context.Context, ref NodeRef) (*LockResult, error) {
	ctx, done := i.observe(ctx, "lock", ref)
	r, err := i.next.Lock(ctx, ref)
	done(1, err)
	return r, err
}

func (i *instrumented) Unlock(ctx context.Context, ref NodeRef) error {
	ctx, done := i.observe(ctx, "unlock", ref)
	err := i.next.Unlock(ctx, ref)
	done(1, err)
	return err
}

func (i *instrumented) CreateVersion(ctx context.Context, ref NodeRef, in VersionInput) (*RawVersion, error) {
	ctx, done := i.observe(ctx, "create_version", ref)
	v, err := i.next.CreateVersion(ctx, ref, in)
	done(1, err)
	return v, err
}

func (i *instrumented) ListChildren(ctx context.Context, parent NodeRef, maxItems int) (*Page, error) {
	ctx, done := i.observe(ctx, "list_children", parent)
	p, err := i.next.ListChildren(ctx, parent, maxItems)
	count := 0
	if p != nil {
		count = len(p.Nodes)
	}
	done(count, err)
	return p, err
}

func (i *instrumented) CreateContent(ctx context.Context, parent NodeRef, in ContentInput) (*Node, error) {
	ctx, done := i.observe(ctx, "create_content", parent)
	n, err := i.next.CreateContent(ctx, parent, in)
	done(1, err)
	return n, err
}

func (i *instrumented) GetContent(ctx context.Context, ref NodeRef) (*Content, error) {
	ctx, done := i.observe(ctx, "get_content", ref)
	c, err := i.next.GetContent(ctx, ref)
	done(1, err)
	return c, err
}

func (i *instrumented) CreateFolder(ctx context.Context, parent NodeRef, in FolderInput) (*Node, error) {
	ctx, done := i.observe(ctx, "create_folder", parent)
	n, err := i.next.CreateFolder(ctx, parent, in)
	done(1, err)
	return n, err
}

func (i *instrumented) UpdateNode(ctx context.Context, ref NodeRef, in NodeUpdate) (*Node, error) {
	ctx, done := i.observe(ctx, "update_node", ref)
	n, err := i.next.UpdateNode(ctx, ref, in)
	done(1, err)
	return n, err
}

func (i *instrumented) DeleteNode(ctx context.Context, ref NodeRef, permanent bool) error {
	ctx, done := i.observe(ctx, "delete_node", ref)
	err := i.next.DeleteNode(ctx, ref, permanent)
	done(1, err)
	return err
}

func (i *instrumented) RepositoryInfo(ctx context.Context) (*Info, error) {
	ctx, done := i.observe(ctx, "repository_info", "")
	info, err := i.next.RepositoryInfo(ctx)
	done(1, err)
	return info, err
}
