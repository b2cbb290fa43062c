// ABOUTME: Checkout, checkin and cancel-checkout against the repository's own locks
// ABOUTME: Every call re-reads remote state; unknown outcomes surface as indeterminate

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/repository"
	"github.com/nainya/contentmcp/pkg/version"
)

// Recorder receives per-transition measurements
type Recorder interface {
	RecordLifecycle(op, outcome string, duration time.Duration)
}

// Controller drives the lifecycle of nodes. It keeps no lock table; the
// repository is the only source of lock state.
type Controller struct {
	repo   repository.LockBackend
	caller string
	log    zerolog.Logger
	rec    Recorder
	tracer trace.Tracer
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log.With().Str("component", "lifecycle").Logger()
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(rec Recorder) Option {
	return func(c *Controller) {
		c.rec = rec
	}
}

// NewController creates a controller acting as caller
func NewController(repo repository.LockBackend, caller string, opts ...Option) *Controller {
	c := &Controller{
		repo:   repo,
		caller: caller,
		log:    zerolog.Nop(),
		tracer: otel.Tracer("github.com/nainya/contentmcp/pkg/lifecycle"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Caller returns the identity locks are taken for
func (c *Controller) Caller() string {
	return c.caller
}

// Checkout is the result of a successful checkout
type Checkout struct {
	NodeID      repository.NodeRef
	WorkingCopy repository.NodeRef // same node under lock-based checkout
	Owner       string
	Node        *repository.Node
}

// CheckinInput describes the version a checkin creates
type CheckinInput struct {
	Comment string
	Major   bool
	Name    string
	Content io.Reader // nil versions the current content
}

// State reads the node and derives its current lifecycle state
func (c *Controller) State(ctx context.Context, ref repository.NodeRef) (State, *repository.Node, error) {
	n, err := c.repo.GetNode(ctx, ref)
	if err != nil {
		return Available, nil, c.classify("state", ref, err)
	}
	return Derive(n, c.caller), n, nil
}

// Checkout locks an available document for the caller
func (c *Controller) Checkout(ctx context.Context, ref repository.NodeRef) (*Checkout, error) {
	var out *Checkout
	err := c.run(ctx, "checkout", ref, func(ctx context.Context) error {
		state, n, err := c.State(ctx, ref)
		if err != nil {
			return err
		}
		if n.IsFolder {
			return faults.Validation("node %s is a folder; only documents can be checked out", ref)
		}
		switch state {
		case CheckedOutByCaller:
			return faults.AlreadyCheckedOut(ref.String(), c.caller)
		case CheckedOutByOther:
			return faults.AlreadyCheckedOut(ref.String(), n.LockOwner)
		}

		lock, err := c.repo.Lock(ctx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrLocked) {
				return faults.AlreadyCheckedOut(ref.String(), "").WithDetails(err.Error())
			}
			return c.classify("checkout", ref, err)
		}

		confirmed, err := c.repo.GetNode(ctx, ref)
		if err != nil {
			return faults.Indeterminate("checkout", ref.String(), err)
		}
		switch Derive(confirmed, c.caller) {
		case CheckedOutByOther:
			return faults.AlreadyCheckedOut(ref.String(), confirmed.LockOwner)
		case Available:
			return faults.Indeterminate("checkout", ref.String(), errors.New("lock not visible after lock request"))
		}

		owner := lock.Owner
		if owner == "" {
			owner = c.caller
		}
		out = &Checkout{NodeID: ref, WorkingCopy: ref, Owner: owner, Node: confirmed}
		return nil
	})
	return out, err
}

// Checkin creates a new version of a document the caller holds and releases the lock
func (c *Controller) Checkin(ctx context.Context, ref repository.NodeRef, in CheckinInput) (*version.Record, error) {
	var out *version.Record
	err := c.run(ctx, "checkin", ref, func(ctx context.Context) error {
		state, n, err := c.State(ctx, ref)
		if err != nil {
			return err
		}
		if !n.Versionable() {
			return faults.VersioningUnsupported(ref.String())
		}
		if state != CheckedOutByCaller {
			return faults.NotCheckedOut(ref.String(), describe(state, n))
		}

		raw, err := c.repo.CreateVersion(ctx, ref, repository.VersionInput{
			Major:   in.Major,
			Comment: in.Comment,
			Name:    in.Name,
			Content: in.Content,
		})
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrNotSupported):
				return faults.VersioningUnsupported(ref.String()).WithDetails(err.Error())
			case errors.Is(err, repository.ErrLocked):
				return faults.NotCheckedOut(ref.String(), err.Error())
			}
			return c.classify("checkin", ref, err)
		}

		label := raw.Label
		if label == "" {
			label, err = version.NextLabel(n.VersionLabel(), in.Major)
			if err != nil {
				label = ""
				c.log.Warn().Err(err).Str("node_id", ref.String()).Msg("Unparseable version label")
			}
		}
		out = &version.Record{
			NodeID:    ref.String(),
			Label:     label,
			Major:     in.Major,
			Comment:   in.Comment,
			CreatedBy: firstNonEmpty(raw.CreatedBy, c.caller),
			CreatedAt: raw.CreatedAt,
		}

		if err := c.repo.Unlock(ctx, ref); err != nil && !errors.Is(err, repository.ErrNotLocked) {
			return faults.Indeterminate("checkin", ref.String(), fmt.Errorf("version %s created, lock release failed: %w", label, err))
		}
		if err := c.confirmReleased(ctx, "checkin", ref); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelCheckout releases the caller's lock without creating a version
func (c *Controller) CancelCheckout(ctx context.Context, ref repository.NodeRef) error {
	return c.run(ctx, "cancel_checkout", ref, func(ctx context.Context) error {
		state, n, err := c.State(ctx, ref)
		if err != nil {
			return err
		}
		if state != CheckedOutByCaller {
			return faults.NotCheckedOut(ref.String(), describe(state, n))
		}

		if err := c.repo.Unlock(ctx, ref); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotLocked), errors.Is(err, repository.ErrLocked):
				return faults.NotCheckedOut(ref.String(), err.Error())
			}
			return c.classify("cancel_checkout", ref, err)
		}
		return c.confirmReleased(ctx, "cancel_checkout", ref)
	})
}

func (c *Controller) confirmReleased(ctx context.Context, op string, ref repository.NodeRef) error {
	n, err := c.repo.GetNode(ctx, ref)
	if err != nil {
		return faults.Indeterminate(op, ref.String(), err)
	}
	if Derive(n, c.caller) == CheckedOutByCaller {
		return faults.Indeterminate(op, ref.String(), errors.New("lock still held after unlock"))
	}
	return nil
}

// classify maps collaborator errors; cancellations and timeouts make the outcome unknown
func (c *Controller) classify(op string, ref repository.NodeRef, err error) error {
	if repository.Uncertain(err) {
		return faults.Indeterminate(op, ref.String(), err)
	}
	return repository.AsFault(op, ref, err)
}

func (c *Controller) run(ctx context.Context, op string, ref repository.NodeRef, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "lifecycle."+op, trace.WithAttributes(
		attribute.String("repository.node_id", ref.String()),
	))
	defer span.End()

	err := fn(ctx)

	duration := time.Since(start)
	outcome := "success"
	event := c.log.Info()
	if err != nil {
		outcome = string(faults.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		event = c.log.Warn().Err(err).Str("kind", outcome)
	}
	if c.rec != nil {
		c.rec.RecordLifecycle(op, outcome, duration)
	}
	event.Str("operation", op).
		Str("node_id", ref.String()).
		Dur("duration_ms", duration).
		Msg("Lifecycle operation completed")
	return err
}

func describe(state State, n *repository.Node) string {
	if state == CheckedOutByOther {
		return "locked by " + n.LockOwner
	}
	return "node is " + state.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
