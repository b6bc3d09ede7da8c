package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/events"
	"github.com/AdamBeresnev/op-bracket/internal/metrics"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Clock is the engine's only source of time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Runtime is what every service shares: the database, the engine policy and the
// observability hooks. Each mutation runs through it as one transaction.
type Runtime struct {
	db            *sqlx.DB
	clock         Clock
	policy        bracket.Policy
	logger        *slog.Logger
	metrics       *metrics.Engine
	publisher     *events.Publisher
	tracer        trace.Tracer
	retryAttempts int
	retryBackoff  time.Duration
}

type Option func(*Runtime)

func WithClock(c Clock) Option { return func(r *Runtime) { r.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(r *Runtime) { r.logger = l } }

func WithMetrics(m *metrics.Engine) Option { return func(r *Runtime) { r.metrics = m } }

func WithPublisher(p *events.Publisher) Option { return func(r *Runtime) { r.publisher = p } }

func WithTracer(t trace.Tracer) Option { return func(r *Runtime) { r.tracer = t } }

// WithRetry bounds the stale_state retries: attempts includes the first try.
func WithRetry(attempts int, initial time.Duration) Option {
	return func(r *Runtime) {
		r.retryAttempts = attempts
		r.retryBackoff = initial
	}
}

func NewRuntime(db *sqlx.DB, policy bracket.Policy, opts ...Option) *Runtime {
	r := &Runtime{
		db:            db,
		clock:         systemClock{},
		policy:        policy,
		logger:        slog.Default(),
		tracer:        otel.Tracer("github.com/AdamBeresnev/op-bracket/internal/service"),
		retryAttempts: 3,
		retryBackoff:  20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retryAttempts < 1 {
		r.retryAttempts = 1
	}
	return r
}

func (r *Runtime) Policy() bracket.Policy { return r.policy }

func (r *Runtime) Now() time.Time { return r.clock.Now() }

// txFunc is one attempt of a mutation. It returns the events to publish once the
// transaction has committed.
type txFunc func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error)

// mutate runs fn in a transaction with tracing and metrics. A stale_state failure
// re-runs fn from a fresh read, up to the configured attempts; every other error
// is returned as is.
func (r *Runtime) mutate(ctx context.Context, op string, attrs []attribute.KeyValue, fn txFunc) (err error) {
	ctx, span := r.tracer.Start(ctx, op, trace.WithAttributes(append(attrs, attribute.String("operation", op))...))
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in %s: %v", op, rec)
			r.logger.ErrorContext(ctx, "Critical panic recovered", slog.String("op", op), slog.Any("error", err))
		}
		r.finish(ctx, span, op, start, err)
	}()

	var published []events.Event
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			r.metrics.IncRetry(op)
			r.logger.InfoContext(ctx, "Retrying after concurrent write", slog.String("op", op), slog.Int("attempt", attempt))
		}

		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return retryable(store.WrapErr(err, "begin transaction"))
		}
		defer tx.Rollback()

		evs, err := fn(ctx, tx, r.clock.Now())
		if err != nil {
			return retryable(err)
		}
		if err := tx.Commit(); err != nil {
			return retryable(store.WrapErr(err, "commit"))
		}
		published = evs
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.retryBackoff
	policy.MaxElapsedTime = 0
	if err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.retryAttempts-1)), ctx)); err != nil {
		return err
	}

	r.publish(ctx, span, published)
	return nil
}

// retryable marks everything except stale_state as permanent for backoff.
func retryable(err error) error {
	if errors.Is(err, bracket.ErrStaleState) {
		return err
	}
	return backoff.Permanent(err)
}

// read runs fn under a span without a transaction.
func (r *Runtime) read(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) (err error) {
	ctx, span := r.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()
	defer func() { r.finish(ctx, span, op, start, err) }()
	return fn(ctx)
}

func (r *Runtime) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	r.metrics.ObserveOperation(op, time.Since(start), err)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		r.logger.DebugContext(ctx, "Operation completed", slog.String("op", op), slog.Duration("took", time.Since(start)))
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if kind := bracket.KindOf(err); kind != "" {
		r.logger.InfoContext(ctx, "Operation rejected", slog.String("op", op), slog.String("kind", string(kind)), slog.Any("error", err))
		return
	}
	r.logger.ErrorContext(ctx, "Operation failed", slog.String("op", op), slog.Any("error", err))
}

func (r *Runtime) publish(ctx context.Context, span trace.Span, evs []events.Event) {
	if len(evs) == 0 || r.publisher == nil {
		return
	}
	correlationID := watermill.NewUUID()
	if sc := span.SpanContext(); sc.HasTraceID() {
		correlationID = sc.TraceID().String()
	}
	// the transaction is committed; a failed publish is logged, not returned
	if err := r.publisher.Publish(ctx, correlationID, evs...); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish events", slog.Any("error", err))
		return
	}
	for _, ev := range evs {
		r.metrics.IncEvent(ev.Topic)
	}
}
