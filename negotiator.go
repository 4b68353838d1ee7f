package negotiate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Negotiator applies a Selector to handler results and carries the logging,
// metrics and tracing hooks used while doing so. The zero value is not
// usable; create one with New.
type Negotiator struct {
	selector     *Selector
	logger       *slog.Logger
	observer     Observer
	tracer       SpanStarter
	errorHandler ErrorHandler

	failures *rate.Sometimes
}

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithSelector sets the format registry used for negotiation.
func WithSelector(s *Selector) Option {
	return func(n *Negotiator) {
		n.selector = s
	}
}

// WithLogger sets the logger. Defaults to slog.Default at the time of each
// log call.
func WithLogger(l *slog.Logger) Option {
	return func(n *Negotiator) {
		n.logger = l
	}
}

// WithObserver sets a hook that sees every negotiation outcome.
func WithObserver(o Observer) Option {
	return func(n *Negotiator) {
		n.observer = o
	}
}

// WithTracer sets a tracing hook wrapped around payload serialization.
func WithTracer(s SpanStarter) Option {
	return func(n *Negotiator) {
		n.tracer = s
	}
}

// WithErrorHandler sets a custom error handler for the net/http adapters.
// The default writes RFC 9457 problem details.
func WithErrorHandler(h ErrorHandler) Option {
	return func(n *Negotiator) {
		n.errorHandler = h
	}
}

// New creates a Negotiator. Without WithSelector it negotiates over a fresh
// selector layered on Default.
func New(opts ...Option) *Negotiator {
	n := &Negotiator{
		failures: &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.selector == nil {
		n.selector = NewSelector()
	}
	return n
}

// Selector returns the format registry the negotiator decides against.
func (n *Negotiator) Selector() *Selector { return n.selector }

func (n *Negotiator) log() *slog.Logger {
	if n.logger != nil {
		return n.logger
	}
	return slog.Default()
}

func (n *Negotiator) observe(ctx context.Context, ev Event) {
	if n.observer != nil {
		n.observer.Observe(ctx, ev)
	}
}

// Hooks is what a host framework supplies to plug its response type R into
// Output.
type Hooks[R any] interface {
	// Payload extracts the negotiable object from a handler result. It
	// reports false for results that should pass through untouched.
	Payload(result R) (Negotiable, bool)

	// Rebuild replaces the negotiable object in result with body, keeping
	// everything else the result carries, and sets the Content-Type.
	Rebuild(result R, body []byte, contentType string) R

	// NotAcceptable builds the framework's 406 response for result.
	NotAcceptable(result R) R
}

// Output negotiates a single handler result. Results without a Negotiable
// payload are returned unchanged. When no registered format satisfies
// accept, the hooks' 406 response is returned with a nil error. Errors are
// reserved for misconfiguration: a chosen mimetype without a format or a
// payload that fails to serialize.
func Output[R any](ctx context.Context, n *Negotiator, hooks Hooks[R], result R, accept string) (R, error) {
	start := time.Now()

	payload, ok := hooks.Payload(result)
	if !ok {
		n.observe(ctx, Event{Outcome: PassThrough, Accept: accept, Duration: time.Since(start)})
		return result, nil
	}

	ev := Event{Accept: accept, ContextAware: payload.ContextAware()}

	d, err := n.selector.Decide(accept, ev.ContextAware)
	if errors.Is(err, ErrNotAcceptable) {
		ev.Outcome, ev.Duration = NotAcceptable, time.Since(start)
		n.log().DebugContext(ctx, "negotiate: not acceptable", "accept", accept, "context_aware", ev.ContextAware)
		n.observe(ctx, ev)
		return hooks.NotAcceptable(result), nil
	}
	if err != nil {
		var zero R
		return zero, n.fail(ctx, ev, start, err)
	}
	ev.Mimetype, ev.Format = d.Mimetype, d.Format

	body, err := n.serialize(ctx, payload, d)
	if err != nil {
		var zero R
		return zero, n.fail(ctx, ev, start, err)
	}

	contentType := d.Mimetype
	if strings.Contains(contentType, "text") {
		contentType += "; charset=utf-8"
	}

	ev.Outcome, ev.Duration = Negotiated, time.Since(start)
	n.log().DebugContext(ctx, "negotiate: decided",
		"accept", accept,
		"mimetype", d.Mimetype,
		"format", d.Format,
	)
	n.observe(ctx, ev)
	return hooks.Rebuild(result, body, contentType), nil
}

func (n *Negotiator) serialize(ctx context.Context, payload Negotiable, d Decision) ([]byte, error) {
	if n.tracer != nil {
		var end func()
		_, end = n.tracer.StartSpan(ctx, "negotiate.serialize", map[string]string{
			"mimetype": d.Mimetype,
			"format":   d.Format,
		})
		defer end()
	}

	body, err := payload.Serialize(d.Format)
	if err != nil {
		return nil, &SerializeError{Mimetype: d.Mimetype, Format: d.Format, Err: err}
	}
	return body, nil
}

func (n *Negotiator) fail(ctx context.Context, ev Event, start time.Time, err error) error {
	ev.Outcome, ev.Duration, ev.Err = Failed, time.Since(start), err
	n.observe(ctx, ev)
	n.failures.Do(func() {
		n.log().ErrorContext(ctx, "negotiate: failed",
			"accept", ev.Accept,
			"mimetype", ev.Mimetype,
			"format", ev.Format,
			"error", err,
		)
	})
	return err
}

// Decorate wraps h so that its results are negotiated against the Accept
// header accept extracts from the handler input. The wrapped handler has the
// same signature as h.
func Decorate[In, R any](n *Negotiator, hooks Hooks[R], accept func(In) string, h Handler[In, R]) Handler[In, R] {
	return func(ctx context.Context, in In) (R, error) {
		result, err := h(ctx, in)
		if err != nil {
			return result, err
		}
		return Output(ctx, n, hooks, result, accept(in))
	}
}
