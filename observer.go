package negotiate

import (
	"context"
	"time"
)

// Outcome classifies how a single negotiation ended.
type Outcome int

// Negotiation outcomes.
const (
	// PassThrough means the handler result was not Negotiable.
	PassThrough Outcome = iota
	// Negotiated means the payload was serialized into the chosen format.
	Negotiated
	// NotAcceptable means no registered format satisfied the Accept header.
	NotAcceptable
	// Failed means negotiation hit a misconfiguration or serializer error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case PassThrough:
		return "pass_through"
	case Negotiated:
		return "negotiated"
	case NotAcceptable:
		return "not_acceptable"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes one call to Output.
type Event struct {
	Outcome      Outcome
	Accept       string
	ContextAware bool
	Mimetype     string
	Format       string
	Duration     time.Duration
	Err          error
}

// Observer receives an Event for every negotiation. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f(ctx, ev).
func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers fans events out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var list []Observer
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(ctx context.Context, ev Event) {
		for _, o := range list {
			o.Observe(ctx, ev)
		}
	})
}

// SpanStarter is a tracing hook around serialization.
// Implement this with your preferred tracing backend (e.g., OpenTelemetry).
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}
