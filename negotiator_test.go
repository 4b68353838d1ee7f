package negotiate_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/negotiate"
	"github.com/bjaus/negotiate/negtest"
)

// reply is a minimal host response type for exercising Output.
type reply struct {
	value       any
	status      int
	body        []byte
	contentType string
}

type replyHooks struct{}

func (replyHooks) Payload(r reply) (negotiate.Negotiable, bool) {
	p, ok := r.value.(negotiate.Negotiable)
	return p, ok
}

func (replyHooks) Rebuild(r reply, body []byte, contentType string) reply {
	r.value, r.body, r.contentType = nil, body, contentType
	return r
}

func (replyHooks) NotAcceptable(reply) reply {
	return reply{status: http.StatusNotAcceptable, body: []byte("406 Not Acceptable")}
}

type eventLog struct {
	mu     sync.Mutex
	events []negotiate.Event
}

func (l *eventLog) Observe(_ context.Context, ev negotiate.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) outcomes() []negotiate.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []negotiate.Outcome
	for _, ev := range l.events {
		out = append(out, ev.Outcome)
	}
	return out
}

type spanLog struct {
	mu    sync.Mutex
	names []string
	attrs []map[string]string
	ended int
}

func (s *spanLog) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.attrs = append(s.attrs, attrs)
	return ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.ended++
	}
}

func TestOutput(t *testing.T) {
	t.Parallel()

	n := negotiate.New(negotiate.WithSelector(negotiate.NewRegistry()))

	tests := map[string]struct {
		value        any
		accept       string
		expectStatus int
		expectBody   string
		expectType   string
	}{
		"turtle with charset": {
			value:      negtest.NewGraph("g"),
			accept:     "text/n3;q=0.5, text/turtle;q=0.9",
			expectBody: "turtle:g",
			expectType: "text/turtle; charset=utf-8",
		},
		"binary mimetype without charset": {
			value:      negtest.NewGraph("g"),
			accept:     "application/n-triples",
			expectBody: "nt:g",
			expectType: "application/n-triples",
		},
		"empty accept uses default": {
			value:      negtest.NewGraph("g"),
			accept:     "",
			expectBody: "xml:g",
			expectType: "application/rdf+xml",
		},
		"quads for context graph": {
			value:      negtest.NewContextGraph("g"),
			accept:     "text/turtle;q=0.4, application/n-quads;q=0.9",
			expectBody: "nquads:g",
			expectType: "application/n-quads",
		},
		"no quads for plain graph": {
			value:      negtest.NewGraph("g"),
			accept:     "text/turtle;q=0.4, application/n-quads;q=0.9",
			expectBody: "turtle:g",
			expectType: "text/turtle; charset=utf-8",
		},
		"not acceptable": {
			value:        negtest.NewGraph("g"),
			accept:       "text/html",
			expectStatus: http.StatusNotAcceptable,
			expectBody:   "406 Not Acceptable",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := negotiate.Output[reply](context.Background(), n, replyHooks{}, reply{value: tc.value}, tc.accept)
			require.NoError(t, err)
			assert.Equal(t, tc.expectStatus, out.status)
			assert.Equal(t, tc.expectBody, string(out.body))
			assert.Equal(t, tc.expectType, out.contentType)
		})
	}
}

func TestOutput_pass_through(t *testing.T) {
	t.Parallel()

	events := &eventLog{}
	n := negotiate.New(negotiate.WithObserver(events))

	in := reply{value: "plain text", status: http.StatusAccepted}
	out, err := negotiate.Output[reply](context.Background(), n, replyHooks{}, in, "text/turtle")

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, []negotiate.Outcome{negotiate.PassThrough}, events.outcomes())
}

func TestOutput_keeps_extras(t *testing.T) {
	t.Parallel()

	n := negotiate.New()

	out, err := negotiate.Output[reply](context.Background(), n, replyHooks{},
		reply{value: negtest.NewGraph("g"), status: http.StatusCreated}, "text/turtle")

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, out.status)
	assert.Equal(t, "turtle:g", string(out.body))
}

func TestOutput_serialize_failure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	events := &eventLog{}
	n := negotiate.New(
		negotiate.WithSelector(negotiate.NewRegistry()),
		negotiate.WithObserver(events),
		negotiate.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	g := &negtest.Graph{Body: "g", Formats: []string{"turtle"}}
	_, err := negotiate.Output[reply](context.Background(), n, replyHooks{}, reply{value: g}, "application/trix")

	var serr *negotiate.SerializeError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "application/trix", serr.Mimetype)
	assert.Equal(t, "trix", serr.Format)
	require.ErrorIs(t, err, negtest.ErrFormat)
	assert.Equal(t, http.StatusInternalServerError, negotiate.ErrorStatus(err))

	assert.Equal(t, []negotiate.Outcome{negotiate.Failed}, events.outcomes())
	assert.Contains(t, logs.String(), "negotiate: failed")
	assert.Contains(t, logs.String(), "mimetype=application/trix")
}

func TestOutput_failure_logging_is_sampled(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	n := negotiate.New(
		negotiate.WithSelector(negotiate.NewSelector(negotiate.WithWildcardMimetype("text/html"))),
		negotiate.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)

	for range 5 {
		_, err := negotiate.Output[reply](context.Background(), n, replyHooks{}, reply{value: negtest.NewGraph("g")}, "*/*")
		require.ErrorIs(t, err, negotiate.ErrUnknownFormat)
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "negotiate: failed"))
}

func TestOutput_observes_and_traces(t *testing.T) {
	t.Parallel()

	events := &eventLog{}
	spans := &spanLog{}
	n := negotiate.New(
		negotiate.WithSelector(negotiate.NewRegistry()),
		negotiate.WithObserver(events),
		negotiate.WithTracer(spans),
	)

	_, err := negotiate.Output[reply](context.Background(), n, replyHooks{}, reply{value: negtest.NewGraph("g")}, "text/n3")
	require.NoError(t, err)
	_, err = negotiate.Output[reply](context.Background(), n, replyHooks{}, reply{value: negtest.NewGraph("g")}, "text/html")
	require.NoError(t, err)

	assert.Equal(t, []negotiate.Outcome{negotiate.Negotiated, negotiate.NotAcceptable}, events.outcomes())

	ev := events.events[0]
	assert.Equal(t, "text/n3", ev.Accept)
	assert.Equal(t, "text/n3", ev.Mimetype)
	assert.Equal(t, "n3", ev.Format)
	assert.False(t, ev.ContextAware)
	assert.NoError(t, ev.Err)

	assert.Equal(t, []string{"negotiate.serialize"}, spans.names)
	assert.Equal(t, []map[string]string{{"mimetype": "text/n3", "format": "n3"}}, spans.attrs)
	assert.Equal(t, 1, spans.ended)
}

func TestDecorate(t *testing.T) {
	t.Parallel()

	n := negotiate.New()

	type request struct {
		accept string
		fail   bool
	}
	errBoom := errors.New("boom")

	h := negotiate.Decorate[request, reply](n, replyHooks{},
		func(r request) string { return r.accept },
		func(_ context.Context, r request) (reply, error) {
			if r.fail {
				return reply{}, errBoom
			}
			return reply{value: negtest.NewGraph("g")}, nil
		},
	)

	out, err := h(context.Background(), request{accept: "application/n3"})
	require.NoError(t, err)
	assert.Equal(t, "n3:g", string(out.body))
	assert.Equal(t, "application/n3", out.contentType)

	_, err = h(context.Background(), request{fail: true})
	require.ErrorIs(t, err, errBoom)
}

func TestObservers_fan_out(t *testing.T) {
	t.Parallel()

	a, b := &eventLog{}, &eventLog{}
	obs := negotiate.Observers(a, nil, b)

	obs.Observe(context.Background(), negotiate.Event{Outcome: negotiate.Negotiated})

	assert.Equal(t, []negotiate.Outcome{negotiate.Negotiated}, a.outcomes())
	assert.Equal(t, []negotiate.Outcome{negotiate.Negotiated}, b.outcomes())
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pass_through", negotiate.PassThrough.String())
	assert.Equal(t, "negotiated", negotiate.Negotiated.String())
	assert.Equal(t, "not_acceptable", negotiate.NotAcceptable.String())
	assert.Equal(t, "failed", negotiate.Failed.String())
	assert.Equal(t, "unknown", negotiate.Outcome(42).String())
}

func TestNew_default_selector_layers_over_default(t *testing.T) {
	t.Parallel()

	n := negotiate.New()
	require.NotNil(t, n.Selector())
	assert.NotSame(t, negotiate.Default(), n.Selector())

	format, ok := n.Selector().SerializeFormat("text/turtle")
	require.True(t, ok)
	assert.Equal(t, "turtle", format)
}
