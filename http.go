package negotiate

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"
)

// Endpoint is an http.Handler produced by Wrap or View. It remembers the
// name of the function it wraps so routers and debug pages can report it.
type Endpoint struct {
	name  string
	serve http.HandlerFunc
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.serve(w, r)
}

// Name returns the fully qualified name of the wrapped function.
func (e *Endpoint) Name() string { return e.name }

func funcName(f any) string {
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return ""
	}
	return fn.Name()
}

// acceptHeader returns every Accept header line of r joined into one list.
func acceptHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Accept"), ", ")
}

// Wrap adapts a low-level handler. The handler may set the status and
// headers and write leading bytes through its ResponseWriter; the value it
// returns is negotiated when Negotiable and written after those bytes
// otherwise. The response always varies on Accept, merged with any Vary the
// handler set.
//
// When nothing registered satisfies the Accept header the response is 406
// with the body "406 Not Acceptable" and the handler's other headers.
func (n *Negotiator) Wrap(h HandlerFunc) *Endpoint {
	return &Endpoint{
		name: funcName(h),
		serve: func(w http.ResponseWriter, r *http.Request) {
			rec := newBufferedWriter(w)
			body := h(rec, r)
			n.finish(rec, r, body)
		},
	}
}

// Middleware returns middleware with the same behaviour as Wrap for ordinary
// http.Handlers. Handlers pass their payload with Render.
func (n *Negotiator) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newBufferedWriter(w)
			next.ServeHTTP(rec, r)

			var body any
			if rec.payload != nil {
				body = rec.payload
			}
			n.finish(rec, r, body)
		})
	}
}

// capture is the handler result the buffering adapters negotiate: the
// recorded response plus the returned body.
type capture struct {
	rec  *bufferedWriter
	body any
}

type rawHooks struct{}

func (rawHooks) Payload(c capture) (Negotiable, bool) {
	p, ok := c.body.(Negotiable)
	return p, ok
}

func (rawHooks) Rebuild(c capture, body []byte, contentType string) capture {
	setHeader(c.rec.header, "Content-Type", contentType)
	deleteHeader(c.rec.header, "Content-Length")
	c.body = body
	return c
}

func (rawHooks) NotAcceptable(c capture) capture {
	c.rec.status = http.StatusNotAcceptable
	deleteHeader(c.rec.header, "Content-Length")
	c.body = []byte(notAcceptableBody)
	return c
}

func (n *Negotiator) finish(rec *bufferedWriter, r *http.Request, body any) {
	out, err := Output[capture](r.Context(), n, rawHooks{}, capture{rec: rec, body: body}, acceptHeader(r))
	if err == nil && !bodySupported(out.body) {
		err = fmt.Errorf("%w: %T", ErrUnsupportedBody, out.body)
	}
	if err != nil {
		closeBody(body)
		n.handleError(rec.dst, r, err)
		return
	}

	MergeVary(rec.header)
	if err := rec.flush(out.body); err != nil {
		n.log().DebugContext(r.Context(), "negotiate: write response", "error", err)
	}
}

// View adapts a view-level handler that never touches the ResponseWriter.
// The handler returns a bare value or a Result. Negotiable payloads are
// serialized, answered with the negotiated Content-Type and "Vary: Accept",
// and keep the Result's status and headers. Other values are written
// untouched. Errors are written by the negotiator's error handler.
func (n *Negotiator) View(h ViewFunc) *Endpoint {
	view := Decorate[*http.Request, any](n, viewHooks{}, acceptHeader,
		func(_ context.Context, r *http.Request) (any, error) {
			return h(r)
		},
	)

	return &Endpoint{
		name: funcName(h),
		serve: func(w http.ResponseWriter, r *http.Request) {
			out, err := view(r.Context(), r)
			if err != nil {
				n.handleError(w, r, err)
				return
			}
			res, err := resultOf(out)
			if err != nil {
				closeBody(out)
				n.handleError(w, r, err)
				return
			}
			if err := writeResult(w, res); err != nil {
				n.log().DebugContext(r.Context(), "negotiate: write response", "error", err)
			}
		},
	}
}

type viewHooks struct{}

func (viewHooks) Payload(v any) (Negotiable, bool) {
	if res, ok := asResult(v); ok {
		v = res.Payload
	}
	p, ok := v.(Negotiable)
	return p, ok
}

func (viewHooks) Rebuild(v any, body []byte, contentType string) any {
	res, ok := asResult(v)
	if !ok {
		res = Bare(nil)
	}

	h := res.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	setHeader(h, "Content-Type", contentType)
	setHeader(h, "Vary", "Accept")
	deleteHeader(h, "Content-Length")

	return Result{Payload: body, Status: res.Status, Header: h}
}

func (viewHooks) NotAcceptable(any) any {
	return WithHeaders(notAcceptableBody, http.StatusNotAcceptable, http.Header{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
}

func (n *Negotiator) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if n.errorHandler != nil {
		n.errorHandler(w, r, err)
		return
	}
	writeErrorResponse(w, err)
}
