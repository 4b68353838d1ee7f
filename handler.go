package negotiate

import (
	"context"
	"net/http"
)

// Negotiable is a payload that can be serialized into more than one
// representation. Any type implementing it is negotiated by the adapters;
// everything else passes through.
type Negotiable interface {
	// ContextAware reports whether the payload carries named-graph context,
	// which formats registered with requiresContext need.
	ContextAware() bool

	// Serialize renders the payload in the named format. It must fail for
	// formats it does not support.
	Serialize(format string) ([]byte, error)
}

// Handler is the shape Decorate wraps: a function from a request value to a
// result of the host framework's response type.
type Handler[In, R any] func(ctx context.Context, in In) (R, error)

// HandlerFunc is the low-level handler accepted by Negotiator.Wrap. It may
// set the status, headers and leading body bytes through w, and returns the
// rest of the body: a Negotiable, []byte, string, [][]byte, io.Reader or nil.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) any

// ViewFunc is the view-level handler accepted by Negotiator.View. It never
// sees the ResponseWriter; it returns a body value or a Result.
type ViewFunc func(r *http.Request) (any, error)
