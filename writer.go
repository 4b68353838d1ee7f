package negotiate

import (
	"bytes"
	"net/http"
)

// bufferedWriter holds back everything a handler writes so the response can
// be rewritten after negotiation. Headers start as a copy of the destination
// writer's headers and replace them on flush.
type bufferedWriter struct {
	dst         http.ResponseWriter
	header      http.Header
	status      int
	wroteHeader bool
	written     bytes.Buffer

	payload Negotiable
}

func newBufferedWriter(w http.ResponseWriter) *bufferedWriter {
	h := w.Header().Clone()
	if h == nil {
		h = make(http.Header)
	}
	return &bufferedWriter{dst: w, header: h, status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.written.Write(p)
}

// Unwrap returns the underlying ResponseWriter (supports http.ResponseController).
func (b *bufferedWriter) Unwrap() http.ResponseWriter {
	return b.dst
}

// flush sends the buffered status, headers and bytes to the destination,
// followed by body.
func (b *bufferedWriter) flush(body any) error {
	h := b.dst.Header()
	for k := range h {
		delete(h, k)
	}
	for k, v := range b.header {
		h[k] = v
	}
	b.dst.WriteHeader(b.status)

	if b.written.Len() > 0 {
		if _, err := b.dst.Write(b.written.Bytes()); err != nil {
			return err
		}
	}
	return writeBody(b.dst, body)
}

// Render hands v to the negotiating Middleware wrapping w. The handler should
// not write a body of its own after calling it; bytes written before and
// after are sent ahead of the serialized payload. Render returns
// ErrNoNegotiator when w does not come from Middleware.
func Render(w http.ResponseWriter, v Negotiable) error {
	for {
		switch rw := w.(type) {
		case *bufferedWriter:
			rw.payload = v
			return nil
		case interface{ Unwrap() http.ResponseWriter }:
			w = rw.Unwrap()
		default:
			return ErrNoNegotiator
		}
	}
}
