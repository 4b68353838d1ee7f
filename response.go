package negotiate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Result is what a View handler returns when a bare payload is not enough:
// the payload plus a status code, extra headers, or both. A zero Status means
// 200. Header names are matched case-insensitively and written in canonical
// form.
type Result struct {
	Payload any
	Status  int
	Header  http.Header
}

// Bare returns a Result carrying only payload.
func Bare(payload any) Result {
	return Result{Payload: payload}
}

// WithStatus returns a Result answering with status.
func WithStatus(payload any, status int) Result {
	return Result{Payload: payload, Status: status}
}

// WithHeaders returns a Result answering with status and the extra headers
// in header.
func WithHeaders(payload any, status int, header http.Header) Result {
	return Result{Payload: payload, Status: status, Header: header}
}

// asResult normalizes a View handler's return value.
func asResult(v any) (Result, bool) {
	switch r := v.(type) {
	case Result:
		return r, true
	case *Result:
		if r != nil {
			return *r, true
		}
	}
	return Result{}, false
}

// resultOf normalizes a View handler's outcome into a Result. Bodies that
// writeBody cannot write are rejected here, before anything reaches the
// client.
func resultOf(v any) (Result, error) {
	res, ok := asResult(v)
	if !ok {
		res = Bare(v)
	}
	if !bodySupported(res.Payload) {
		return Result{}, fmt.Errorf("%w: %T", ErrUnsupportedBody, res.Payload)
	}
	return res, nil
}

// writeResult writes res to w. The status line is always sent, so an error
// means the body was cut short.
func writeResult(w http.ResponseWriter, res Result) error {
	h := w.Header()
	for k := range res.Header {
		deleteHeader(h, k)
	}
	for k, values := range res.Header {
		for _, value := range values {
			h.Add(k, value)
		}
	}

	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	return writeBody(w, res.Payload)
}

// bodySupported reports whether writeBody can write v.
func bodySupported(v any) bool {
	switch v.(type) {
	case nil, []byte, string, [][]byte, io.Reader:
		return true
	default:
		return false
	}
}

// writeBody writes a pass-through or serialized body. Readers are drained
// and closed if they implement io.Closer.
func writeBody(w io.Writer, v any) error {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		_, err := w.Write(b)
		return err
	case string:
		_, err := io.WriteString(w, b)
		return err
	case [][]byte:
		for _, chunk := range b {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
		}
		return nil
	case io.Reader:
		_, err := io.Copy(w, b)
		if c, ok := b.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedBody, v)
	}
}

// closeBody releases a body that will not be written.
func closeBody(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}

// writeErrorResponse writes an error as an RFC 9457 problem details response.
func writeErrorResponse(w http.ResponseWriter, err error) {
	status := ErrorStatus(err)

	// If the error is already a ProblemDetail, use it directly.
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(pd.Status)
		//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(pd)
		return
	}

	problem := &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: err.Error(),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(problem)
}
