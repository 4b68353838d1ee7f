package negotiate

import (
	"errors"
	"fmt"
	"net/http"
)

// notAcceptableBody is the body of every 406 response written by this package.
const notAcceptableBody = "406 Not Acceptable"

// Negotiation errors.
var (
	// ErrNotAcceptable means the Accept header matched no registered format.
	// Adapters answer it with 406 instead of returning it.
	ErrNotAcceptable error = &HTTPError{Status: http.StatusNotAcceptable, Message: notAcceptableBody}

	// ErrUnknownFormat means a mimetype was chosen that has no serializer
	// format, typically a default or wildcard mimetype that was never
	// registered.
	ErrUnknownFormat = errors.New("no serializer format for mimetype")

	// ErrNoNegotiator is returned by Render when the ResponseWriter does not
	// come from Middleware.
	ErrNoNegotiator = errors.New("response writer is not wrapped by negotiate middleware")

	// ErrUnsupportedBody means a handler returned a body value the adapters
	// cannot write.
	ErrUnsupportedBody = errors.New("unsupported response body")
)

// SerializeError reports a payload that refused to serialize into the
// negotiated format. The registry should make this impossible, so it is
// surfaced rather than recovered from.
type SerializeError struct {
	Mimetype string
	Format   string
	Err      error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serialize %s as %q: %v", e.Mimetype, e.Format, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message. View
// handlers return it to answer with that status.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// ErrorHandler writes the response for an error raised by a handler or by
// negotiation itself.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
