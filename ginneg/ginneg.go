// Package ginneg negotiates gin handler results.
//
// Handlers return the payload instead of rendering it; Handler serializes
// negotiable payloads into the format the client accepts and renders
// anything else the way gin normally would.
//
// gin names handlers by the function it is given, so route listings and
// c.HandlerName report the closure Handler returns. Use Name to log the
// wrapped function instead.
package ginneg

import (
	"context"
	"io"
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bjaus/negotiate"
)

// HandlerFunc is a gin handler that returns its response body.
type HandlerFunc func(c *gin.Context) any

// serialized is a negotiated body ready to render.
type serialized struct {
	body        []byte
	contentType string
}

// notAcceptable marks a result that must be answered with 406.
type notAcceptable struct{}

type hooks struct{}

func (hooks) Payload(v any) (negotiate.Negotiable, bool) {
	p, ok := v.(negotiate.Negotiable)
	return p, ok
}

func (hooks) Rebuild(_ any, body []byte, contentType string) any {
	return serialized{body: body, contentType: contentType}
}

func (hooks) NotAcceptable(any) any {
	return notAcceptable{}
}

func accept(c *gin.Context) string {
	return strings.Join(c.Request.Header.Values("Accept"), ", ")
}

// Handler adapts h to gin. The status set with c.Status before returning is
// kept. Negotiated responses carry "Vary: Accept"; 406 and pass-through
// responses do not. Negotiation failures abort the request with the error
// attached to the context.
func Handler(n *negotiate.Negotiator, h HandlerFunc) gin.HandlerFunc {
	decorated := negotiate.Decorate[*gin.Context, any](n, hooks{}, accept,
		func(_ context.Context, c *gin.Context) (any, error) {
			return h(c), nil
		},
	)

	return func(c *gin.Context) {
		out, err := decorated(c.Request.Context(), c)
		if err != nil {
			_ = c.AbortWithError(negotiate.ErrorStatus(err), err)
			return
		}
		render(c, out)
	}
}

func render(c *gin.Context, v any) {
	status := c.Writer.Status()

	switch b := v.(type) {
	case serialized:
		c.Header("Vary", "Accept")
		c.Data(status, b.contentType, b.body)
	case notAcceptable:
		c.String(http.StatusNotAcceptable, "406 Not Acceptable")
		c.Abort()
	case nil:
	case []byte:
		c.Data(status, http.DetectContentType(b), b)
	case string:
		c.String(status, "%s", b)
	case io.Reader:
		if rc, ok := b.(io.Closer); ok {
			defer rc.Close()
		}
		c.DataFromReader(status, -1, "application/octet-stream", b, nil)
	default:
		c.JSON(status, b)
	}
}

// Name returns the fully qualified name of h, the function a Handler wraps.
func Name(h HandlerFunc) string {
	if h == nil {
		return ""
	}
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return ""
	}
	return fn.Name()
}
