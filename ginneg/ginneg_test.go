package ginneg_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/negotiate"
	"github.com/bjaus/negotiate/ginneg"
	"github.com/bjaus/negotiate/negtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	n := negotiate.New(negotiate.WithSelector(negotiate.NewRegistry()))

	r := gin.New()
	r.GET("/test", ginneg.Handler(n, func(*gin.Context) any {
		return negtest.NewGraph("person")
	}))
	r.GET("/ctx", ginneg.Handler(n, func(*gin.Context) any {
		return negtest.NewContextGraph("person")
	}))
	r.GET("/created", ginneg.Handler(n, func(c *gin.Context) any {
		c.Status(http.StatusCreated)
		c.Header("CustomHeader", "yes")
		return negtest.NewGraph("person")
	}))
	r.GET("/text", ginneg.Handler(n, func(*gin.Context) any {
		return "This is a test string"
	}))
	r.GET("/json", ginneg.Handler(n, func(*gin.Context) any {
		return gin.H{"name": "person"}
	}))
	r.GET("/nil", ginneg.Handler(n, func(c *gin.Context) any {
		c.String(http.StatusAccepted, "written directly")
		return nil
	}))
	return r
}

func do(r http.Handler, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_negotiates(t *testing.T) {
	t.Parallel()

	r := newEngine()

	tests := map[string]struct {
		path         string
		accept       string
		expectStatus int
		expectBody   string
		expectType   string
	}{
		"simple": {
			path:         "/test",
			accept:       "text/n3;q=0.5, text/turtle;q=0.9",
			expectStatus: http.StatusOK,
			expectBody:   "turtle:person",
			expectType:   "text/turtle; charset=utf-8",
		},
		"quads with context": {
			path:         "/ctx",
			accept:       "text/turtle;q=0.4, application/n-quads;q=0.9",
			expectStatus: http.StatusOK,
			expectBody:   "nquads:person",
			expectType:   "application/n-quads",
		},
		"quads unavailable": {
			path:         "/test",
			accept:       "text/turtle;q=0.4, application/n-quads;q=0.9",
			expectStatus: http.StatusOK,
			expectBody:   "turtle:person",
			expectType:   "text/turtle; charset=utf-8",
		},
		"empty accept": {
			path:         "/test",
			expectStatus: http.StatusOK,
			expectBody:   "xml:person",
			expectType:   "application/rdf+xml",
		},
		"custom status": {
			path:         "/created",
			accept:       "application/n-triples",
			expectStatus: http.StatusCreated,
			expectBody:   "nt:person",
			expectType:   "application/n-triples",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			w := do(r, tc.path, tc.accept)

			assert.Equal(t, tc.expectStatus, w.Code)
			assert.Equal(t, tc.expectBody, w.Body.String())
			assert.Equal(t, tc.expectType, w.Header().Get("Content-Type"))
			assert.Equal(t, "Accept", w.Header().Get("Vary"))
		})
	}
}

func TestHandler_keeps_handler_headers(t *testing.T) {
	t.Parallel()

	w := do(newEngine(), "/created", "text/turtle")

	assert.Equal(t, "yes", w.Header().Get("CustomHeader"))
}

func TestHandler_not_acceptable(t *testing.T) {
	t.Parallel()

	w := do(newEngine(), "/test", "text/html")

	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.Equal(t, "406 Not Acceptable", w.Body.String())
	assert.Empty(t, w.Header().Get("Vary"))
}

func TestHandler_pass_through(t *testing.T) {
	t.Parallel()

	r := newEngine()

	w := do(r, "/text", "text/turtle")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "This is a test string", w.Body.String())
	assert.Empty(t, w.Header().Get("Vary"))

	w = do(r, "/json", "text/turtle")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"person"}`, w.Body.String())

	w = do(r, "/nil", "text/turtle")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "written directly", w.Body.String())
}

func TestHandler_serialize_failure_aborts(t *testing.T) {
	t.Parallel()

	n := negotiate.New(negotiate.WithSelector(negotiate.NewRegistry()))

	var errs []*gin.Error
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		errs = c.Errors
	})
	r.GET("/broken", ginneg.Handler(n, func(*gin.Context) any {
		return &negtest.Graph{Body: "person"}
	}))

	w := do(r, "/broken", "text/turtle")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, errs, 1)

	var serr *negotiate.SerializeError
	require.ErrorAs(t, errs[0].Err, &serr)
	assert.Equal(t, "text/turtle", serr.Mimetype)
	assert.Equal(t, "turtle", serr.Format)
}

func showPerson(*gin.Context) any { return negtest.NewGraph("person") }

func TestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "github.com/bjaus/negotiate/ginneg_test.showPerson", ginneg.Name(showPerson))
	assert.Empty(t, ginneg.Name(nil))
}
