// Package negtest provides test helpers for the negotiate package: a fake
// negotiable graph and an HTTP client that sends Accept headers.
package negtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

// ErrFormat is returned by Graph.Serialize for formats the graph does not
// support.
var ErrFormat = errors.New("negtest: unsupported format")

// Graph is a stand-in for an RDF graph. It serializes to "<format>:<body>"
// so tests can tell which format was chosen.
type Graph struct {
	Context bool
	Body    string
	Formats []string

	// Calls counts Serialize invocations.
	Calls int
}

// Triple formats every graph supports.
var tripleFormats = []string{"turtle", "xml", "trix", "nt", "n3"}

// NewGraph returns a contextless graph supporting the built-in triple
// formats.
func NewGraph(body string) *Graph {
	return &Graph{Body: body, Formats: slices.Clone(tripleFormats)}
}

// NewContextGraph returns a context-aware graph that can also produce
// N-Quads.
func NewContextGraph(body string) *Graph {
	return &Graph{Context: true, Body: body, Formats: append(slices.Clone(tripleFormats), "nquads")}
}

// ContextAware reports whether the graph carries named-graph context.
func (g *Graph) ContextAware() bool { return g.Context }

// Serialize renders the graph in format.
func (g *Graph) Serialize(format string) ([]byte, error) {
	g.Calls++
	if !slices.Contains(g.Formats, format) {
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	return []byte(format + ":" + g.Body), nil
}

// Serialized returns what Serialize produces for format, without counting
// the call.
func (g *Graph) Serialized(format string) string {
	return format + ":" + g.Body
}

// Client wraps an httptest.Server for convenient negotiation testing.
type Client struct {
	Server *httptest.Server
}

// NewClient creates a test client serving h.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds a fully read response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Get sends a GET request with the given Accept header. An empty accept
// sends no Accept header at all.
func Get(t testing.TB, c *Client, path, accept string) *Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("negtest: create request: %v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("negtest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("negtest: close body: %v", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("negtest: read body: %v", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}
}
