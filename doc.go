// Package negotiate serializes graph-like handler results into the
// representation a client asks for. Handlers return a Negotiable payload; the
// package reads the request's Accept header, picks a mimetype from a format
// registry, asks the payload to serialize itself in the matching format and
// splices the bytes back into the response. Anything that is not Negotiable
// passes through untouched.
//
// The format registry is a two-layer Selector. The process-wide registry,
// reached through Default, starts with the built-in RDF formats; selectors
// created with NewSelector add instance-level formats on top of it without
// changing what other selectors see:
//
//	sel := negotiate.NewSelector(negotiate.WithWildcardMimetype("text/plain"))
//	sel.RegisterFormat("text/plain", "turtle", false)
//
// A Negotiator ties a selector to logging, metrics and tracing hooks and
// provides the net/http adapters:
//
//	n := negotiate.New(negotiate.WithSelector(sel))
//	mux.Handle("GET /people/{id}", n.View(func(r *http.Request) (any, error) {
//	    return loadPerson(r.PathValue("id"))
//	}))
//
// View handlers may also return a Result to set a status code or extra
// headers alongside the payload. Wrap suits handlers that write their own
// status and headers, and Middleware composes with ordinary http.Handlers that
// hand their payload over with Render.
//
// An empty Accept header always yields the default mimetype
// (application/rdf+xml). A header matching no registered format yields
// 406 Not Acceptable.
//
// Format registration is configuration: register formats before serving
// traffic.
package negotiate
