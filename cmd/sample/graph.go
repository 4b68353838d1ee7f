package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/bjaus/negotiate"
)

const (
	base = "http://example.com/people/"
	foaf = "http://xmlns.com/foaf/0.1/"
)

type triple struct {
	subject, predicate, object string
	literal                     bool
}

// memGraph is a toy triple store that writes the formats in the built-in
// table. With a context it is a named graph and can also write N-Quads.
type memGraph struct {
	context string
	triples []triple
}

func (g *memGraph) ContextAware() bool { return g.context != "" }

func (g *memGraph) Serialize(format string) ([]byte, error) {
	var b strings.Builder
	switch format {
	case "nt":
		for _, t := range g.triples {
			fmt.Fprintf(&b, "%s %s %s .\n", iri(t.subject), iri(t.predicate), term(t))
		}
	case "nquads":
		if g.context == "" {
			return nil, errors.New("nquads needs a named graph")
		}
		for _, t := range g.triples {
			fmt.Fprintf(&b, "%s %s %s %s .\n", iri(t.subject), iri(t.predicate), term(t), iri(g.context))
		}
	case "turtle", "n3":
		fmt.Fprintf(&b, "@prefix foaf: <%s> .\n\n", foaf)
		for _, t := range g.triples {
			fmt.Fprintf(&b, "%s %s %s .\n", iri(t.subject), compact(t.predicate), term(t))
		}
	case "xml":
		b.WriteString(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:foaf="` + foaf + `">` + "\n")
		for _, t := range g.triples {
			fmt.Fprintf(&b, "  <rdf:Description rdf:about=%q><%s>%s</%s></rdf:Description>\n",
				t.subject, compact(t.predicate), escape(t.object), compact(t.predicate))
		}
		b.WriteString("</rdf:RDF>\n")
	case "trix":
		b.WriteString(`<TriX xmlns="http://www.w3.org/2004/03/trix/trix-1/"><graph>` + "\n")
		for _, t := range g.triples {
			kind := "uri"
			if t.literal {
				kind = "plainLiteral"
			}
			fmt.Fprintf(&b, "  <triple><uri>%s</uri><uri>%s</uri><%s>%s</%s></triple>\n",
				escape(t.subject), escape(t.predicate), kind, escape(t.object), kind)
		}
		b.WriteString("</graph></TriX>\n")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return []byte(b.String()), nil
}

func iri(s string) string { return "<" + s + ">" }

func term(t triple) string {
	if t.literal {
		return fmt.Sprintf("%q", t.object)
	}
	return iri(t.object)
}

func compact(predicate string) string {
	return "foaf:" + strings.TrimPrefix(predicate, foaf)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type store struct {
	mu     sync.RWMutex
	people map[string]int
}

func newStore() *store {
	return &store{people: map[string]int{"alice": 31, "bob": 27}}
}

func (s *store) lookup(name string) (*memGraph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	age, ok := s.people[name]
	if !ok {
		return nil, false
	}
	return &memGraph{triples: personTriples(name, age)}, true
}

func personTriples(name string, age int) []triple {
	subject := base + name
	return []triple{
		{subject: subject, predicate: foaf + "name", object: name, literal: true},
		{subject: subject, predicate: foaf + "age", object: fmt.Sprint(age), literal: true},
	}
}

// person is a view: it never sees the ResponseWriter.
func (s *store) person(r *http.Request) (any, error) {
	g, ok := s.lookup(r.PathValue("name"))
	if !ok {
		return nil, negotiate.Errorf(http.StatusNotFound, "no person named %q", r.PathValue("name"))
	}
	return g, nil
}

// graph writes the whole store as a named graph through the low-level adapter.
func (s *store) graph(w http.ResponseWriter, _ *http.Request) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.people))
	for name := range s.people {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &memGraph{context: base}
	for _, name := range names {
		g.triples = append(g.triples, personTriples(name, s.people[name])...)
	}

	w.Header().Set("Cache-Control", "no-cache")
	return g
}
