package negotiate

import (
	"fmt"
	"strings"
	"sync"
)

// Mimetypes used when the Accept header does not pick a registered format.
const (
	// DefaultMimetype answers requests without an Accept header.
	DefaultMimetype = "application/rdf+xml"
	// DefaultWildcardMimetype answers requests whose Accept header only
	// matched */*.
	DefaultWildcardMimetype = DefaultMimetype
)

// FormatEntry maps a response mimetype to the serializer format that
// produces it. RequiresContext marks formats, such as N-Quads, that only
// context-aware payloads can produce.
type FormatEntry struct {
	Mimetype        string `yaml:"mimetype"                   json:"mimetype"`
	Format          string `yaml:"format"                     json:"format"`
	RequiresContext bool   `yaml:"requires_context,omitempty" json:"requires_context,omitempty"`
}

// BuiltinFormats returns the format table every root registry starts with.
func BuiltinFormats() []FormatEntry {
	return []FormatEntry{
		{Mimetype: "application/x-turtle", Format: "turtle"},
		{Mimetype: "text/turtle", Format: "turtle"},
		{Mimetype: "application/rdf+xml", Format: "xml"},
		{Mimetype: "application/trix", Format: "trix"},
		{Mimetype: "application/n-quads", Format: "nquads", RequiresContext: true},
		{Mimetype: "application/n-triples", Format: "nt"},
		{Mimetype: "text/n-triples", Format: "nt"},
		{Mimetype: "text/rdf+nt", Format: "nt"},
		{Mimetype: "application/n3", Format: "n3"},
		{Mimetype: "text/n3", Format: "n3"},
		{Mimetype: "text/rdf+n3", Format: "n3"},
	}
}

// Decision is a negotiated representation: the response mimetype and the
// serializer format that produces it.
type Decision struct {
	Mimetype string
	Format   string
}

// Selector is a format registry with the negotiation algorithm on top.
//
// A selector may have a parent. Matching always considers the formats of
// every layer, parent first; format lookup prefers the nearest layer, so a
// selector can override a parent's format for a mimetype without removing
// the parent's entry.
//
// Registration is meant for start-up. Selectors are safe for concurrent use,
// but a registration racing live requests makes their outcome depend on
// timing.
type Selector struct {
	parent *Selector

	defaultMimetype  string
	wildcardMimetype string

	mu      sync.RWMutex
	formats map[string]FormatEntry
	order   []string
	all     []string
	ctxless []string
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithDefaultMimetype sets the mimetype returned for an empty Accept header.
func WithDefaultMimetype(mimetype string) SelectorOption {
	return func(s *Selector) {
		s.defaultMimetype = mimetype
	}
}

// WithWildcardMimetype sets the mimetype returned when the Accept header only
// matched */*.
func WithWildcardMimetype(mimetype string) SelectorOption {
	return func(s *Selector) {
		s.wildcardMimetype = mimetype
	}
}

// WithFormats registers formats on the selector being built.
func WithFormats(entries ...FormatEntry) SelectorOption {
	return func(s *Selector) {
		for _, e := range entries {
			s.register(e)
		}
	}
}

// WithParent layers the selector over p. A nil parent makes a standalone
// selector.
func WithParent(p *Selector) SelectorOption {
	return func(s *Selector) {
		s.parent = p
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Selector
)

// Default returns the process-wide registry. It is built on first use with
// the built-in formats and is the parent of every selector made by
// NewSelector.
func Default() *Selector {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry returns a root selector seeded with BuiltinFormats. Use it for
// a registry isolated from Default.
func NewRegistry(opts ...SelectorOption) *Selector {
	s := newSelector()
	for _, e := range BuiltinFormats() {
		s.register(e)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSelector returns an instance selector layered over Default. Formats
// registered on it are invisible to Default and to other selectors.
func NewSelector(opts ...SelectorOption) *Selector {
	s := newSelector()
	s.parent = Default()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newSelector() *Selector {
	return &Selector{
		defaultMimetype:  DefaultMimetype,
		wildcardMimetype: DefaultWildcardMimetype,
		formats:          make(map[string]FormatEntry),
	}
}

// RegisterFormat adds or replaces the format for mimetype on this selector.
// Registering the same entry twice is a no-op.
func (s *Selector) RegisterFormat(mimetype, format string, requiresContext bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(FormatEntry{Mimetype: mimetype, Format: format, RequiresContext: requiresContext})
}

// register upserts e and rebuilds the derived mimetype lists. Callers hold
// s.mu or own s exclusively.
func (s *Selector) register(e FormatEntry) {
	if _, ok := s.formats[e.Mimetype]; !ok {
		s.order = append(s.order, e.Mimetype)
	}
	s.formats[e.Mimetype] = e

	all := make([]string, 0, len(s.order))
	ctxless := make([]string, 0, len(s.order))
	for _, m := range s.order {
		all = append(all, m)
		if !s.formats[m].RequiresContext {
			ctxless = append(ctxless, m)
		}
	}
	s.all, s.ctxless = all, ctxless
}

// DefaultMimetype returns the mimetype used for an empty Accept header.
func (s *Selector) DefaultMimetype() string { return s.defaultMimetype }

// WildcardMimetype returns the mimetype used when only */* matched.
func (s *Selector) WildcardMimetype() string { return s.wildcardMimetype }

// DecideMimetype picks the response mimetype for an Accept header. Formats
// that require context are only considered when contextAware is true. It
// reports false when the header accepts none of the registered mimetypes.
func (s *Selector) DecideMimetype(accept string, contextAware bool) (string, bool) {
	if strings.TrimSpace(accept) == "" {
		return s.defaultMimetype, true
	}

	candidates := append(s.candidates(contextAware), wildcardSentinel)
	switch m := bestMatch(candidates, accept); m {
	case "":
		return "", false
	case wildcardSentinel:
		return s.wildcardMimetype, true
	default:
		return m, true
	}
}

// SerializeFormat returns the serializer format registered for mimetype,
// looking at this selector before its parents.
func (s *Selector) SerializeFormat(mimetype string) (string, bool) {
	for l := s; l != nil; l = l.parent {
		l.mu.RLock()
		e, ok := l.formats[mimetype]
		l.mu.RUnlock()
		if ok {
			return e.Format, true
		}
	}
	return "", false
}

// Decide negotiates both the mimetype and its serializer format. It returns
// ErrNotAcceptable when nothing registered satisfies the header, and an
// error wrapping ErrUnknownFormat when the chosen mimetype has no format,
// which means the selector is misconfigured.
func (s *Selector) Decide(accept string, contextAware bool) (Decision, error) {
	mimetype, ok := s.DecideMimetype(accept, contextAware)
	if !ok {
		return Decision{}, ErrNotAcceptable
	}
	format, ok := s.SerializeFormat(mimetype)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownFormat, mimetype)
	}
	return Decision{Mimetype: mimetype, Format: format}, nil
}

// WantsRDF reports whether the Accept header asks for one of the registered
// mimetypes specifically, as opposed to accepting anything through */*.
//
// Context-requiring formats always count, whatever the payload turns out to
// be.
func (s *Selector) WantsRDF(accept string) bool {
	m := bestMatch(append(s.candidates(true), wildcardSentinel), accept)
	return m != "" && m != wildcardSentinel
}

// Formats returns the effective format table: parent entries first, each
// mimetype listed once with the format of the nearest layer.
func (s *Selector) Formats() []FormatEntry {
	layers := s.layers()

	index := make(map[string]int)
	var out []FormatEntry
	for _, l := range layers {
		l.mu.RLock()
		for _, m := range l.order {
			e := l.formats[m]
			if i, ok := index[m]; ok {
				out[i] = e
				continue
			}
			index[m] = len(out)
			out = append(out, e)
		}
		l.mu.RUnlock()
	}
	return out
}

// candidates lists every matchable mimetype across all layers, root first.
func (s *Selector) candidates(contextAware bool) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range s.layers() {
		l.mu.RLock()
		list := l.ctxless
		if contextAware {
			list = l.all
		}
		for _, m := range list {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
		l.mu.RUnlock()
	}
	return out
}

// layers returns the selector chain from the root down to s.
func (s *Selector) layers() []*Selector {
	var chain []*Selector
	for l := s; l != nil; l = l.parent {
		chain = append(chain, l)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// RegisterFormat registers a format on the Default registry, making it
// available to every selector layered over it.
func RegisterFormat(mimetype, format string, requiresContext bool) {
	Default().RegisterFormat(mimetype, format, requiresContext)
}

// Decide negotiates against the Default registry.
func Decide(accept string, contextAware bool) (Decision, error) {
	return Default().Decide(accept, contextAware)
}
