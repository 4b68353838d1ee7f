package negotiate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatTable is the file form of a selector's configuration.
//
//	default_mimetype: application/rdf+xml
//	wildcard_mimetype: text/plain
//	formats:
//	  - mimetype: text/plain
//	    format: turtle
//	  - mimetype: application/trig
//	    format: trig
//	    requires_context: true
type FormatTable struct {
	DefaultMimetype  string        `yaml:"default_mimetype,omitempty"  json:"default_mimetype,omitempty"`
	WildcardMimetype string        `yaml:"wildcard_mimetype,omitempty" json:"wildcard_mimetype,omitempty"`
	Formats          []FormatEntry `yaml:"formats"                     json:"formats"`
}

// LoadFormats decodes a YAML format table from r. Unknown keys are rejected.
// An empty document yields an empty table.
func LoadFormats(r io.Reader) (*FormatTable, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t FormatTable
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode format table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// ReadFormatsFile loads a YAML format table from path.
func ReadFormatsFile(path string) (*FormatTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open format table: %w", err)
	}
	defer f.Close()

	t, err := LoadFormats(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate checks that every mimetype is a type/subtype pair and every entry
// names a format.
func (t *FormatTable) Validate() error {
	var errs []error
	for _, m := range []struct{ key, value string }{
		{"default_mimetype", t.DefaultMimetype},
		{"wildcard_mimetype", t.WildcardMimetype},
	} {
		if m.value != "" && !validMimetype(m.value) {
			errs = append(errs, fmt.Errorf("%s: invalid mimetype %q", m.key, m.value))
		}
	}
	for i, e := range t.Formats {
		if !validMimetype(e.Mimetype) {
			errs = append(errs, fmt.Errorf("formats[%d]: invalid mimetype %q", i, e.Mimetype))
		}
		if strings.TrimSpace(e.Format) == "" {
			errs = append(errs, fmt.Errorf("formats[%d]: missing format", i))
		}
	}
	return errors.Join(errs...)
}

func validMimetype(m string) bool {
	typ, subtype, ok := strings.Cut(m, "/")
	return ok && typ != "" && subtype != "" && !strings.ContainsAny(m, " ,;")
}

// Options converts the table into selector options.
func (t *FormatTable) Options() []SelectorOption {
	var opts []SelectorOption
	if t.DefaultMimetype != "" {
		opts = append(opts, WithDefaultMimetype(t.DefaultMimetype))
	}
	if t.WildcardMimetype != "" {
		opts = append(opts, WithWildcardMimetype(t.WildcardMimetype))
	}
	if len(t.Formats) > 0 {
		opts = append(opts, WithFormats(t.Formats...))
	}
	return opts
}

// Table returns the selector's effective configuration.
func (s *Selector) Table() *FormatTable {
	return &FormatTable{
		DefaultMimetype:  s.defaultMimetype,
		WildcardMimetype: s.wildcardMimetype,
		Formats:          s.Formats(),
	}
}

// WriteFormats writes the effective format table as YAML to w.
func (s *Selector) WriteFormats(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(s.Table())
}

// WriteFormatsJSON writes the effective format table as indented JSON to w.
func (s *Selector) WriteFormatsJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Table())
}

// FormatsHandler serves the effective format table, as JSON when the client
// asks for it and as YAML otherwise.
func (s *Selector) FormatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bestMatch([]string{"application/yaml", "application/json"}, acceptHeader(r)) == "application/json" {
			w.Header().Set("Content-Type", "application/json")
			//nolint:errcheck,gosec // best-effort after WriteHeader
			s.WriteFormatsJSON(w)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		s.WriteFormats(w)
	})
}
