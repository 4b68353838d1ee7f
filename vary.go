package negotiate

import (
	"net/http"
	"sort"
	"strings"
)

// MergeVary makes sure h varies on Accept. Every Vary value, under any
// spelling of the header name, is split on commas and de-duplicated. Accept
// is appended unless the list already names it or is "*"; in that case h is
// left as it was.
func MergeVary(h http.Header) {
	var keys []string
	for key := range h {
		if strings.EqualFold(key, "Vary") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var (
		tokens []string
		seen   = make(map[string]struct{})
	)
	for _, key := range keys {
		for _, v := range h[key] {
			for _, tok := range strings.Split(v, ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				tokens = append(tokens, tok)
			}
		}
	}

	for _, tok := range tokens {
		if tok == "*" || strings.EqualFold(tok, "accept") {
			return
		}
	}

	setHeader(h, "Vary", strings.Join(append(tokens, "Accept"), ", "))
}

// setHeader replaces every spelling of key in h with a single value.
func setHeader(h http.Header, key, value string) {
	deleteHeader(h, key)
	h.Set(key, value)
}

// deleteHeader removes key from h under any spelling, including keys written
// to the map directly without canonicalization.
func deleteHeader(h http.Header, key string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
}
