package negotiate

import (
	"strings"

	"github.com/munnerz/goautoneg"
)

// wildcardSentinel is appended to every candidate list. Only a */* clause
// matches it, so "the client accepts anything" comes out of bestMatch as a
// distinct result instead of whichever real mimetype happens to sort first.
const wildcardSentinel = "*/*"

// mediaRange is one clause of an Accept header.
type mediaRange struct {
	typ     string
	subtype string
	q       float64
	pos     int
}

// parseAccept splits an Accept header into media ranges, keeping each
// clause's position in the header. Clauses that are not type/subtype pairs
// are dropped. Quality is clamped to [0, 1].
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for i, clause := range strings.Split(header, ",") {
		parsed := goautoneg.ParseAccept(tidyParams(clause))
		if len(parsed) != 1 {
			continue
		}
		a := parsed[0]
		if a.Type == "" || a.SubType == "" {
			continue
		}
		ranges = append(ranges, mediaRange{
			typ:     strings.ToLower(a.Type),
			subtype: strings.ToLower(a.SubType),
			q:       min(max(a.Q, 0), 1),
			pos:     i,
		})
	}
	return ranges
}

// tidyParams trims the clause and the whitespace around each parameter's
// "=", which goautoneg would otherwise keep in the q value.
func tidyParams(clause string) string {
	parts := strings.Split(strings.TrimSpace(clause), ";")
	for i, p := range parts {
		if k, v, ok := strings.Cut(p, "="); ok {
			parts[i] = strings.TrimSpace(k) + "=" + strings.TrimSpace(v)
		}
	}
	return strings.Join(parts, ";")
}

// fitness scores how specifically r names candidate: 100 for an exact type,
// 10 for an exact subtype. It returns -1 when r does not match.
func (r mediaRange) fitness(candidate string) int {
	if candidate == wildcardSentinel {
		if r.typ == "*" && r.subtype == "*" {
			return 0
		}
		return -1
	}

	typ, subtype, ok := strings.Cut(strings.ToLower(candidate), "/")
	if !ok {
		return -1
	}

	score := 0
	switch r.typ {
	case typ:
		score += 100
	case "*":
	default:
		return -1
	}
	switch r.subtype {
	case subtype:
		score += 10
	case "*":
	default:
		return -1
	}
	return score
}

type matchScore struct {
	q       float64
	fitness int
	pos     int
}

// beats reports whether s is strictly preferred over o.
func (s matchScore) beats(o matchScore) bool {
	if s.q != o.q {
		return s.q > o.q
	}
	if s.fitness != o.fitness {
		return s.fitness > o.fitness
	}
	return s.pos < o.pos
}

// scoreCandidate returns the quality the header gives candidate: the q of the most
// specific clause matching it, the earliest such clause on a tie.
func scoreCandidate(candidate string, ranges []mediaRange) (matchScore, bool) {
	best := matchScore{fitness: -1}
	for _, r := range ranges {
		if f := r.fitness(candidate); f > best.fitness {
			best = matchScore{q: r.q, fitness: f, pos: r.pos}
		}
	}
	return best, best.fitness >= 0
}

// bestMatch returns the candidate the Accept header prefers, or "" when it
// accepts none. Higher quality wins, then the more specific clause, then the
// clause listed first in the header. Candidates that still tie go to the one
// listed last, which is how the trailing wildcardSentinel wins a bare */*.
func bestMatch(candidates []string, header string) string {
	ranges := parseAccept(header)
	if len(ranges) == 0 {
		return ""
	}

	var (
		best      string
		bestScore matchScore
		found     bool
	)
	for _, c := range candidates {
		s, ok := scoreCandidate(c, ranges)
		if !ok || s.q <= 0 {
			continue
		}
		if !found || !bestScore.beats(s) {
			best, bestScore, found = c, s, true
		}
	}
	return best
}
