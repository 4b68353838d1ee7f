package negotiate

// Test-only exports for internal functions.
var (
	BestMatch        = bestMatch
	WildcardSentinel = wildcardSentinel
)

// MediaRange is a parsed Accept clause as seen by the tests.
type MediaRange struct {
	Type    string
	Subtype string
	Q       float64
	Pos     int
}

// ParseAccept exposes parseAccept with exported fields.
func ParseAccept(header string) []MediaRange {
	var out []MediaRange
	for _, r := range parseAccept(header) {
		out = append(out, MediaRange{Type: r.typ, Subtype: r.subtype, Q: r.q, Pos: r.pos})
	}
	return out
}
