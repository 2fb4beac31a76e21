// Package suggest generates conservative build suggestions from mature
// topic clusters. Suggestions only flow once the knowledge base holds enough
// material to ground them.
package suggest

// Gate thresholds. All must be met before any suggestion is generated.
const (
	MinDocuments     = 5
	MinConcepts      = 10
	MinContentLength = 2000
)

// MinClusterMembers is the smallest cluster that can back a suggestion.
const MinClusterMembers = 2

// Stats is the corpus snapshot the gate evaluates.
type Stats struct {
	Documents        int `json:"documents"`
	DistinctConcepts int `json:"distinct_concepts"`
	ContentLength    int `json:"content_length"`
}

// GateOpen reports whether the knowledge base is mature enough for
// suggestions. Thresholds are inclusive: a corpus exactly at every minimum
// opens the gate.
func GateOpen(s Stats) bool {
	return s.Documents >= MinDocuments &&
		s.DistinctConcepts >= MinConcepts &&
		s.ContentLength >= MinContentLength
}

// Unmet lists the thresholds the corpus still misses, for reporting back to
// the caller instead of a bare refusal.
func Unmet(s Stats) []string {
	unmet := make([]string, 0, 3)
	if s.Documents < MinDocuments {
		unmet = append(unmet, "documents")
	}
	if s.DistinctConcepts < MinConcepts {
		unmet = append(unmet, "distinct_concepts")
	}
	if s.ContentLength < MinContentLength {
		unmet = append(unmet, "content_length")
	}
	return unmet
}
