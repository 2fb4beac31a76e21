package cluster

import "sort"

// skillMode returns the most frequent skill level among cluster members.
// Ties resolve to the lexicographically smallest value so repeated runs over
// the same membership agree.
func skillMode(skills []string) string {
	if len(skills) == 0 {
		return ""
	}
	counts := make(map[string]int, len(skills))
	for _, skill := range skills {
		if skill == "" {
			continue
		}
		counts[skill]++
	}
	if len(counts) == 0 {
		return ""
	}
	candidates := make([]string, 0, len(counts))
	for skill := range counts {
		candidates = append(candidates, skill)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}
