// internal/allocation/summary.go
package allocation

import (
	"math"
	"sort"
)

// topReasonsLimit caps the reason leaderboard in a Summary.
const topReasonsLimit = 5

// Summarize produces an at-a-glance report over one result set for logging
// and dashboards. An empty input yields a zero Summary, not an error.
func Summarize(results []AllocationResult) Summary {
	s := Summary{
		Total:      len(results),
		TopReasons: []string{},
	}
	if len(results) == 0 {
		return s
	}

	scoreSum := 0
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0

	for _, r := range results {
		scoreSum += r.Score
		switch r.Priority {
		case PriorityHigh:
			s.High++
		case PriorityMedium:
			s.Medium++
		default:
			s.Low++
		}
		for _, reason := range r.Reasons {
			if _, seen := firstSeen[reason]; !seen {
				firstSeen[reason] = order
				order++
			}
			counts[reason]++
		}
	}

	s.AverageScore = int(math.Round(float64(scoreSum) / float64(len(results))))

	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	// Frequency descending; first-encountered order breaks ties.
	sort.SliceStable(reasons, func(i, j int) bool {
		if counts[reasons[i]] != counts[reasons[j]] {
			return counts[reasons[i]] > counts[reasons[j]]
		}
		return firstSeen[reasons[i]] < firstSeen[reasons[j]]
	})

	if len(reasons) > topReasonsLimit {
		reasons = reasons[:topReasonsLimit]
	}
	s.TopReasons = reasons
	return s
}
