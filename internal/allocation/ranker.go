// internal/allocation/ranker.go
package allocation

import (
	"fmt"
	"sort"
)

// PriorityForScore derives the triage bucket from a composite score.
func PriorityForScore(score int) Priority {
	switch {
	case score >= 85:
		return PriorityHigh
	case score >= 70:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rank scores every eligible provider, sorts descending and truncates to
// maxResults (DefaultMaxResults when not positive). Ties keep their input
// order: sort.SliceStable's guarantee makes the ordering reproducible
// without a secondary key.
func (e *Engine) Rank(lead Lead, eligible []ProviderProfile, maxResults int) []AllocationResult {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	results := make([]AllocationResult, 0, len(eligible))
	for _, p := range eligible {
		score, sub := e.Score(lead, p)
		results = append(results, AllocationResult{
			ProviderID: p.ID,
			Score:      score,
			Reasons:    e.buildReasons(lead, p, sub),
			Priority:   PriorityForScore(score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// buildReasons re-evaluates qualitative thresholds in a fixed order. The
// strings are purely descriptive; they never feed back into the score.
func (e *Engine) buildReasons(lead Lead, p ProviderProfile, sub Subscores) []string {
	var reasons []string

	if sub.LocationMatch >= 90 {
		reasons = append(reasons, "Perfect location match")
	} else if sub.LocationMatch >= 70 {
		reasons = append(reasons, "Good location match")
	}

	if p.AverageRating >= 4.8 {
		reasons = append(reasons, "Excellent rating")
	} else if p.AverageRating >= 4.5 {
		reasons = append(reasons, "High rating")
	}

	if p.ResponseTimeHours <= 2 {
		reasons = append(reasons, "Fast response time")
	}

	if p.SubscriptionTier != "" {
		reasons = append(reasons, fmt.Sprintf("%s subscriber", p.SubscriptionTier))
	}

	if e.now().Sub(p.UpdatedAt).Hours() < 1 {
		reasons = append(reasons, "Currently active")
	}

	return reasons
}
