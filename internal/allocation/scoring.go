// internal/allocation/scoring.go
package allocation

import (
	"math"
	"strings"
)

// defaultMonthlyLeadLimit applies when a provider has no configured limit.
const defaultMonthlyLeadLimit = 50

// Subscores are the seven 0-100 component scores behind a composite. They
// are surfaced in worker output for diagnostics but never re-enter scoring.
type Subscores struct {
	LocationMatch    int `json:"locationMatch"`
	ServiceMatch     int `json:"serviceMatch"`
	Availability     int `json:"availability"`
	Rating           int `json:"rating"`
	ResponseTime     int `json:"responseTime"`
	SubscriptionTier int `json:"subscriptionTier"`
	Workload         int `json:"workload"`
}

// Score computes the composite 0-100 score for one provider. Scoring never
// fails: missing optional fields fall back to documented defaults.
func (e *Engine) Score(lead Lead, p ProviderProfile) (int, Subscores) {
	sub := Subscores{
		LocationMatch:    e.locationScore(lead, p),
		ServiceMatch:     e.serviceScore(lead, p),
		Availability:     e.availabilityScore(p),
		Rating:           e.ratingScore(p),
		ResponseTime:     e.responseTimeScore(p),
		SubscriptionTier: e.tierScore(p),
		Workload:         e.workloadScore(p),
	}

	composite := float64(sub.LocationMatch)*float64(e.criteria.LocationMatch)/100 +
		float64(sub.ServiceMatch)*float64(e.criteria.ServiceMatch)/100 +
		float64(sub.Availability)*float64(e.criteria.Availability)/100 +
		float64(sub.Rating)*float64(e.criteria.Rating)/100 +
		float64(sub.ResponseTime)*float64(e.criteria.ResponseTime)/100 +
		float64(sub.SubscriptionTier)*float64(e.criteria.SubscriptionTier)/100 +
		float64(sub.Workload)*float64(e.criteria.Workload)/100

	// The boost can push the raw sum above 100, which is why the final
	// clamp is mandatory.
	composite *= 1 + e.hybridBoost(lead, p)

	return clampScore(int(math.Round(composite))), sub
}

func (e *Engine) locationScore(lead Lead, p ProviderProfile) int {
	suburb := strings.ToLower(strings.TrimSpace(lead.Suburb))
	city := strings.ToLower(strings.TrimSpace(lead.City))

	contains := func(target string) bool {
		if target == "" {
			return false
		}
		for _, area := range p.ServiceAreas {
			if strings.Contains(strings.ToLower(area), target) {
				return true
			}
		}
		return false
	}

	switch {
	case contains(suburb):
		return 100
	case contains(city):
		return 80
	case contains(firstToken(suburb)):
		return 60
	default:
		return 40
	}
}

// serviceScore is a constant: category-to-specialty matching is not modeled
// yet, so every eligible provider gets the same neutral-positive value.
func (e *Engine) serviceScore(Lead, ProviderProfile) int {
	return 85
}

func (e *Engine) availabilityScore(p ProviderProfile) int {
	hours := e.now().Sub(p.UpdatedAt).Hours()
	switch {
	case hours < 1:
		return 100
	case hours < 24:
		return 90
	case hours < 72:
		return 70
	default:
		return 50
	}
}

func (e *Engine) ratingScore(p ProviderProfile) int {
	if p.TotalReviews == 0 {
		// Neutral: a new provider is not penalized for lack of data.
		return 50
	}
	switch {
	case p.AverageRating >= 4.8:
		return 100
	case p.AverageRating >= 4.5:
		return 90
	case p.AverageRating >= 4.0:
		return 80
	case p.AverageRating >= 3.5:
		return 70
	case p.AverageRating >= 3.0:
		return 60
	default:
		return 40
	}
}

func (e *Engine) responseTimeScore(p ProviderProfile) int {
	switch {
	case p.ResponseTimeHours <= 1:
		return 100
	case p.ResponseTimeHours <= 2:
		return 90
	case p.ResponseTimeHours <= 4:
		return 80
	case p.ResponseTimeHours <= 8:
		return 70
	case p.ResponseTimeHours <= 24:
		return 60
	default:
		return 40
	}
}

func (e *Engine) tierScore(p ProviderProfile) int {
	switch p.SubscriptionTier {
	case TierEnterprise:
		return 100
	case TierPro:
		return 90
	case TierAdvanced:
		return 75
	case TierBasic:
		return 60
	default:
		return 30
	}
}

func (e *Engine) workloadScore(p ProviderProfile) int {
	limit := p.MonthlyLeadLimit
	if limit <= 0 {
		limit = defaultMonthlyLeadLimit
	}
	utilization := float64(p.LeadsUsedThisMonth) / float64(limit) * 100
	switch {
	case utilization < 50:
		return 100
	case utilization < 70:
		return 80
	case utilization < 90:
		return 60
	default:
		return 40
	}
}

// hybridBoost is a rule-based multiplicative nudge, not a learned model:
// a high-quality lead paired with a highly rated provider gets a small lift.
func (e *Engine) hybridBoost(lead Lead, p ProviderProfile) float64 {
	quality := lead.Quality()
	switch {
	case quality > 80 && p.AverageRating > 4.5:
		return 0.10
	case quality > 60 && p.AverageRating > 4.0:
		return 0.05
	default:
		return 0
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
