// internal/allocation/types.go
package allocation

import "time"

// VerificationStatus is the provider onboarding state.
type VerificationStatus string

const (
	StatusPending   VerificationStatus = "pending"
	StatusVerified  VerificationStatus = "verified"
	StatusRejected  VerificationStatus = "rejected"
	StatusSuspended VerificationStatus = "suspended"
)

// Subscription tiers, in ascending order of plan level. An empty tier means
// the provider pays per lead from their credit balance.
const (
	TierBasic      = "basic"
	TierAdvanced   = "advanced"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// Priority is the coarse triage bucket derived from the composite score.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Lead carries only the fields the engine reads. The surrounding system's
// lead record is much wider (budget, category, urgency); keeping the engine
// input narrow decouples it from that model.
type Lead struct {
	ID     string `json:"id"`
	Suburb string `json:"location_suburb"`
	City   string `json:"location_city"`
	// VerificationScore is the lead's own quality score, 0-100.
	// nil means unknown and is treated as 50.
	VerificationScore *int `json:"verification_score,omitempty"`
}

// Quality returns the lead verification score with the documented default.
func (l Lead) Quality() int {
	if l.VerificationScore == nil {
		return 50
	}
	return *l.VerificationScore
}

// ProviderProfile is the engine's read-only view of a provider.
type ProviderProfile struct {
	ID                 string             `json:"id"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	ServiceAreas       []string           `json:"service_areas"`
	AverageRating      float64            `json:"average_rating"`
	TotalReviews       int                `json:"total_reviews"`
	ResponseTimeHours  float64            `json:"response_time_hours"`
	// SubscriptionTier is empty for pay-per-lead providers.
	SubscriptionTier string  `json:"subscription_tier,omitempty"`
	CreditBalance    float64 `json:"credit_balance"`
	// MonthlyLeadLimit of 0 means unset; the engine assumes 50.
	MonthlyLeadLimit   int       `json:"monthly_lead_limit"`
	LeadsUsedThisMonth int       `json:"leads_used_this_month"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasAccess reports whether the provider can receive a lead at all: any
// subscription grants access regardless of balance, otherwise credits must
// be positive.
func (p ProviderProfile) HasAccess() bool {
	return p.SubscriptionTier != "" || p.CreditBalance > 0
}

// AllocationResult is one ranked, explained allocation entry.
type AllocationResult struct {
	ProviderID string   `json:"provider_id"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons"`
	Priority   Priority `json:"priority"`
}

// Summary is the portfolio-level report over one result set.
type Summary struct {
	Total        int      `json:"total"`
	High         int      `json:"high"`
	Medium       int      `json:"medium"`
	Low          int      `json:"low"`
	AverageScore int      `json:"averageScore"`
	TopReasons   []string `json:"topReasons"`
}
