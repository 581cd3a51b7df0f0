// internal/models/provider.go
package models

import (
	"time"

	"leadalloc-workers/internal/allocation"
)

// Provider is the stored provider record as the repositories scan it.
type Provider struct {
	ID                 string    `json:"id"`
	BusinessName       string    `json:"businessName"`
	VerificationStatus string    `json:"verificationStatus"` // "pending", "verified", "rejected", "suspended"
	ServiceAreas       []string  `json:"serviceAreas"`
	Categories         []string  `json:"categories"`
	AverageRating      float64   `json:"averageRating"`
	TotalReviews       int       `json:"totalReviews"`
	ResponseTimeHours  float64   `json:"responseTimeHours"`
	SubscriptionTier   string    `json:"subscriptionTier,omitempty"`
	CreditBalance      float64   `json:"creditBalance"`
	MonthlyLeadLimit   int       `json:"monthlyLeadLimit"`
	LeadsUsedThisMonth int       `json:"leadsUsedThisMonth"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// EngineProfile projects the stored record onto the narrow view the
// allocation engine scores against.
func (p Provider) EngineProfile() allocation.ProviderProfile {
	return allocation.ProviderProfile{
		ID:                 p.ID,
		VerificationStatus: allocation.VerificationStatus(p.VerificationStatus),
		ServiceAreas:       p.ServiceAreas,
		AverageRating:      p.AverageRating,
		TotalReviews:       p.TotalReviews,
		ResponseTimeHours:  p.ResponseTimeHours,
		SubscriptionTier:   p.SubscriptionTier,
		CreditBalance:      p.CreditBalance,
		MonthlyLeadLimit:   p.MonthlyLeadLimit,
		LeadsUsedThisMonth: p.LeadsUsedThisMonth,
		UpdatedAt:          p.UpdatedAt,
	}
}
