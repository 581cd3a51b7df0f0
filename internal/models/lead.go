// internal/models/lead.go
package models

import "leadalloc-workers/internal/allocation"

// Lead is the full marketplace lead record. The allocation engine consumes
// only a narrow projection of it (suburb, city, verification score); the
// remaining fields belong to the surrounding system.
type Lead struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customerId"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	LocationSuburb    string `json:"locationSuburb"`
	LocationCity      string `json:"locationCity"`
	BudgetMin         int    `json:"budgetMin"`
	BudgetMax         int    `json:"budgetMax"`
	Urgency           string `json:"urgency"` // "asap", "this_week", "flexible"
	VerificationScore *int   `json:"verificationScore,omitempty"`
	MaxProviders      int    `json:"maxProviders"`
	Status            string `json:"status"` // "pending", "verified", "allocated", "closed"
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

// AllocationView projects the record onto the engine's lead input.
func (l Lead) AllocationView() allocation.Lead {
	return allocation.Lead{
		ID:                l.ID,
		Suburb:            l.LocationSuburb,
		City:              l.LocationCity,
		VerificationScore: l.VerificationScore,
	}
}
