// internal/workers/leads/allocate-providers/models.go
package allocateproviders

import "leadalloc-workers/internal/allocation"

type Input struct {
	Lead allocation.Lead `json:"lead"`
	// Providers is the candidate pool. When empty the handler loads
	// verified providers for the lead's city from storage.
	Providers  []allocation.ProviderProfile `json:"providers,omitempty"`
	MaxResults int                          `json:"maxResults,omitempty"`
}

type Output struct {
	AllocationID   string                        `json:"allocationId"`
	LeadID         string                        `json:"leadId"`
	Results        []allocation.AllocationResult `json:"results"`
	EligibleCount  int                           `json:"eligibleCount"`
	CandidateCount int                           `json:"candidateCount"`
}
