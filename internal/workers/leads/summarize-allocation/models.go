// internal/workers/leads/summarize-allocation/models.go
package summarizeallocation

import "leadalloc-workers/internal/allocation"

type Input struct {
	AllocationID string                        `json:"allocationId,omitempty"`
	LeadID       string                        `json:"leadId,omitempty"`
	Results      []allocation.AllocationResult `json:"results"`
}

type Output struct {
	AllocationID string             `json:"allocationId,omitempty"`
	LeadID       string             `json:"leadId,omitempty"`
	Summary      allocation.Summary `json:"summary"`
}
