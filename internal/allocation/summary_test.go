// internal/allocation/summary_test.go
package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil)
	assert.Equal(t, Summary{
		Total:        0,
		High:         0,
		Medium:       0,
		Low:          0,
		AverageScore: 0,
		TopReasons:   []string{},
	}, got)

	got = Summarize([]AllocationResult{})
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, 0, got.AverageScore)
	assert.Empty(t, got.TopReasons)
}

func TestSummarize_CountsAndAverage(t *testing.T) {
	results := []AllocationResult{
		{ProviderID: "a", Score: 95, Priority: PriorityHigh, Reasons: []string{"Perfect location match", "Excellent rating"}},
		{ProviderID: "b", Score: 88, Priority: PriorityHigh, Reasons: []string{"Perfect location match", "Fast response time"}},
		{ProviderID: "c", Score: 75, Priority: PriorityMedium, Reasons: []string{"Good location match"}},
		{ProviderID: "d", Score: 50, Priority: PriorityLow, Reasons: nil},
	}

	got := Summarize(results)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 2, got.High)
	assert.Equal(t, 1, got.Medium)
	assert.Equal(t, 1, got.Low)
	// (95+88+75+50)/4 = 77
	assert.Equal(t, 77, got.AverageScore)
	assert.Equal(t, "Perfect location match", got.TopReasons[0])
}

func TestSummarize_AverageRounding(t *testing.T) {
	results := []AllocationResult{
		{ProviderID: "a", Score: 80, Priority: PriorityMedium},
		{ProviderID: "b", Score: 81, Priority: PriorityMedium},
		{ProviderID: "c", Score: 81, Priority: PriorityMedium},
	}
	// 242/3 = 80.67 rounds to 81
	assert.Equal(t, 81, Summarize(results).AverageScore)
}

func TestSummarize_TopReasonsFrequencyAndTies(t *testing.T) {
	reason := func(names ...string) AllocationResult {
		return AllocationResult{Score: 70, Priority: PriorityMedium, Reasons: names}
	}

	results := []AllocationResult{
		reason("alpha", "beta"),
		reason("alpha", "gamma"),
		reason("alpha", "beta", "delta"),
		reason("epsilon", "zeta"),
	}

	got := Summarize(results)
	// alpha x3, beta x2, then singles in first-encountered order.
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta", "epsilon"}, got.TopReasons)
}

func TestSummarize_TopReasonsCappedAtFive(t *testing.T) {
	results := []AllocationResult{
		{Score: 70, Priority: PriorityMedium, Reasons: []string{"one", "two", "three"}},
		{Score: 70, Priority: PriorityMedium, Reasons: []string{"four", "five", "six", "seven"}},
	}

	got := Summarize(results)
	assert.Len(t, got.TopReasons, 5)
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, got.TopReasons)
}
