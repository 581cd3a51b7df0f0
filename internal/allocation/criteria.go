// internal/allocation/criteria.go
package allocation

import "fmt"

// Criteria holds the seven scoring weights. The weights must sum to exactly
// 100 so the weighted composite stays on the 0-100 scale.
type Criteria struct {
	LocationMatch    int `json:"location_match"`
	ServiceMatch     int `json:"service_match"`
	Availability     int `json:"availability"`
	Rating           int `json:"rating"`
	ResponseTime     int `json:"response_time"`
	SubscriptionTier int `json:"subscription_tier"`
	Workload         int `json:"workload"`
}

// DefaultCriteria is the product-approved weight table.
func DefaultCriteria() Criteria {
	return Criteria{
		LocationMatch:    25,
		ServiceMatch:     20,
		Availability:     15,
		Rating:           15,
		ResponseTime:     10,
		SubscriptionTier: 10,
		Workload:         5,
	}
}

// Sum returns the total of all seven weights.
func (c Criteria) Sum() int {
	return c.LocationMatch + c.ServiceMatch + c.Availability + c.Rating +
		c.ResponseTime + c.SubscriptionTier + c.Workload
}

// Validate rejects malformed weight tables. A bad table is a programmer or
// deployment error, so callers should fail fast rather than coerce.
func (c Criteria) Validate() error {
	weights := map[string]int{
		"location_match":    c.LocationMatch,
		"service_match":     c.ServiceMatch,
		"availability":      c.Availability,
		"rating":            c.Rating,
		"response_time":     c.ResponseTime,
		"subscription_tier": c.SubscriptionTier,
		"workload":          c.Workload,
	}
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("criteria weight %s is negative: %d", name, w)
		}
	}
	if sum := c.Sum(); sum != 100 {
		return fmt.Errorf("criteria weights must sum to 100, got %d", sum)
	}
	return nil
}
