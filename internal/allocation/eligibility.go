// internal/allocation/eligibility.go
package allocation

import "strings"

// FilterEligible reduces the candidate pool to providers allowed to receive
// this lead. The predicates are independent; order does not matter. An empty
// result is valid and silent.
func (e *Engine) FilterEligible(lead Lead, providers []ProviderProfile) []ProviderProfile {
	var eligible []ProviderProfile
	for _, p := range providers {
		if p.VerificationStatus != StatusVerified {
			continue
		}
		// Suspended providers are already caught above: a suspended record
		// is never "verified" in a correctly maintained profile. Both checks
		// must pass regardless.
		if p.VerificationStatus == StatusSuspended {
			continue
		}
		if !servesLocation(p.ServiceAreas, lead.Suburb, lead.City) {
			continue
		}
		if !p.HasAccess() {
			continue
		}
		if !withinTravelRange(lead, p) {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// servesLocation checks for a case-insensitive substring match between any
// claimed service area and the lead's suburb or city, in either direction:
// area "Sandton" covers suburb "Sandton CBD" and vice versa.
func servesLocation(areas []string, suburb, city string) bool {
	for _, area := range areas {
		if areaMatches(area, suburb) || areaMatches(area, city) {
			return true
		}
	}
	return false
}

func areaMatches(area, location string) bool {
	a := strings.ToLower(strings.TrimSpace(area))
	loc := strings.ToLower(strings.TrimSpace(location))
	if a == "" || loc == "" {
		return false
	}
	return strings.Contains(a, loc) || strings.Contains(loc, a)
}

// withinTravelRange is a pass-through: real distance computation belongs to
// the external geocoding collaborator, not this engine.
func withinTravelRange(Lead, ProviderProfile) bool {
	return true
}
