// internal/workers/providers/verify-provider-access/models.go
package verifyprovideraccess

type Input struct {
	ProviderID string `json:"providerId"`
}

// Access is the stored access record, cached between checks.
type Access struct {
	ProviderID         string  `json:"providerId"`
	VerificationStatus string  `json:"verificationStatus"`
	SubscriptionTier   string  `json:"subscriptionTier"`
	CreditBalance      float64 `json:"creditBalance"`
}

type Output struct {
	HasAccess bool `json:"hasAccess"`
	// AccessType is "subscription" or "credits".
	AccessType    string  `json:"accessType,omitempty"`
	Tier          string  `json:"tier,omitempty"`
	CreditBalance float64 `json:"creditBalance"`
}
