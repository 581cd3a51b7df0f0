// internal/workers/leads/notify-providers/models.go
package notifyproviders

import (
	"leadalloc-workers/internal/allocation"
	"leadalloc-workers/internal/models"
)

type Input struct {
	LeadID    string                        `json:"leadId"`
	LeadTitle string                        `json:"leadTitle,omitempty"`
	Results   []allocation.AllocationResult `json:"results"`
}

type Output struct {
	LeadID        string                `json:"leadId"`
	Notifications []models.Notification `json:"notifications"`
	SentCount     int                   `json:"sentCount"`
	FailedCount   int                   `json:"failedCount"`
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
