// internal/models/notification.go
package models

type Notification struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipientId"`
	LeadID      string                 `json:"leadId"`
	Channel     string                 `json:"channel"` // "email", "sms"
	Status      string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload     map[string]interface{} `json:"payload"`
	SentAt      string                 `json:"sentAt"`
	CreatedAt   string                 `json:"createdAt"`
}
