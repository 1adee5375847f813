package validation

// ResearchRequest is the payload for POST /checkout and POST /research.
// Which fields are required depends on Mode; see the struct-level
// validation in validator.go.
type ResearchRequest struct {
	Mode     string `json:"mode" validate:"required,oneof=search topic account ask"`
	Query    string `json:"query,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Side1    string `json:"side1,omitempty"`
	Side2    string `json:"side2,omitempty"`
	Topics   string `json:"topics,omitempty"`
	Question string `json:"question,omitempty"`
}

// WebhookEvent is the payment notifier's POST body. Only payment_received
// events are acted on; everything else is acknowledged and dropped.
type WebhookEvent struct {
	Type        string `json:"type" validate:"required"`
	PaymentHash string `json:"payment_hash,omitempty"`
}
