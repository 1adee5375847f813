package session

import "time"

// Session statuses. Transitions only ever move forward:
// pending -> paid -> complete, with paid -> failed as the error branch.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Session is the checkout/invoice record. One per checkout attempt.
// ID is the external handle; PaymentHash is the webhook correlation key.
type Session struct {
	ID          string    `dynamodbav:"session_id" json:"id"` // PK
	ParamsJSON  string    `dynamodbav:"params_json" json:"params_json"`
	Bolt11      string    `dynamodbav:"bolt11" json:"bolt11"`
	PaymentHash string    `dynamodbav:"payment_hash" json:"payment_hash"`
	AmountSats  int64     `dynamodbav:"amount_sats" json:"amount_sats"`
	Status      string    `dynamodbav:"status" json:"status"`
	ResultHTML  string    `dynamodbav:"result_html,omitempty" json:"result_html,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"created_at"`
	PaidAt      time.Time `dynamodbav:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// Extra carries the fields a status transition writes alongside the new
// status. ResultHTML is only meaningful when transitioning to complete,
// PaidAt when transitioning to paid.
type Extra struct {
	ResultHTML string
	PaidAt     time.Time
}
