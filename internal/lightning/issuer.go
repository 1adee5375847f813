// Package lightning obtains payable Lightning invoices and their
// correlation keys for the checkout flow.
package lightning

import (
	"context"
	"errors"
)

// ErrIssuerUnavailable indicates the wallet daemon could not be reached
// or failed to produce an invoice.
var ErrIssuerUnavailable = errors.New("invoice issuer unavailable")

// Invoice is a payable invoice plus the key the payment webhook will
// correlate on. PaymentHash is always populated; an invoice without one
// is a fatal issue for the checkout attempt, never stored.
type Invoice struct {
	Bolt11      string
	PaymentHash string
	AmountSats  int64
}

// Issuer produces a payable invoice for a fixed amount.
type Issuer interface {
	Issue(ctx context.Context, amountSats int64) (Invoice, error)
}
