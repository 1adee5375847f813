package session

import (
	"context"
	"errors"
)

// Sentinel errors shared by all store backends.
var (
	// ErrNotFound is returned when no session exists for the given key.
	ErrNotFound = errors.New("session not found")

	// ErrDuplicate is returned by Create when the session id or payment
	// hash is already taken.
	ErrDuplicate = errors.New("session already exists")

	// ErrStatusMismatch is returned by UpdateStatus when the stored status
	// differs from the expected one. It means another caller already made
	// the transition; callers must treat it as a no-op, not a failure.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
)

// Store is the durable session storage contract. The conditional
// UpdateStatus is the correctness primitive the whole payment flow hangs
// on: a transition is applied at most once no matter how many concurrent
// callers attempt it.
type Store interface {
	// Create persists a new session and its payment-hash lookup entry
	// atomically. Fails with ErrDuplicate if either key exists.
	Create(ctx context.Context, s Session) error

	// GetByID fetches a session by its external id.
	GetByID(ctx context.Context, id string) (*Session, error)

	// GetByPaymentHash fetches a session by its correlation key. Used
	// exclusively by the payment webhook path.
	GetByPaymentHash(ctx context.Context, hash string) (*Session, error)

	// UpdateStatus applies expected -> newStatus as a compare-and-swap.
	// extra.PaidAt is stored when newStatus is paid, extra.ResultHTML
	// when newStatus is complete. Returns ErrStatusMismatch if the
	// stored status is not the expected one.
	UpdateStatus(ctx context.Context, id, expected, newStatus string, extra Extra) error

	// ClaimOldestPending atomically pops the oldest pending session and
	// returns its id. No two concurrent callers receive the same id.
	// Returns ErrNotFound when nothing is pending. Fallback correlation
	// only; hash lookup is preferred whenever the event carries one.
	ClaimOldestPending(ctx context.Context) (string, error)
}
