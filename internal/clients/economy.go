package clients

import "context"

// LockOutcome is the economy service's verdict on an escrow lock request.
// A rejection is a business answer, not a transport failure.
type LockOutcome string

const (
	LockAccepted LockOutcome = "locked"
	LockRejected LockOutcome = "rejected"
)

// EconomyClient is the narrow interface to the external economy service that
// holds escrowed funds. Every call carries an idempotency key so retries
// after a crash or timeout can never double-lock or double-refund.
type EconomyClient interface {
	LockEscrow(ctx context.Context, orderID string, amount float64, idempotencyKey string) (LockOutcome, error)
	ReleaseEscrow(ctx context.Context, orderID string, idempotencyKey string) error
	RefundEscrow(ctx context.Context, orderID string, idempotencyKey string) error
}
