package models

import "github.com/shopspring/decimal"

// Settlement statuses. A settlement is created pending and transitions
// exactly once to confirmed when the receiver acknowledges the payment.
// There are no other transitions.
const (
	SettlementPending   = "pending"
	SettlementConfirmed = "confirmed"
)

// Settlement represents a directed repayment between two distinct members
// of the same trip. Only confirmed settlements affect balances.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// TripID is the trip this settlement belongs to.
	TripID string

	// FromUserID is the debtor settling up.
	FromUserID string

	// ToUserID is the creditor being paid.
	ToUserID string

	// Amount is the repayment amount, 2 fractional digits.
	Amount decimal.Decimal

	// Currency is the ISO 4217 code the repayment was made in.
	Currency string

	// Status is SettlementPending or SettlementConfirmed.
	Status string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// ConfirmedAt is the Unix timestamp of confirmation, zero while
	// the settlement is pending.
	ConfirmedAt int64
}
