package models

import "github.com/shopspring/decimal"

// Expense represents money fronted by one trip member on behalf of a set
// of members. The payer is the member who created the expense.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TripID is the trip this expense belongs to.
	TripID string

	// PayerID is the member who fronted the money.
	PayerID string

	// Title describes the expense (e.g. "Dinner", "Fuel").
	Title string

	// Amount is the original amount in Currency, 2 fractional digits.
	Amount decimal.Decimal

	// Currency is the ISO 4217 code the expense was paid in.
	Currency string

	// CategoryID optionally links the expense to a Category.
	CategoryID string

	// SpentAt is the Unix timestamp of the actual spend. Zero means the
	// spend date was not recorded and the creation date applies.
	SpentAt int64

	// FxRate is the rate-to-home applied at write time, 6 fractional
	// digits. Exactly 1 for expenses already in the home currency.
	FxRate decimal.Decimal

	// AmountHome is Amount converted into the home currency at FxRate,
	// rounded half-up to 2 fractional digits.
	AmountHome decimal.Decimal

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// Shares lists who the expense is split across. An expense with no
	// shares still counts toward the payer's paid total but nobody owes
	// anything for it.
	Shares []ExpenseShare
}

// ExpenseShare is one member's proportional claim on an expense. The
// member owes amount * weight / sum(weights of all shares).
type ExpenseShare struct {
	ExpenseID string
	UserID    string

	// Weight is the share's positive weight. Defaults to 1, allowing
	// unequal splits when set otherwise.
	Weight decimal.Decimal
}

// Category is an optional label for grouping expenses in statistics.
type Category struct {
	ID   string
	Name string
}
