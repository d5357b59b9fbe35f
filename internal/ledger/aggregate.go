// Package ledger implements the balance and settlement engine: it turns a
// trip's expense history and confirmed repayments into per-member net
// positions and a minimal list of suggested transfers.
//
// Aggregation and planning are pure functions of their inputs. They hold no
// shared state, so they are safe to call concurrently for different trips
// and repeatedly for the same trip; every call re-derives the result from
// the source records.
package ledger

import "github.com/shopspring/decimal"

// ExpenseForBalance carries the minimal expense fields needed for balance
// calculation.
type ExpenseForBalance struct {
	PayerID string
	Amount  decimal.Decimal
	Shares  []ShareForBalance
}

// ShareForBalance is one member's weighted claim on an expense.
type ShareForBalance struct {
	UserID string
	Weight decimal.Decimal
}

// SettlementForBalance carries the minimal settlement fields needed for
// balance calculation. Callers pass confirmed settlements only.
type SettlementForBalance struct {
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal
}

// Balance is the result of aggregating a trip's history.
type Balance struct {
	// Paid is the total each member fronted, rounded to 2 fractional
	// digits for reporting.
	Paid map[string]decimal.Decimal

	// Owed is the total each member's shares add up to, rounded to 2
	// fractional digits for reporting.
	Owed map[string]decimal.Decimal

	// Net is round2(paid - owed) adjusted by confirmed settlements.
	// Positive means the member is owed money, negative means the member
	// owes money. Net is the authoritative input to Plan.
	Net map[string]decimal.Decimal
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Aggregate computes paid, owed and net totals per member.
//
// Every expense credits its full amount to the payer's paid total. An
// expense with at least one share and a positive total weight debits each
// share's member by amount * weight / totalWeight; the division is kept at
// full decimal precision and rounded only when net is derived, so error
// does not compound across the shares of one expense. Expenses with no
// shares or a zero total weight are skipped for apportionment, a
// documented degenerate case rather than an error.
//
// Each settlement then shifts net: the payer's position improves by the
// amount, the receiver's shrinks by it. A member who only ever appears in
// a settlement is materialized at zero first. Settlements with a
// non-positive amount or identical endpoints are skipped defensively; the
// write path rejects them before they are ever stored.
func Aggregate(expenses []ExpenseForBalance, settlements []SettlementForBalance) Balance {
	paid := make(map[string]decimal.Decimal)
	owed := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		if e.PayerID == "" {
			continue
		}
		paid[e.PayerID] = paid[e.PayerID].Add(e.Amount)

		if len(e.Shares) == 0 {
			continue
		}
		totalWeight := decimal.Zero
		for _, s := range e.Shares {
			totalWeight = totalWeight.Add(s.Weight)
		}
		if !totalWeight.IsPositive() {
			continue
		}
		for _, s := range e.Shares {
			part := e.Amount.Mul(s.Weight).Div(totalWeight)
			owed[s.UserID] = owed[s.UserID].Add(part)
		}
	}

	net := make(map[string]decimal.Decimal, len(paid)+len(owed))
	for userID := range paid {
		net[userID] = round2(paid[userID].Sub(owed[userID]))
	}
	for userID := range owed {
		if _, ok := net[userID]; !ok {
			net[userID] = round2(owed[userID].Neg())
		}
	}

	for _, s := range settlements {
		amount := round2(s.Amount)
		if !amount.IsPositive() || s.FromUserID == s.ToUserID {
			continue
		}
		if _, ok := net[s.FromUserID]; !ok {
			net[s.FromUserID] = decimal.Zero
		}
		if _, ok := net[s.ToUserID]; !ok {
			net[s.ToUserID] = decimal.Zero
		}
		net[s.FromUserID] = round2(net[s.FromUserID].Add(amount))
		net[s.ToUserID] = round2(net[s.ToUserID].Sub(amount))
	}

	for userID, total := range paid {
		paid[userID] = round2(total)
	}
	for userID, total := range owed {
		owed[userID] = round2(total)
	}

	return Balance{Paid: paid, Owed: owed, Net: net}
}
