package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
)

// Reader is the slice of the storage layer the engine reads through. Both
// listings must be read-consistent at a single point in time for one call.
type Reader interface {
	ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error)
	ListSettlementsByTrip(ctx context.Context, tripID string) ([]*models.Settlement, error)
}

// Engine is the externally invoked facade over Aggregate and Plan. It is
// read-only over the persisted history and has no side effects.
type Engine struct {
	store Reader
}

// NewEngine creates an engine reading through the given store.
func NewEngine(store Reader) *Engine {
	return &Engine{store: store}
}

// TransferOut is one suggested transfer, amounts rendered with exactly 2
// fractional digits.
type TransferOut struct {
	From   string `json:"from_user"`
	To     string `json:"to_user"`
	Amount string `json:"amount"`
}

// BalanceSheet is the engine's answer to "who owes whom, how much".
// Paid and owed are reported for observability; net is what the transfers
// zero out. All values are decimal strings with exactly 2 fractional
// digits.
type BalanceSheet struct {
	Paid      map[string]string `json:"paid"`
	Owed      map[string]string `json:"owed"`
	Net       map[string]string `json:"net"`
	Transfers []TransferOut     `json:"transfers"`
}

// ComputeBalance aggregates the trip's full expense and confirmed
// settlement history and plans the transfers that settle it.
//
// Netting operates on original expense amounts, not home-currency
// conversions, matching how settlements are recorded; a trip that mixes
// currencies mixes them here too.
func (e *Engine) ComputeBalance(ctx context.Context, tripID string) (*BalanceSheet, error) {
	expenses, err := e.store.ListExpensesByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	settlements, err := e.store.ListSettlementsByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}

	forBalance := make([]ExpenseForBalance, 0, len(expenses))
	for _, exp := range expenses {
		eb := ExpenseForBalance{
			PayerID: exp.PayerID,
			Amount:  exp.Amount,
			Shares:  make([]ShareForBalance, 0, len(exp.Shares)),
		}
		for _, s := range exp.Shares {
			eb.Shares = append(eb.Shares, ShareForBalance{UserID: s.UserID, Weight: s.Weight})
		}
		forBalance = append(forBalance, eb)
	}

	var confirmed []SettlementForBalance
	for _, s := range settlements {
		if s.Status != models.SettlementConfirmed {
			continue
		}
		confirmed = append(confirmed, SettlementForBalance{
			FromUserID: s.FromUserID,
			ToUserID:   s.ToUserID,
			Amount:     s.Amount,
		})
	}

	balance := Aggregate(forBalance, confirmed)
	transfers, err := Plan(balance.Net)
	if err != nil {
		return nil, fmt.Errorf("failed to plan transfers for trip %s: %w", tripID, err)
	}

	sheet := &BalanceSheet{
		Paid:      renderAmounts(balance.Paid),
		Owed:      renderAmounts(balance.Owed),
		Net:       renderAmounts(balance.Net),
		Transfers: make([]TransferOut, 0, len(transfers)),
	}
	for _, t := range transfers {
		sheet.Transfers = append(sheet.Transfers, TransferOut{
			From:   t.From,
			To:     t.To,
			Amount: t.Amount.StringFixed(2),
		})
	}
	return sheet, nil
}

func renderAmounts(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for userID, v := range m {
		out[userID] = v.StringFixed(2)
	}
	return out
}
