package ledger

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrUnbalanced reports that debtor and creditor totals diverge beyond
// rounding allowance. Aggregation conserves money by construction, so an
// unbalanced net map signals a computation bug upstream and the planner
// refuses to silently truncate it away.
var ErrUnbalanced = errors.New("ledger: debtor and creditor totals do not balance")

// Transfer is a suggested payment from a net-debtor to a net-creditor.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// oneCent is the smallest representable monetary step; per-member rounding
// of net positions can leave at most this much dust per participant.
var oneCent = decimal.New(1, -2)

// Plan converts net positions into an ordered list of transfers that
// drives every member's balance to zero, using the greedy two-cursor
// netting walk that is transaction-count optimal for a single currency:
// at most len(nonzero members) - 1 transfers are emitted.
//
// Members are sorted by identifier before partitioning so the pairing is
// deterministic and reproducible for identical inputs.
func Plan(net map[string]decimal.Decimal) ([]Transfer, error) {
	userIDs := make([]string, 0, len(net))
	for userID := range net {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	type position struct {
		userID    string
		remaining decimal.Decimal
	}

	var debtors, creditors []position
	sumDebt, sumCredit := decimal.Zero, decimal.Zero
	for _, userID := range userIDs {
		v := net[userID]
		switch {
		case v.IsNegative():
			debtors = append(debtors, position{userID, v.Neg()})
			sumDebt = sumDebt.Add(v.Neg())
		case v.IsPositive():
			creditors = append(creditors, position{userID, v})
			sumCredit = sumCredit.Add(v)
		}
	}

	// Per-member round2 can strand up to a cent of dust per participant;
	// anything beyond that is a genuine conservation violation.
	allowance := oneCent.Mul(decimal.NewFromInt(int64(len(debtors) + len(creditors))))
	if sumDebt.Sub(sumCredit).Abs().GreaterThan(allowance) {
		return nil, ErrUnbalanced
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		x := debtors[i].remaining
		if creditors[j].remaining.LessThan(x) {
			x = creditors[j].remaining
		}
		x = round2(x)

		if x.IsPositive() {
			transfers = append(transfers, Transfer{
				From:   debtors[i].userID,
				To:     creditors[j].userID,
				Amount: x,
			})
		}

		debtors[i].remaining = round2(debtors[i].remaining.Sub(x))
		creditors[j].remaining = round2(creditors[j].remaining.Sub(x))

		if debtors[i].remaining.IsZero() {
			i++
		}
		if creditors[j].remaining.IsZero() {
			j++
		}
	}

	return transfers, nil
}
