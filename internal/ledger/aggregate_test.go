package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func equalShares(userIDs ...string) []ShareForBalance {
	shares := make([]ShareForBalance, 0, len(userIDs))
	for _, id := range userIDs {
		shares = append(shares, ShareForBalance{UserID: id, Weight: dec("1")})
	}
	return shares
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name        string
		expenses    []ExpenseForBalance
		settlements []SettlementForBalance
		wantPaid    map[string]string
		wantOwed    map[string]string
		wantNet     map[string]string
	}{
		{
			name: "equal three-way split",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Amount: dec("90.00"), Shares: equalShares("alice", "bob", "carol")},
			},
			wantPaid: map[string]string{"alice": "90.00"},
			wantOwed: map[string]string{"alice": "30.00", "bob": "30.00", "carol": "30.00"},
			wantNet:  map[string]string{"alice": "60.00", "bob": "-30.00", "carol": "-30.00"},
		},
		{
			name: "confirmed settlement reduces debt and credit",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Amount: dec("90.00"), Shares: equalShares("alice", "bob", "carol")},
			},
			settlements: []SettlementForBalance{
				{FromUserID: "bob", ToUserID: "alice", Amount: dec("30.00")},
			},
			wantPaid: map[string]string{"alice": "90.00"},
			wantOwed: map[string]string{"alice": "30.00", "bob": "30.00", "carol": "30.00"},
			wantNet:  map[string]string{"alice": "30.00", "bob": "0.00", "carol": "-30.00"},
		},
		{
			name: "expense without shares credits payer only",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Amount: dec("50.00")},
			},
			wantPaid: map[string]string{"alice": "50.00"},
			wantOwed: map[string]string{},
			wantNet:  map[string]string{"alice": "50.00"},
		},
		{
			name: "zero total weight skips apportionment",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Amount: dec("40.00"), Shares: []ShareForBalance{
					{UserID: "bob", Weight: dec("0")},
					{UserID: "carol", Weight: dec("0")},
				}},
			},
			wantPaid: map[string]string{"alice": "40.00"},
			wantOwed: map[string]string{},
			wantNet:  map[string]string{"alice": "40.00"},
		},
		{
			name: "unequal weights",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Amount: dec("100.00"), Shares: []ShareForBalance{
					{UserID: "alice", Weight: dec("1")},
					{UserID: "bob", Weight: dec("3")},
				}},
			},
			wantPaid: map[string]string{"alice": "100.00"},
			wantOwed: map[string]string{"alice": "25.00", "bob": "75.00"},
			wantNet:  map[string]string{"alice": "75.00", "bob": "-75.00"},
		},
		{
			name: "settlement-only member is materialized at zero",
			settlements: []SettlementForBalance{
				{FromUserID: "dave", ToUserID: "alice", Amount: dec("10.00")},
			},
			wantPaid: map[string]string{},
			wantOwed: map[string]string{},
			wantNet:  map[string]string{"dave": "10.00", "alice": "-10.00"},
		},
		{
			name: "non-positive and self settlements are skipped",
			expenses: []ExpenseForBalance{
				{PayerID: "alice", Amount: dec("10.00"), Shares: equalShares("bob")},
			},
			settlements: []SettlementForBalance{
				{FromUserID: "bob", ToUserID: "alice", Amount: dec("0.00")},
				{FromUserID: "bob", ToUserID: "alice", Amount: dec("-5.00")},
				{FromUserID: "bob", ToUserID: "bob", Amount: dec("5.00")},
			},
			wantPaid: map[string]string{"alice": "10.00"},
			wantOwed: map[string]string{"bob": "10.00"},
			wantNet:  map[string]string{"alice": "10.00", "bob": "-10.00"},
		},
		{
			name:     "empty trip yields empty maps",
			wantPaid: map[string]string{},
			wantOwed: map[string]string{},
			wantNet:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.expenses, tt.settlements)
			assertAmounts(t, "paid", got.Paid, tt.wantPaid)
			assertAmounts(t, "owed", got.Owed, tt.wantOwed)
			assertAmounts(t, "net", got.Net, tt.wantNet)
		})
	}
}

// Conservation: the net positions of a trip always sum to zero when
// apportionment divides evenly.
func TestAggregateConservation(t *testing.T) {
	expenses := []ExpenseForBalance{
		{PayerID: "alice", Amount: dec("90.00"), Shares: equalShares("alice", "bob", "carol")},
		{PayerID: "bob", Amount: dec("42.50"), Shares: equalShares("alice", "bob")},
		{PayerID: "carol", Amount: dec("17.25"), Shares: equalShares("carol")},
	}
	settlements := []SettlementForBalance{
		{FromUserID: "carol", ToUserID: "alice", Amount: dec("12.00")},
	}

	got := Aggregate(expenses, settlements)

	sum := decimal.Zero
	for _, v := range got.Net {
		sum = sum.Add(v)
	}
	if !sum.IsZero() {
		t.Errorf("net positions sum to %s, want 0", sum)
	}
}

// Division is carried at full precision and rounded only at output, so
// many shares of one expense do not compound rounding error.
func TestAggregateNoCompoundingError(t *testing.T) {
	shares := make([]ShareForBalance, 7)
	for i := range shares {
		shares[i] = ShareForBalance{UserID: string(rune('a' + i)), Weight: dec("1")}
	}
	got := Aggregate([]ExpenseForBalance{
		{PayerID: "a", Amount: dec("70.00"), Shares: shares},
	}, nil)

	for userID, owed := range got.Owed {
		if owed.String() != "10" {
			t.Errorf("owed[%s] = %s, want 10", userID, owed)
		}
	}
}

func assertAmounts(t *testing.T, label string, got map[string]decimal.Decimal, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s has %d entries, want %d (got %v)", label, len(got), len(want), got)
		return
	}
	for userID, wantValue := range want {
		gotValue, ok := got[userID]
		if !ok {
			t.Errorf("%s missing entry for %s", label, userID)
			continue
		}
		if gotValue.StringFixed(2) != wantValue {
			t.Errorf("%s[%s] = %s, want %s", label, userID, gotValue.StringFixed(2), wantValue)
		}
	}
}
