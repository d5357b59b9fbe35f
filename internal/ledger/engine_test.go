package ledger

import (
	"context"
	"testing"

	"github.com/tripledger/tripledger/internal/models"
)

// fakeReader serves a fixed history, standing in for the SQLite store.
type fakeReader struct {
	expenses    []*models.Expense
	settlements []*models.Settlement
}

func (f *fakeReader) ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error) {
	return f.expenses, nil
}

func (f *fakeReader) ListSettlementsByTrip(ctx context.Context, tripID string) ([]*models.Settlement, error) {
	return f.settlements, nil
}

func TestEngineComputeBalance(t *testing.T) {
	store := &fakeReader{
		expenses: []*models.Expense{
			{
				ID:      "e1",
				TripID:  "t1",
				PayerID: "alice",
				Amount:  dec("90.00"),
				Shares: []models.ExpenseShare{
					{ExpenseID: "e1", UserID: "alice", Weight: dec("1")},
					{ExpenseID: "e1", UserID: "bob", Weight: dec("1")},
					{ExpenseID: "e1", UserID: "carol", Weight: dec("1")},
				},
			},
		},
		settlements: []*models.Settlement{
			{ID: "s1", TripID: "t1", FromUserID: "bob", ToUserID: "alice",
				Amount: dec("30.00"), Status: models.SettlementConfirmed},
			// Pending settlements must not move balances.
			{ID: "s2", TripID: "t1", FromUserID: "carol", ToUserID: "alice",
				Amount: dec("30.00"), Status: models.SettlementPending},
		},
	}

	sheet, err := NewEngine(store).ComputeBalance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ComputeBalance failed: %v", err)
	}

	if got := sheet.Paid["alice"]; got != "90.00" {
		t.Errorf("paid[alice] = %s, want 90.00", got)
	}
	for _, userID := range []string{"alice", "bob", "carol"} {
		if got := sheet.Owed[userID]; got != "30.00" {
			t.Errorf("owed[%s] = %s, want 30.00", userID, got)
		}
	}
	wantNet := map[string]string{"alice": "30.00", "bob": "0.00", "carol": "-30.00"}
	for userID, want := range wantNet {
		if got := sheet.Net[userID]; got != want {
			t.Errorf("net[%s] = %s, want %s", userID, got, want)
		}
	}

	if len(sheet.Transfers) != 1 {
		t.Fatalf("got %d transfers, want 1 (%v)", len(sheet.Transfers), sheet.Transfers)
	}
	tr := sheet.Transfers[0]
	if tr.From != "carol" || tr.To != "alice" || tr.Amount != "30.00" {
		t.Errorf("transfer = %s->%s %s, want carol->alice 30.00", tr.From, tr.To, tr.Amount)
	}
}

func TestEngineComputeBalanceEmptyTrip(t *testing.T) {
	sheet, err := NewEngine(&fakeReader{}).ComputeBalance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ComputeBalance failed: %v", err)
	}
	if len(sheet.Paid) != 0 || len(sheet.Owed) != 0 || len(sheet.Net) != 0 || len(sheet.Transfers) != 0 {
		t.Errorf("expected empty sheet, got %+v", sheet)
	}
}
