package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
	"github.com/tripledger/tripledger/internal/storage"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "tripledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStore, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	bob := createTestUser(t, store, "bob@example.com", "Bob")

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got == nil || got.ID != alice.ID {
			t.Errorf("got %+v, want user %s", got, alice.ID)
		}

		missing, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if missing != nil {
			t.Errorf("expected nil for unknown email, got %+v", missing)
		}
	})

	t.Run("CreateTrip enrolls owner", func(t *testing.T) {
		trip := &models.Trip{Title: "Altai 2026", OwnerID: alice.ID}
		if err := store.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}
		if trip.ID == "" {
			t.Error("Expected trip ID to be generated")
		}

		members, err := store.ListTripMembers(ctx, trip.ID)
		if err != nil {
			t.Fatalf("ListTripMembers failed: %v", err)
		}
		if len(members) != 1 || members[0].UserID != alice.ID || members[0].Role != models.RoleOwner {
			t.Errorf("expected owner membership, got %+v", members)
		}
	})

	t.Run("AddTripMember is idempotent", func(t *testing.T) {
		trip := &models.Trip{Title: "Baikal", OwnerID: alice.ID}
		if err := store.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		member := &models.TripMember{TripID: trip.ID, UserID: bob.ID}
		if err := store.AddTripMember(ctx, member); err != nil {
			t.Fatalf("AddTripMember failed: %v", err)
		}
		if err := store.AddTripMember(ctx, member); err != nil {
			t.Fatalf("second AddTripMember failed: %v", err)
		}

		members, err := store.ListTripMembers(ctx, trip.ID)
		if err != nil {
			t.Fatalf("ListTripMembers failed: %v", err)
		}
		if len(members) != 2 {
			t.Errorf("expected 2 members, got %d", len(members))
		}

		ok, err := store.IsTripMember(ctx, trip.ID, bob.ID)
		if err != nil || !ok {
			t.Errorf("IsTripMember = (%v, %v), want (true, nil)", ok, err)
		}
	})

	t.Run("invite is single-use", func(t *testing.T) {
		trip := &models.Trip{Title: "Kazan", OwnerID: alice.ID}
		if err := store.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		invite := &models.TripInvite{TripID: trip.ID, CreatedBy: alice.ID}
		if err := store.CreateInvite(ctx, invite); err != nil {
			t.Fatalf("CreateInvite failed: %v", err)
		}
		if invite.Token == "" {
			t.Fatal("Expected invite token to be generated")
		}

		loaded, err := store.GetInviteByToken(ctx, invite.Token)
		if err != nil {
			t.Fatalf("GetInviteByToken failed: %v", err)
		}
		if loaded.IsUsed {
			t.Error("fresh invite must not be used")
		}

		if err := store.ConsumeInvite(ctx, invite.ID, bob.ID); err != nil {
			t.Fatalf("ConsumeInvite failed: %v", err)
		}
		if err := store.ConsumeInvite(ctx, invite.ID, bob.ID); !errors.Is(err, storage.ErrInviteConsumed) {
			t.Errorf("second ConsumeInvite error = %v, want ErrInviteConsumed", err)
		}
	})

	t.Run("expenses round-trip with shares", func(t *testing.T) {
		trip := &models.Trip{Title: "Sochi", OwnerID: alice.ID}
		if err := store.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		expense := &models.Expense{
			TripID:     trip.ID,
			PayerID:    alice.ID,
			Title:      "Dinner",
			Amount:     dec(t, "90.00"),
			Currency:   "RUB",
			FxRate:     dec(t, "1.000000"),
			AmountHome: dec(t, "90.00"),
			Shares: []models.ExpenseShare{
				{UserID: alice.ID, Weight: dec(t, "1")},
				{UserID: bob.ID, Weight: dec(t, "2")},
			},
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.Amount.Equal(dec(t, "90.00")) {
			t.Errorf("Amount = %s, want 90.00", got.Amount)
		}
		if len(got.Shares) != 2 {
			t.Fatalf("expected 2 shares, got %d", len(got.Shares))
		}

		listed, err := store.ListExpensesByTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("ListExpensesByTrip failed: %v", err)
		}
		if len(listed) != 1 || len(listed[0].Shares) != 2 {
			t.Errorf("expected 1 expense with 2 shares, got %+v", listed)
		}

		// Update replaces shares.
		expense.Title = "Late dinner"
		expense.Shares = []models.ExpenseShare{{UserID: bob.ID, Weight: dec(t, "1")}}
		if err := store.UpdateExpense(ctx, expense); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		got, err = store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense after update failed: %v", err)
		}
		if got.Title != "Late dinner" || len(got.Shares) != 1 {
			t.Errorf("update not applied: %+v", got)
		}

		if err := store.DeleteExpense(ctx, expense.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpense(ctx, expense.ID); err == nil {
			t.Error("expected error for deleted expense")
		}
	})

	t.Run("settlement confirms exactly once", func(t *testing.T) {
		trip := &models.Trip{Title: "Murmansk", OwnerID: alice.ID}
		if err := store.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		settlement := &models.Settlement{
			TripID:     trip.ID,
			FromUserID: bob.ID,
			ToUserID:   alice.ID,
			Amount:     dec(t, "30.00"),
			Currency:   "RUB",
		}
		if err := store.CreateSettlement(ctx, settlement); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}
		if settlement.Status != models.SettlementPending {
			t.Errorf("Status = %s, want pending", settlement.Status)
		}

		if err := store.ConfirmSettlement(ctx, settlement.ID, 1700000000); err != nil {
			t.Fatalf("ConfirmSettlement failed: %v", err)
		}
		err := store.ConfirmSettlement(ctx, settlement.ID, 1700000001)
		if !errors.Is(err, storage.ErrAlreadyConfirmed) {
			t.Errorf("second confirm error = %v, want ErrAlreadyConfirmed", err)
		}

		got, err := store.GetSettlement(ctx, settlement.ID)
		if err != nil {
			t.Fatalf("GetSettlement failed: %v", err)
		}
		if got.Status != models.SettlementConfirmed || got.ConfirmedAt != 1700000000 {
			t.Errorf("settlement = %+v, want confirmed at 1700000000", got)
		}
	})

	t.Run("rate cache upsert is idempotent", func(t *testing.T) {
		rate := &models.ExchangeRate{Currency: "USD", Date: "2024-05-01", RateToHome: dec(t, "90.000000")}
		if err := store.PutRate(ctx, rate); err != nil {
			t.Fatalf("PutRate failed: %v", err)
		}
		// Racing cache fills write the same value; the second write wins
		// harmlessly.
		if err := store.PutRate(ctx, rate); err != nil {
			t.Fatalf("second PutRate failed: %v", err)
		}

		got, ok, err := store.GetRate(ctx, "USD", "2024-05-01")
		if err != nil {
			t.Fatalf("GetRate failed: %v", err)
		}
		if !ok || !got.Equal(dec(t, "90.000000")) {
			t.Errorf("GetRate = (%s, %v), want (90.000000, true)", got, ok)
		}

		_, ok, err = store.GetRate(ctx, "USD", "2024-05-02")
		if err != nil {
			t.Fatalf("GetRate failed: %v", err)
		}
		if ok {
			t.Error("expected miss for unseen date")
		}
	})
}
