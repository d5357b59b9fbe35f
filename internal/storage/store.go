// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
)

var (
	// ErrAlreadyConfirmed reports a settlement confirmation that lost the
	// race: the row was already confirmed by an earlier call.
	ErrAlreadyConfirmed = errors.New("storage: settlement already confirmed")

	// ErrInviteConsumed reports a join attempt against an invite that was
	// already used. Invites are single-use.
	ErrInviteConsumed = errors.New("storage: invite already used")
)

// Store defines the persistence operations the service layer depends on.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail retrieves a user by email, or nil if absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID retrieves a user by ID, or nil if absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateTrip persists a trip and enrolls the owner as its first
	// member with the OWNER role.
	CreateTrip(ctx context.Context, trip *models.Trip) error
	// GetTrip retrieves a trip by ID.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	// ListTripsByUser retrieves every trip the user is a member of.
	ListTripsByUser(ctx context.Context, userID string) ([]*models.Trip, error)
	// AddTripMember enrolls a user into a trip. Adding an existing
	// member is a no-op; at most one membership exists per (trip, user).
	AddTripMember(ctx context.Context, member *models.TripMember) error
	// ListTripMembers retrieves a trip's membership records.
	ListTripMembers(ctx context.Context, tripID string) ([]*models.TripMember, error)
	// IsTripMember reports whether the user belongs to the trip.
	IsTripMember(ctx context.Context, tripID, userID string) (bool, error)

	// CreateInvite persists a new trip invite.
	CreateInvite(ctx context.Context, invite *models.TripInvite) error
	// GetInviteByToken retrieves an invite by its token.
	GetInviteByToken(ctx context.Context, token string) (*models.TripInvite, error)
	// ConsumeInvite atomically marks an invite used by the given user.
	// Returns ErrInviteConsumed if another join already claimed it.
	ConsumeInvite(ctx context.Context, inviteID, userID string) error

	// CreateCategory persists a new expense category.
	CreateCategory(ctx context.Context, category *models.Category) error
	// ListCategories retrieves all categories ordered by name.
	ListCategories(ctx context.Context) ([]*models.Category, error)

	// CreateExpense persists an expense together with its shares.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	// GetExpense retrieves an expense with its shares.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)
	// UpdateExpense rewrites an expense and replaces its shares.
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	// DeleteExpense removes an expense and its shares.
	DeleteExpense(ctx context.Context, expenseID string) error
	// ListExpensesByTrip retrieves a trip's expenses with shares,
	// newest first.
	ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error)

	// CreateSettlement persists a new pending settlement.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	// ListSettlementsByTrip retrieves a trip's settlements, newest first.
	ListSettlementsByTrip(ctx context.Context, tripID string) ([]*models.Settlement, error)
	// ConfirmSettlement transitions a settlement from pending to
	// confirmed exactly once. Returns ErrAlreadyConfirmed if the row is
	// no longer pending, so concurrent confirmations cannot double-count
	// a repayment.
	ConfirmSettlement(ctx context.Context, settlementID string, confirmedAt int64) error

	// GetRate reads the cached rate-to-home for (currency, date).
	GetRate(ctx context.Context, currency, date string) (decimal.Decimal, bool, error)
	// PutRate upserts a rate entry. Duplicate writes for the same key
	// carry identical values, so last-writer-wins is safe.
	PutRate(ctx context.Context, rate *models.ExchangeRate) error

	// Close releases any resources held by the store.
	Close() error
}
