// Package auth handles user registration, credential verification and
// session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tripledger/tripledger/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// UserStorage is the slice of the storage layer the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticator registers accounts and verifies credentials using bcrypt
// password hashes.
type Authenticator struct {
	storage UserStorage
	cost    int
}

// NewAuthenticator creates an authenticator. A non-positive cost falls
// back to bcrypt.DefaultCost.
func NewAuthenticator(storage UserStorage, cost int) *Authenticator {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Authenticator{storage: storage, cost: cost}
}

// Register creates a new user account with a hashed password.
func (a *Authenticator) Register(ctx context.Context, email, displayName, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(email, displayName, string(hash))
	if err := a.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email and password, returning the user if
// valid. Unknown emails and wrong passwords are indistinguishable to the
// caller.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
