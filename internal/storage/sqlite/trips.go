package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripledger/tripledger/internal/models"
	"github.com/tripledger/tripledger/internal/storage"
)

// CreateTrip persists a trip and enrolls its owner as the first member.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (id, title, description, start_date, end_date, owner_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Title, trip.Description,
		nullString(trip.StartDate), nullString(trip.EndDate),
		trip.OwnerID, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trip_members (trip_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		trip.ID, trip.OwnerID, models.RoleOwner, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTrip retrieves a trip by ID.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	var startDate, endDate sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, start_date, end_date, owner_id, created_at
		 FROM trips WHERE id = ?`,
		tripID,
	).Scan(&trip.ID, &trip.Title, &trip.Description, &startDate, &endDate, &trip.OwnerID, &trip.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip not found: %s", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	trip.StartDate = startDate.String
	trip.EndDate = endDate.String
	return trip, nil
}

// ListTripsByUser retrieves every trip the user is a member of, newest
// first.
func (s *SQLiteStore) ListTripsByUser(ctx context.Context, userID string) ([]*models.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.title, t.description, t.start_date, t.end_date, t.owner_id, t.created_at
		 FROM trips t
		 JOIN trip_members m ON m.trip_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		var startDate, endDate sql.NullString
		if err := rows.Scan(&trip.ID, &trip.Title, &trip.Description, &startDate, &endDate,
			&trip.OwnerID, &trip.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trip.StartDate = startDate.String
		trip.EndDate = endDate.String
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}
	return trips, nil
}

// AddTripMember enrolls a user into a trip. Enrolling an existing member
// is a no-op, preserving the one-membership-per-(trip,user) invariant.
func (s *SQLiteStore) AddTripMember(ctx context.Context, member *models.TripMember) error {
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}
	if member.Role == "" {
		member.Role = models.RoleMember
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trip_members (trip_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(trip_id, user_id) DO NOTHING`,
		member.TripID, member.UserID, member.Role, member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add trip member: %w", err)
	}
	return nil
}

// ListTripMembers retrieves a trip's membership records ordered by join
// time.
func (s *SQLiteStore) ListTripMembers(ctx context.Context, tripID string) ([]*models.TripMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trip_id, user_id, role, joined_at FROM trip_members
		 WHERE trip_id = ? ORDER BY joined_at, user_id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip members: %w", err)
	}
	defer rows.Close()

	var members []*models.TripMember
	for rows.Next() {
		member := &models.TripMember{}
		if err := rows.Scan(&member.TripID, &member.UserID, &member.Role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trip members: %w", err)
	}
	return members, nil
}

// IsTripMember reports whether the user belongs to the trip.
func (s *SQLiteStore) IsTripMember(ctx context.Context, tripID, userID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM trip_members WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	).Scan(&exists)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check trip membership: %w", err)
	}
	return true, nil
}

// CreateInvite persists a new trip invite.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *models.TripInvite) error {
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.Token == "" {
		invite.Token = uuid.New().String()
	}
	if invite.CreatedAt == 0 {
		invite.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trip_invites (id, trip_id, token, created_by, created_at, expires_at, is_used)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		invite.ID, invite.TripID, invite.Token, invite.CreatedBy, invite.CreatedAt, invite.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	return nil
}

// GetInviteByToken retrieves an invite by its token.
func (s *SQLiteStore) GetInviteByToken(ctx context.Context, token string) (*models.TripInvite, error) {
	invite := &models.TripInvite{}
	var usedBy sql.NullString
	var usedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, token, created_by, created_at, expires_at, is_used, used_by, used_at
		 FROM trip_invites WHERE token = ?`,
		token,
	).Scan(&invite.ID, &invite.TripID, &invite.Token, &invite.CreatedBy,
		&invite.CreatedAt, &invite.ExpiresAt, &invite.IsUsed, &usedBy, &usedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}

	invite.UsedBy = usedBy.String
	invite.UsedAt = usedAt.Int64
	return invite, nil
}

// ConsumeInvite atomically marks an invite used. The guarded UPDATE makes
// the transition exactly-once under concurrent joins.
func (s *SQLiteStore) ConsumeInvite(ctx context.Context, inviteID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trip_invites SET is_used = 1, used_by = ?, used_at = ?
		 WHERE id = ? AND is_used = 0`,
		userID, time.Now().Unix(), inviteID,
	)
	if err != nil {
		return fmt.Errorf("failed to consume invite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check invite update: %w", err)
	}
	if affected == 0 {
		return storage.ErrInviteConsumed
	}
	return nil
}

// CreateCategory persists a new expense category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (id, name) VALUES (?, ?)",
		category.ID, category.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// ListCategories retrieves all categories ordered by name.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
