package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
	"github.com/tripledger/tripledger/internal/storage"
)

// CreateSettlement persists a new settlement. Settlements start pending.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}
	if settlement.Status == "" {
		settlement.Status = models.SettlementPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, trip_id, from_user_id, to_user_id, amount, currency, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.TripID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount.String(), settlement.Currency, settlement.Status, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := scanSettlement(s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, from_user_id, to_user_id, amount, currency, status, created_at, confirmed_at
		 FROM settlements WHERE id = ?`,
		settlementID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement not found: %s", settlementID)
	}
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// ListSettlementsByTrip retrieves all settlements for a trip, newest
// first.
func (s *SQLiteStore) ListSettlementsByTrip(ctx context.Context, tripID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, from_user_id, to_user_id, amount, currency, status, created_at, confirmed_at
		 FROM settlements WHERE trip_id = ? ORDER BY created_at DESC, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

// ConfirmSettlement transitions a settlement from pending to confirmed.
// The guarded UPDATE is the atomic exactly-once transition: a second
// confirmation finds no pending row and gets ErrAlreadyConfirmed, so a
// repayment can never be double-counted.
func (s *SQLiteStore) ConfirmSettlement(ctx context.Context, settlementID string, confirmedAt int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE settlements SET status = ?, confirmed_at = ?
		 WHERE id = ? AND status = ?`,
		models.SettlementConfirmed, confirmedAt, settlementID, models.SettlementPending,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm settlement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check settlement update: %w", err)
	}
	if affected == 0 {
		// Either absent or already confirmed; distinguish for the caller.
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM settlements WHERE id = ?", settlementID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("settlement not found: %s", settlementID)
		}
		if err != nil {
			return fmt.Errorf("failed to check settlement existence: %w", err)
		}
		return storage.ErrAlreadyConfirmed
	}
	return nil
}

func scanSettlement(row rowScanner) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var amount string
	var confirmedAt sql.NullInt64

	err := row.Scan(&settlement.ID, &settlement.TripID, &settlement.FromUserID, &settlement.ToUserID,
		&amount, &settlement.Currency, &settlement.Status, &settlement.CreatedAt, &confirmedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan settlement: %w", err)
	}

	settlement.ConfirmedAt = confirmedAt.Int64
	if settlement.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse settlement amount: %w", err)
	}
	return settlement, nil
}
