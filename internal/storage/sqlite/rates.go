package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
)

// GetRate reads the cached rate-to-home for (currency, date).
func (s *SQLiteStore) GetRate(ctx context.Context, currency, date string) (decimal.Decimal, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT rate_to_home FROM exchange_rates WHERE currency = ? AND date = ?",
		currency, date,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse exchange rate: %w", err)
	}
	return rate, true, nil
}

// PutRate upserts a rate entry. Concurrent cache fills for the same
// (currency, date) compute the same deterministic value, so last writer
// wins without corruption.
func (s *SQLiteStore) PutRate(ctx context.Context, rate *models.ExchangeRate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchange_rates (currency, date, rate_to_home) VALUES (?, ?, ?)
		 ON CONFLICT(currency, date) DO UPDATE SET rate_to_home = excluded.rate_to_home`,
		rate.Currency, rate.Date, rate.RateToHome.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}
	return nil
}
