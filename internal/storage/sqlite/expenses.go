package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
)

// CreateExpense persists an expense together with its shares in one
// transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, trip_id, payer_id, title, amount, currency, category_id,
		                       spent_at, fx_rate, amount_home, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.TripID, expense.PayerID, expense.Title,
		expense.Amount.String(), expense.Currency, nullString(expense.CategoryID),
		expense.SpentAt, expense.FxRate.String(), expense.AmountHome.String(), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, expense.ID, expense.Shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense, err := s.scanExpenseRow(s.db.QueryRowContext(ctx,
		`SELECT id, trip_id, payer_id, title, amount, currency, category_id,
		        spent_at, fx_rate, amount_home, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense not found: %s", expenseID)
	}
	if err != nil {
		return nil, err
	}

	shares, err := s.loadShares(ctx, []string{expense.ID})
	if err != nil {
		return nil, err
	}
	expense.Shares = shares[expense.ID]
	return expense, nil
}

// UpdateExpense rewrites an expense and replaces its shares.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET title = ?, amount = ?, currency = ?, category_id = ?,
		        spent_at = ?, fx_rate = ?, amount_home = ?
		 WHERE id = ?`,
		expense.Title, expense.Amount.String(), expense.Currency, nullString(expense.CategoryID),
		expense.SpentAt, expense.FxRate.String(), expense.AmountHome.String(), expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check expense update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense not found: %s", expense.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to clear expense shares: %w", err)
	}
	if err := insertShares(ctx, tx, expense.ID, expense.Shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense; shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check expense delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense not found: %s", expenseID)
	}
	return nil
}

// ListExpensesByTrip retrieves a trip's expenses with shares, newest
// first.
func (s *SQLiteStore) ListExpensesByTrip(ctx context.Context, tripID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trip_id, payer_id, title, amount, currency, category_id,
		        spent_at, fx_rate, amount_home, created_at
		 FROM expenses WHERE trip_id = ? ORDER BY created_at DESC, id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	var ids []string
	for rows.Next() {
		expense, err := s.scanExpenseRow(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
		ids = append(ids, expense.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	shares, err := s.loadShares(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, expense := range expenses {
		expense.Shares = shares[expense.ID]
	}
	return expenses, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanExpenseRow(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount, fxRate, amountHome string
	var categoryID sql.NullString

	err := row.Scan(&expense.ID, &expense.TripID, &expense.PayerID, &expense.Title,
		&amount, &expense.Currency, &categoryID,
		&expense.SpentAt, &fxRate, &amountHome, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	expense.CategoryID = categoryID.String
	if expense.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse expense amount: %w", err)
	}
	if expense.FxRate, err = decimal.NewFromString(fxRate); err != nil {
		return nil, fmt.Errorf("failed to parse expense fx rate: %w", err)
	}
	if expense.AmountHome, err = decimal.NewFromString(amountHome); err != nil {
		return nil, fmt.Errorf("failed to parse expense home amount: %w", err)
	}
	return expense, nil
}

func insertShares(ctx context.Context, tx *sql.Tx, expenseID string, shares []models.ExpenseShare) error {
	for i := range shares {
		share := &shares[i]
		share.ExpenseID = expenseID
		if share.Weight.IsZero() {
			share.Weight = decimal.New(1, 0)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, user_id, weight) VALUES (?, ?, ?)",
			expenseID, share.UserID, share.Weight.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense share: %w", err)
		}
	}
	return nil
}

// loadShares fetches the shares for a set of expenses in one query.
func (s *SQLiteStore) loadShares(ctx context.Context, expenseIDs []string) (map[string][]models.ExpenseShare, error) {
	result := make(map[string][]models.ExpenseShare, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return result, nil
	}

	query := `SELECT expense_id, user_id, weight FROM expense_shares
	          WHERE expense_id IN (?` + repeatPlaceholder(len(expenseIDs)-1) + `)
	          ORDER BY expense_id, user_id`
	args := make([]interface{}, len(expenseIDs))
	for i, id := range expenseIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var share models.ExpenseShare
		var weight string
		if err := rows.Scan(&share.ExpenseID, &share.UserID, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan expense share: %w", err)
		}
		if share.Weight, err = decimal.NewFromString(weight); err != nil {
			return nil, fmt.Errorf("failed to parse share weight: %w", err)
		}
		result[share.ExpenseID] = append(result[share.ExpenseID], share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense shares: %w", err)
	}
	return result, nil
}

// repeatPlaceholder returns a string of ", ?" repeated n times. Used for
// building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	result := ""
	for i := 0; i < n; i++ {
		result += ", ?"
	}
	return result
}
