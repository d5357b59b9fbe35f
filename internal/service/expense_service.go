package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/fx"
	"github.com/tripledger/tripledger/internal/models"
	"github.com/tripledger/tripledger/internal/storage"
)

// ExpenseService handles expenses, shares and categories. Expense writes
// run through the currency normalizer so every row carries its home
// currency equivalent alongside the original amount.
type ExpenseService struct {
	store      storage.Store
	normalizer *fx.Normalizer
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(store storage.Store, normalizer *fx.Normalizer) *ExpenseService {
	return &ExpenseService{store: store, normalizer: normalizer}
}

type shareIn struct {
	UserID string `json:"user_id"`
	Weight string `json:"weight"`
}

type expenseIn struct {
	Title      string    `json:"title"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	CategoryID string    `json:"category_id"`
	SpentAt    string    `json:"spent_at"` // RFC 3339, optional
	Shares     []shareIn `json:"shares"`   // default: all members, weight 1
}

type shareOut struct {
	UserID string `json:"user_id"`
	Weight string `json:"weight"`
}

type expenseOut struct {
	ID         string     `json:"id"`
	TripID     string     `json:"trip_id"`
	PayerID    string     `json:"payer_id"`
	Title      string     `json:"title"`
	Amount     string     `json:"amount"`
	Currency   string     `json:"currency"`
	CategoryID string     `json:"category_id,omitempty"`
	SpentAt    int64      `json:"spent_at,omitempty"`
	FxRate     string     `json:"fx_rate"`
	AmountHome string     `json:"amount_home"`
	CreatedAt  int64      `json:"created_at"`
	Shares     []shareOut `json:"shares"`
}

func toExpenseOut(expense *models.Expense) expenseOut {
	out := expenseOut{
		ID:         expense.ID,
		TripID:     expense.TripID,
		PayerID:    expense.PayerID,
		Title:      expense.Title,
		Amount:     expense.Amount.StringFixed(2),
		Currency:   expense.Currency,
		CategoryID: expense.CategoryID,
		SpentAt:    expense.SpentAt,
		FxRate:     expense.FxRate.StringFixed(6),
		AmountHome: expense.AmountHome.StringFixed(2),
		CreatedAt:  expense.CreatedAt,
		Shares:     make([]shareOut, 0, len(expense.Shares)),
	}
	for _, share := range expense.Shares {
		out.Shares = append(out.Shares, shareOut{UserID: share.UserID, Weight: share.Weight.String()})
	}
	return out
}

// parseExpenseIn validates the request body and resolves shares against
// the trip's membership. Omitted shares default to an equal split across
// every member.
func (s *ExpenseService) parseExpenseIn(r *http.Request, tripID string, req *expenseIn) (*models.Expense, error) {
	if req.Title == "" {
		return nil, errors.New("title is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %q", req.Amount)
	}
	if !amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	if req.Currency == "" {
		return nil, errors.New("currency is required")
	}

	var spentAt int64
	if req.SpentAt != "" {
		ts, err := time.Parse(time.RFC3339, req.SpentAt)
		if err != nil {
			return nil, fmt.Errorf("invalid spent_at: %q", req.SpentAt)
		}
		spentAt = ts.Unix()
	}

	members, err := s.store.ListTripMembers(r.Context(), tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip members: %w", err)
	}
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m.UserID] = true
	}

	var shares []models.ExpenseShare
	if len(req.Shares) == 0 {
		for _, m := range members {
			shares = append(shares, models.ExpenseShare{UserID: m.UserID, Weight: decimal.New(1, 0)})
		}
	} else {
		for _, in := range req.Shares {
			if !memberSet[in.UserID] {
				return nil, fmt.Errorf("share user %s is not a member of the trip", in.UserID)
			}
			weight := decimal.New(1, 0)
			if in.Weight != "" {
				if weight, err = decimal.NewFromString(in.Weight); err != nil {
					return nil, fmt.Errorf("invalid share weight: %q", in.Weight)
				}
				if !weight.IsPositive() {
					return nil, errors.New("share weight must be positive")
				}
			}
			shares = append(shares, models.ExpenseShare{UserID: in.UserID, Weight: weight})
		}
	}

	return &models.Expense{
		TripID:     tripID,
		Title:      req.Title,
		Amount:     amount.Round(2),
		Currency:   req.Currency,
		CategoryID: req.CategoryID,
		SpentAt:    spentAt,
		Shares:     shares,
	}, nil
}

// normalize stamps the expense with its fx rate and home currency amount
// for the spend date (or today when the spend date is unknown).
func (s *ExpenseService) normalize(r *http.Request, expense *models.Expense) error {
	date := time.Now().UTC()
	if expense.SpentAt != 0 {
		date = time.Unix(expense.SpentAt, 0).UTC()
	}
	rate, amountHome, err := s.normalizer.Convert(r.Context(), expense.Amount, expense.Currency, date.Format(time.DateOnly))
	if err != nil {
		return err
	}
	expense.FxRate = rate
	expense.AmountHome = amountHome
	return nil
}

func writeFxError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fx.ErrInvalidRateData):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, fx.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// Create handles POST /api/trips/{tripID}/expenses.
func (s *ExpenseService) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	var req expenseIn
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.parseExpenseIn(r, tripID, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense.PayerID = userID

	if err := s.normalize(r, expense); err != nil {
		slog.Error("Expense normalization failed", "trip_id", tripID, "currency", expense.Currency, "error", err)
		writeFxError(w, err)
		return
	}

	if err := s.store.CreateExpense(r.Context(), expense); err != nil {
		slog.Error("CreateExpense failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	slog.Info("Expense recorded", "expense_id", expense.ID, "trip_id", tripID,
		"amount", expense.Amount, "currency", expense.Currency)
	writeJSON(w, http.StatusCreated, toExpenseOut(expense))
}

// List handles GET /api/trips/{tripID}/expenses.
func (s *ExpenseService) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	expenses, err := s.store.ListExpensesByTrip(r.Context(), tripID)
	if err != nil {
		slog.Error("ListExpensesByTrip failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]expenseOut, 0, len(expenses))
	for _, expense := range expenses {
		out = append(out, toExpenseOut(expense))
	}
	writeJSON(w, http.StatusOK, out)
}

// Update handles PUT /api/trips/{tripID}/expenses/{expenseID}. The fx
// rate and home amount are recomputed because the amount, currency or
// spend date may all have changed.
func (s *ExpenseService) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	existing, err := s.store.GetExpense(r.Context(), r.PathValue("expenseID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if existing.TripID != tripID {
		writeError(w, http.StatusNotFound, fmt.Errorf("expense not found in trip %s", tripID))
		return
	}

	var req expenseIn
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := s.parseExpenseIn(r, tripID, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	expense.ID = existing.ID
	expense.PayerID = existing.PayerID
	expense.CreatedAt = existing.CreatedAt

	if err := s.normalize(r, expense); err != nil {
		slog.Error("Expense normalization failed", "expense_id", expense.ID, "error", err)
		writeFxError(w, err)
		return
	}

	if err := s.store.UpdateExpense(r.Context(), expense); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expense.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseOut(expense))
}

// Delete handles DELETE /api/trips/{tripID}/expenses/{expenseID}.
func (s *ExpenseService) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	expense, err := s.store.GetExpense(r.Context(), r.PathValue("expenseID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if expense.TripID != tripID {
		writeError(w, http.StatusNotFound, fmt.Errorf("expense not found in trip %s", tripID))
		return
	}

	if err := s.store.DeleteExpense(r.Context(), expense.ID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/categories.
func (s *ExpenseService) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.Error("ListCategories failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	type categoryOut struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]categoryOut, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryOut{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateCategory handles POST /api/categories.
func (s *ExpenseService) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	category := &models.Category{Name: req.Name}
	if err := s.store.CreateCategory(r.Context(), category); err != nil {
		slog.Error("CreateCategory failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": category.ID, "name": category.Name})
}
