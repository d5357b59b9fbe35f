package service

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/fx"
	"github.com/tripledger/tripledger/internal/ledger"
	"github.com/tripledger/tripledger/internal/storage"
)

// BalanceService exposes the computed views over a trip's ledger: the
// balance sheet with suggested transfers, spending statistics, and the
// currency directory backing expense entry.
type BalanceService struct {
	store      storage.Store
	engine     *ledger.Engine
	normalizer *fx.Normalizer
}

// NewBalanceService creates a BalanceService.
func NewBalanceService(store storage.Store, engine *ledger.Engine, normalizer *fx.Normalizer) *BalanceService {
	return &BalanceService{store: store, engine: engine, normalizer: normalizer}
}

// Balance handles GET /api/trips/{tripID}/balance. The sheet is computed
// fresh from the full expense and settlement history on every call.
func (s *BalanceService) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	sheet, err := s.engine.ComputeBalance(r.Context(), tripID)
	if err != nil {
		slog.Error("ComputeBalance failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

type statLine struct {
	Key    string `json:"key"`
	Amount string `json:"amount"`
}

// Stats handles GET /api/trips/{tripID}/stats. Totals are computed over
// home currency amounts so multi-currency trips aggregate sensibly.
// Expenses without a category land under "Uncategorized".
func (s *BalanceService) Stats(w http.ResponseWriter, r *http.Request) {
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
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.Error("ListCategories failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	byPayer := make(map[string]decimal.Decimal)
	for _, expense := range expenses {
		total = total.Add(expense.AmountHome)

		name := categoryNames[expense.CategoryID]
		if name == "" {
			name = "Uncategorized"
		}
		byCategory[name] = byCategory[name].Add(expense.AmountHome)
		byPayer[expense.PayerID] = byPayer[expense.PayerID].Add(expense.AmountHome)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_home":    total.StringFixed(2),
		"home_currency": s.normalizer.Home(),
		"by_category":   statLines(byCategory),
		"by_payer":      statLines(byPayer),
	})
}

// statLines renders a totals map sorted by amount descending, then key,
// so the response is stable.
func statLines(totals map[string]decimal.Decimal) []statLine {
	out := make([]statLine, 0, len(totals))
	for key, amount := range totals {
		out = append(out, statLine{Key: key, Amount: amount.StringFixed(2)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := totals[out[i].Key], totals[out[j].Key]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Currencies handles GET /api/currencies, serving the provider's currency
// directory. The normalizer caches it so repeated calls stay cheap.
func (s *BalanceService) Currencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := s.normalizer.SupportedCurrencies(r.Context())
	if err != nil {
		slog.Error("SupportedCurrencies failed", "error", err)
		writeFxError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, currencies)
}
