package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tripledger/tripledger/internal/models"
	"github.com/tripledger/tripledger/internal/storage"
)

// SettlementService handles the settle-up flow. Settlements start pending
// and only count against balances once the receiver confirms them.
type SettlementService struct {
	store storage.Store
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(store storage.Store) *SettlementService {
	return &SettlementService{store: store}
}

type settlementOut struct {
	ID          string `json:"id"`
	TripID      string `json:"trip_id"`
	FromUserID  string `json:"from_user_id"`
	ToUserID    string `json:"to_user_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	ConfirmedAt int64  `json:"confirmed_at,omitempty"`
}

func toSettlementOut(s *models.Settlement) settlementOut {
	return settlementOut{
		ID:          s.ID,
		TripID:      s.TripID,
		FromUserID:  s.FromUserID,
		ToUserID:    s.ToUserID,
		Amount:      s.Amount.StringFixed(2),
		Currency:    s.Currency,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		ConfirmedAt: s.ConfirmedAt,
	}
}

// Create handles POST /api/trips/{tripID}/settlements. The payer records
// that they paid another member back; the row stays pending until the
// receiver confirms it.
func (s *SettlementService) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	var req struct {
		ToUserID string `json:"to_user_id"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid amount: %q", req.Amount))
		return
	}
	if !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, errors.New("amount must be positive"))
		return
	}
	if req.ToUserID == userID {
		writeError(w, http.StatusBadRequest, errors.New("cannot settle with yourself"))
		return
	}
	receiverIsMember, err := s.store.IsTripMember(r.Context(), tripID, req.ToUserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !receiverIsMember {
		writeError(w, http.StatusBadRequest, errors.New("receiver is not a member of this trip"))
		return
	}

	settlement := &models.Settlement{
		TripID:     tripID,
		FromUserID: userID,
		ToUserID:   req.ToUserID,
		Amount:     amount.Round(2),
		Currency:   req.Currency,
	}
	if err := s.store.CreateSettlement(r.Context(), settlement); err != nil {
		slog.Error("CreateSettlement failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	slog.Info("Settlement recorded", "settlement_id", settlement.ID, "trip_id", tripID,
		"from", settlement.FromUserID, "to", settlement.ToUserID, "amount", settlement.Amount)
	writeJSON(w, http.StatusCreated, toSettlementOut(settlement))
}

// List handles GET /api/trips/{tripID}/settlements.
func (s *SettlementService) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	settlements, err := s.store.ListSettlementsByTrip(r.Context(), tripID)
	if err != nil {
		slog.Error("ListSettlementsByTrip failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]settlementOut, 0, len(settlements))
	for _, settlement := range settlements {
		out = append(out, toSettlementOut(settlement))
	}
	writeJSON(w, http.StatusOK, out)
}

// Confirm handles POST /api/trips/{tripID}/settlements/{settlementID}/confirm.
// Only the receiver can confirm, and confirmation happens at most once even
// under concurrent requests; the storage layer guards the transition.
func (s *SettlementService) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	settlement, err := s.store.GetSettlement(r.Context(), r.PathValue("settlementID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if settlement.TripID != tripID {
		writeError(w, http.StatusNotFound, fmt.Errorf("settlement not found in trip %s", tripID))
		return
	}
	if settlement.ToUserID != userID {
		writeError(w, http.StatusForbidden, errors.New("only the receiver can confirm a settlement"))
		return
	}

	confirmedAt := time.Now().Unix()
	if err := s.store.ConfirmSettlement(r.Context(), settlement.ID, confirmedAt); err != nil {
		if errors.Is(err, storage.ErrAlreadyConfirmed) {
			writeError(w, http.StatusConflict, err)
			return
		}
		slog.Error("ConfirmSettlement failed", "settlement_id", settlement.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	settlement.Status = models.SettlementConfirmed
	settlement.ConfirmedAt = confirmedAt
	slog.Info("Settlement confirmed", "settlement_id", settlement.ID, "trip_id", tripID)
	writeJSON(w, http.StatusOK, toSettlementOut(settlement))
}
