package service

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tripledger/tripledger/internal/middleware"
	"github.com/tripledger/tripledger/internal/models"
	"github.com/tripledger/tripledger/internal/storage"
)

// TripService handles trips, memberships and invites.
type TripService struct {
	store storage.Store
}

// NewTripService creates a TripService with the given storage backend.
func NewTripService(store storage.Store) *TripService {
	return &TripService{store: store}
}

type tripOut struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   int64  `json:"created_at"`
}

func toTripOut(trip *models.Trip) tripOut {
	return tripOut{
		ID:          trip.ID,
		Title:       trip.Title,
		Description: trip.Description,
		StartDate:   trip.StartDate,
		EndDate:     trip.EndDate,
		OwnerID:     trip.OwnerID,
		CreatedAt:   trip.CreatedAt,
	}
}

// Create handles POST /api/trips. The creator becomes the trip's owner
// and first member.
func (s *TripService) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	trip := &models.Trip{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		OwnerID:     userID,
	}
	if err := s.store.CreateTrip(r.Context(), trip); err != nil {
		slog.Error("CreateTrip failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	slog.Info("Trip created", "trip_id", trip.ID, "owner_id", userID)
	writeJSON(w, http.StatusCreated, toTripOut(trip))
}

// List handles GET /api/trips, returning the trips the user belongs to.
func (s *TripService) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	trips, err := s.store.ListTripsByUser(r.Context(), userID)
	if err != nil {
		slog.Error("ListTripsByUser failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]tripOut, 0, len(trips))
	for _, trip := range trips {
		out = append(out, toTripOut(trip))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/trips/{tripID}.
func (s *TripService) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	trip, err := s.store.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripOut(trip))
}

// Members handles GET /api/trips/{tripID}/members.
func (s *TripService) Members(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	members, err := s.store.ListTripMembers(r.Context(), tripID)
	if err != nil {
		slog.Error("ListTripMembers failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	type memberOut struct {
		UserID   string `json:"user_id"`
		Role     string `json:"role"`
		JoinedAt int64  `json:"joined_at"`
	}
	out := make([]memberOut, 0, len(members))
	for _, m := range members {
		out = append(out, memberOut{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateInvite handles POST /api/trips/{tripID}/invites. Any member can
// invite; tokens are single-use and expire after the requested number of
// hours (default 168, a week).
func (s *TripService) CreateInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tripID := r.PathValue("tripID")
	if !requireMember(w, r, s.store, tripID, userID) {
		return
	}

	var req struct {
		ExpiresInHours int `json:"expires_in_hours"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.ExpiresInHours <= 0 {
		req.ExpiresInHours = 168
	}

	invite := &models.TripInvite{
		TripID:    tripID,
		CreatedBy: userID,
		ExpiresAt: time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour).Unix(),
	}
	if err := s.store.CreateInvite(r.Context(), invite); err != nil {
		slog.Error("CreateInvite failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      invite.Token,
		"expires_at": invite.ExpiresAt,
	})
}

// Join handles POST /api/invites/{token}/join. The invite is consumed
// atomically so two racing joins cannot both claim it.
func (s *TripService) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	invite, err := s.store.GetInviteByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if invite.IsUsed {
		writeError(w, http.StatusConflict, errors.New("invite already used"))
		return
	}
	if invite.ExpiresAt != 0 && invite.ExpiresAt < time.Now().Unix() {
		writeError(w, http.StatusGone, errors.New("invite expired"))
		return
	}

	// Already a member: nothing to consume, joining again is harmless.
	alreadyMember, err := s.store.IsTripMember(r.Context(), invite.TripID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if alreadyMember {
		writeJSON(w, http.StatusOK, map[string]string{"trip_id": invite.TripID})
		return
	}

	if err := s.store.ConsumeInvite(r.Context(), invite.ID, userID); err != nil {
		if errors.Is(err, storage.ErrInviteConsumed) {
			writeError(w, http.StatusConflict, err)
			return
		}
		slog.Error("ConsumeInvite failed", "invite_id", invite.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.AddTripMember(r.Context(), &models.TripMember{
		TripID: invite.TripID,
		UserID: userID,
	}); err != nil {
		slog.Error("AddTripMember failed", "trip_id", invite.TripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	slog.Info("Member joined via invite", "trip_id", invite.TripID, "user_id", userID,
		"email", middleware.GetEmail(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"trip_id": invite.TripID})
}
