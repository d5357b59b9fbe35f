// Package service implements the HTTP handlers of the Tripledger API.
// Handlers decode JSON requests, enforce trip-membership authorization,
// call into storage and the core engines, and encode JSON responses.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tripledger/tripledger/internal/middleware"
	"github.com/tripledger/tripledger/internal/storage"
)

// errNotMember is returned when the authenticated user is not a member
// of the trip a route is scoped to.
var errNotMember = errors.New("you must be a member of this trip")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// requireUser extracts the authenticated user ID set by the auth
// middleware. Routes behind RequireAuth always have one; the check is a
// backstop for misconfigured routing.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
		return "", false
	}
	return userID, true
}

// requireMember answers whether userID belongs to the trip, writing a
// 403 otherwise. Access to a trip and everything it owns is limited to
// its members.
func requireMember(w http.ResponseWriter, r *http.Request, store storage.Store, tripID, userID string) bool {
	ok, err := store.IsTripMember(r.Context(), tripID, userID)
	if err != nil {
		slog.Error("Membership check failed", "trip_id", tripID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, errNotMember)
		return false
	}
	return true
}
