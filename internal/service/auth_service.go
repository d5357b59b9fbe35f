package service

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tripledger/tripledger/internal/auth"
	"github.com/tripledger/tripledger/internal/models"
)

// AuthService handles registration and login.
type AuthService struct {
	authenticator *auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates an AuthService.
func NewAuthService(authenticator *auth.Authenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{authenticator: authenticator, jwtManager: jwtManager}
}

type userOut struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func toUserOut(user *models.User) userOut {
	return userOut{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}
}

type authResponse struct {
	Token string  `json:"token"`
	User  userOut `json:"user"`
}

// Register handles POST /api/auth/register.
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Email == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, errors.New("email and display_name are required"))
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, auth.ErrEmailExists):
			writeError(w, http.StatusConflict, err)
		default:
			slog.Error("Register failed", "error", err)
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Token generation failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	slog.Info("User registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserOut(user)})
}

// Login handles POST /api/auth/login.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Token generation failed", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserOut(user)})
}
