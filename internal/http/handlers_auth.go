package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"financebro/internal/auth"
	"financebro/internal/core"

	"github.com/google/uuid"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(sanitizeInput(req.Email))
	if !strings.Contains(email, "@") {
		writeError(w, http.StatusUnprocessableEntity, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password too short (min 8 characters)")
		return
	}

	if _, err := s.storage.GetUserByEmail(r.Context(), email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, core.ErrNotFound) {
		writeDomainError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.writeAuthResponse(w, r, user, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.storage.GetUserByEmail(r.Context(), strings.ToLower(sanitizeInput(req.Email)))
	if err != nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		// One message for unknown email and wrong password.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.writeAuthResponse(w, r, user, http.StatusOK)
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, r *http.Request, user core.User, status int) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to generate token", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, status, authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.TokenDuration().Seconds()),
		UserID:      user.ID,
		Email:       user.Email,
	})
}
