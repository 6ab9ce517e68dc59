package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/offsync/offsync/pkg/api"
)

// AuthHandler issues access tokens. The server runs with a single
// operator password; its bcrypt hash is supplied at startup.
type AuthHandler struct {
	logger       *slog.Logger
	passwordHash []byte
	jwtConfig    JWTConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *slog.Logger, passwordHash []byte, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		passwordHash: passwordHash,
		jwtConfig:    jwtConfig,
	}
}

// Token handles POST /api/v1/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode token request", slog.Any("error", err))
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Password == "" {
		sendError(w, "password is required", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		h.logger.WarnContext(ctx, "failed login attempt", slog.String("remote_addr", r.RemoteAddr))
		sendError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, "operator")
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "access token issued")

	sendJSON(w, api.TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}
