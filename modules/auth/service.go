package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned when login credentials are invalid.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Reply codes carried by register and login responses. Business failures
// are answers, not service errors, so callers can tell them apart from
// transport failures.
const (
	codeValidation         = "validation"
	codeExists             = "exists"
	codeInvalidCredentials = "invalid_credentials"
)

// register creates an account and returns a token for it.
func (m *Module) register(ctx context.Context, req RegisterRequest, _ *mono.Msg) (TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	if err := chat.ValidateUsername(username); err != nil {
		return TokenResponse{Code: codeValidation, Error: err.Error()}, nil
	}
	if err := ValidatePassword(req.Password); err != nil {
		return TokenResponse{Code: codeValidation, Error: err.Error()}, nil
	}

	hash, err := m.hasher.Hash(req.Password)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	rec := &accountRecord{
		ID:           uuid.New().String(),
		Username:     username,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return TokenResponse{Code: codeExists, Error: err.Error()}, nil
		}
		return TokenResponse{}, err
	}

	m.logger.Info("Account registered", "username", username)
	return m.issue(rec)
}

// login checks credentials and returns a token.
func (m *Module) login(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	rec, err := m.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return TokenResponse{Code: codeInvalidCredentials, Error: ErrInvalidCredentials.Error()}, nil
		}
		return TokenResponse{}, err
	}
	if !m.hasher.Verify(req.Password, rec.PasswordHash) {
		return TokenResponse{Code: codeInvalidCredentials, Error: ErrInvalidCredentials.Error()}, nil
	}
	return m.issue(rec)
}

func (m *Module) issue(rec *accountRecord) (TokenResponse, error) {
	token, err := m.tokens.GenerateAccessToken(rec.ID, rec.Username, rec.DisplayName)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(m.tokens.config.AccessTokenDuration.Seconds()),
		UserID:      rec.ID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
	}, nil
}

// validateToken handles the validate-token service request.
// An invalid token is a normal answer, not a service error.
func (m *Module) validateToken(_ context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.tokens.ValidateAccessToken(req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: err.Error()}, nil
	}
	return ValidateTokenResponse{
		Valid:       true,
		UserID:      claims.Subject,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
	}, nil
}
