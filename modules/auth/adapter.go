package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// IdentityPort resolves a bearer token into a chat identity.
type IdentityPort interface {
	Authenticate(ctx context.Context, token string) (*chat.Identity, error)
}

// AccountPort creates accounts and logs them in.
type AccountPort interface {
	Register(ctx context.Context, username, password, displayName string) (*Token, error)
	Login(ctx context.Context, username, password string) (*Token, error)
}

// Token is an issued access token and the identity it carries.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	Identity    *chat.Identity
}

// ValidationError is a refused registration carrying the failed rule.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IdentityAdapter implements IdentityPort and AccountPort using the service
// container.
type IdentityAdapter struct {
	container mono.ServiceContainer
}

// NewIdentityAdapter creates a new IdentityAdapter.
func NewIdentityAdapter(container mono.ServiceContainer) *IdentityAdapter {
	return &IdentityAdapter{
		container: container,
	}
}

// Authenticate validates an access token and returns the identity behind it.
// A rejected token yields an error wrapping chat.ErrUnauthenticated.
func (a *IdentityAdapter) Authenticate(ctx context.Context, token string) (*chat.Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", chat.ErrUnauthenticated, resp.Error)
	}

	return &chat.Identity{
		UserID:      resp.UserID,
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
	}, nil
}

// Register creates an account. A taken username yields ErrAccountExists and a
// rejected username or password a *ValidationError.
func (a *IdentityAdapter) Register(ctx context.Context, username, password, displayName string) (*Token, error) {
	req := RegisterRequest{Username: username, Password: password, DisplayName: displayName}
	return a.tokenCall(ctx, "register", &req)
}

// Login exchanges credentials for a token. Wrong credentials yield
// ErrInvalidCredentials.
func (a *IdentityAdapter) Login(ctx context.Context, username, password string) (*Token, error) {
	req := LoginRequest{Username: username, Password: password}
	return a.tokenCall(ctx, "login", &req)
}

func (a *IdentityAdapter) tokenCall(ctx context.Context, service string, req any) (*Token, error) {
	var resp TokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, service, json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}

	switch resp.Code {
	case "":
	case codeExists:
		return nil, ErrAccountExists
	case codeInvalidCredentials:
		return nil, ErrInvalidCredentials
	case codeValidation:
		return nil, &ValidationError{Reason: resp.Error}
	default:
		return nil, errors.New(resp.Error)
	}

	return &Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
		Identity: &chat.Identity{
			UserID:      resp.UserID,
			Username:    resp.Username,
			DisplayName: resp.DisplayName,
		},
	}, nil
}
