package service

import (
	"context"
	"errors"
	"strings"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

// TokenLabel is the name given to tokens issued by register and login.
const TokenLabel = "auth_token"

// AuthService implements register, login and logout on top of a
// UserStore and a TokenIssuer.
type AuthService struct {
	users  *UserStore
	tokens *TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(users *UserStore, tokens *TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a user and issues its first token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	u, err := s.users.Create(ctx, name, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(ctx, u, TokenLabel)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks the credentials and issues a new token. Unknown email and
// wrong password both yield apperr.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	v := apperr.NewValidationError()
	required(v, "email", email)
	required(v, "password", password)
	if err := v.OrNil(); err != nil {
		return nil, "", err
	}

	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, "", err
	}
	if !s.users.VerifyPassword(u, password) {
		return nil, "", apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, u, TokenLabel)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return s.tokens.Resolve(ctx, token)
}

// Logout revokes only the token the request was made with.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// LogoutAll revokes every token of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	_, err := s.tokens.RevokeAll(ctx, userID)
	return err
}
