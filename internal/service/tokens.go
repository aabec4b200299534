package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

// tokenBytes is the entropy of an issued token: 256 bits.
const tokenBytes = 32

// TokenRepository defines the persistence operations required by TokenIssuer.
type TokenRepository interface {
	CreateToken(ctx context.Context, t *models.Token) error
	// GetUserByTokenHash returns the owner of a live token or apperr.ErrNotFound.
	GetUserByTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error)
	DeleteTokenByHash(ctx context.Context, hash string) error
	DeleteTokensByUser(ctx context.Context, userID int64) (int64, error)
}

// TokenIssuer issues, resolves and revokes opaque bearer tokens.
//
// A token is Active from Issue until Revoke, RevokeAll or its optional
// expiry; Revoked is terminal. Only SHA-256 digests are persisted.
type TokenIssuer struct {
	repo TokenRepository
	ttl  time.Duration

	now  func() time.Time
	rand io.Reader
}

// NewTokenIssuer constructs a TokenIssuer. A zero ttl issues tokens that never expire.
func NewTokenIssuer(repo TokenRepository, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		repo: repo,
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
		rand: rand.Reader,
	}
}

// HashToken returns the hex SHA-256 digest under which token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func wellFormed(token string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(raw) == tokenBytes
}

// Issue creates a new token labelled label for u and returns its plaintext.
func (t *TokenIssuer) Issue(ctx context.Context, u *models.User, label string) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(t.rand, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)

	rec := &models.Token{UserID: u.ID, Name: label, Hash: HashToken(plain)}
	if t.ttl > 0 {
		exp := t.now().Add(t.ttl)
		rec.ExpiresAt = &exp
	}
	if err := t.repo.CreateToken(ctx, rec); err != nil {
		return "", err
	}
	return plain, nil
}

// Resolve returns the user bound to token. Absent, malformed, expired and
// revoked tokens all yield apperr.ErrUnauthenticated.
func (t *TokenIssuer) Resolve(ctx context.Context, token string) (*models.User, error) {
	if !wellFormed(token) {
		return nil, apperr.ErrUnauthenticated
	}
	u, err := t.repo.GetUserByTokenHash(ctx, HashToken(token), t.now())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthenticated
		}
		return nil, err
	}
	return u, nil
}

// Revoke deletes exactly token. Revoking an unknown token is a no-op.
func (t *TokenIssuer) Revoke(ctx context.Context, token string) error {
	if !wellFormed(token) {
		return nil
	}
	return t.repo.DeleteTokenByHash(ctx, HashToken(token))
}

// RevokeAll deletes every token of userID.
func (t *TokenIssuer) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	return t.repo.DeleteTokensByUser(ctx, userID)
}
