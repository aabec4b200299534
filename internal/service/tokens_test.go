package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_IssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	repo := newMemTokenRepo()
	issuer := NewTokenIssuer(repo, 0)
	user := &models.User{ID: 7}

	token, err := issuer.Issue(ctx, user, TokenLabel)
	require.NoError(t, err)
	assert.True(t, wellFormed(token))

	for hash := range repo.tokens {
		assert.NotEqual(t, token, hash, "plaintext must not be persisted")
		assert.Equal(t, HashToken(token), hash)
	}

	got, err := issuer.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)

	require.NoError(t, issuer.Revoke(ctx, token))
	_, err = issuer.Resolve(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.NoError(t, issuer.Revoke(ctx, token), "revoking twice is a no-op")
}

func TestTokenIssuer_Unique(t *testing.T) {
	issuer := NewTokenIssuer(newMemTokenRepo(), 0)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := issuer.Issue(context.Background(), &models.User{ID: 1}, TokenLabel)
		require.NoError(t, err)
		require.False(t, seen[tok], "duplicate token issued")
		seen[tok] = true
	}
}

func TestTokenIssuer_ResolveRejectsMalformed(t *testing.T) {
	issuer := NewTokenIssuer(newMemTokenRepo(), 0)
	for _, tok := range []string{"", "abc", "!!!!", "1|plaintexttoken"} {
		_, err := issuer.Resolve(context.Background(), tok)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated, tok)
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(newMemTokenRepo(), time.Hour)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue(ctx, &models.User{ID: 1}, TokenLabel)
	require.NoError(t, err)

	_, err = issuer.Resolve(ctx, token)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = issuer.Resolve(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestTokenIssuer_RevokeAll(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(newMemTokenRepo(), 0)

	a1, _ := issuer.Issue(ctx, &models.User{ID: 1}, TokenLabel)
	a2, _ := issuer.Issue(ctx, &models.User{ID: 1}, TokenLabel)
	b, _ := issuer.Issue(ctx, &models.User{ID: 2}, TokenLabel)

	n, err := issuer.RevokeAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, tok := range []string{a1, a2} {
		_, err := issuer.Resolve(ctx, tok)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	}
	_, err = issuer.Resolve(ctx, b)
	assert.NoError(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestTokenIssuer_RandomFailure(t *testing.T) {
	issuer := NewTokenIssuer(newMemTokenRepo(), 0)
	issuer.rand = failingReader{}
	_, err := issuer.Issue(context.Background(), &models.User{ID: 1}, TokenLabel)
	assert.ErrorContains(t, err, "generate token")
}
