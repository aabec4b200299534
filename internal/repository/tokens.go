package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

// PostgresTokenRepository stores bearer token digests.
type PostgresTokenRepository struct {
	DB *sql.DB
}

// NewPostgresTokenRepository creates a new PostgresTokenRepository.
func NewPostgresTokenRepository(db *sql.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{DB: db}
}

// CreateToken inserts t and fills in its ID and creation time.
func (s *PostgresTokenRepository) CreateToken(ctx context.Context, t *models.Token) error {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO personal_access_tokens (user_id, name, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, t.UserID, t.Name, t.Hash, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return apperr.Persistence("insert token", err)
	}
	return nil
}

// GetUserByTokenHash returns the owner of the live token with the given digest.
// Unknown and expired tokens yield apperr.ErrNotFound.
func (s *PostgresTokenRepository) GetUserByTokenHash(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.created_at, u.updated_at
		FROM personal_access_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1 AND (t.expires_at IS NULL OR t.expires_at > $2)
	`, hash, now).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("select token", err)
	}
	return &u, nil
}

// DeleteTokenByHash deletes the token with the given digest. Deleting an
// absent token is not an error.
func (s *PostgresTokenRepository) DeleteTokenByHash(ctx context.Context, hash string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM personal_access_tokens WHERE token_hash = $1`, hash)
	return apperr.Persistence("delete token", err)
}

// DeleteTokensByUser deletes every token of userID and returns how many were removed.
func (s *PostgresTokenRepository) DeleteTokensByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM personal_access_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, apperr.Persistence("delete user tokens", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Persistence("delete user tokens", err)
	}
	return n, nil
}
