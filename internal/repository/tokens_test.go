package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokenMock(t *testing.T) (*PostgresTokenRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresTokenRepository(db), mock
}

func TestCreateToken(t *testing.T) {
	repo, mock := setupTokenMock(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO personal_access_tokens (user_id, name, token_hash, expires_at)`)).
		WithArgs(int64(1), "auth_token", "digest", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), now))

	tok := &models.Token{UserID: 1, Name: "auth_token", Hash: "digest"}
	require.NoError(t, repo.CreateToken(context.Background(), tok))
	assert.Equal(t, int64(9), tok.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByTokenHash(t *testing.T) {
	repo, mock := setupTokenMock(t)

	now := time.Now()
	query := regexp.QuoteMeta(`FROM personal_access_tokens t JOIN users u ON u.id = t.user_id`)
	mock.ExpectQuery(query).
		WithArgs("live", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "created_at", "updated_at"}).
			AddRow(int64(4), "A", "a@x.com", now, now))
	mock.ExpectQuery(query).
		WithArgs("revoked", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "created_at", "updated_at"}))
	mock.ExpectQuery(query).
		WithArgs("broken", now).
		WillReturnError(errors.New("conn reset"))

	u, err := repo.GetUserByTokenHash(context.Background(), "live", now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), u.ID)

	_, err = repo.GetUserByTokenHash(context.Background(), "revoked", now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.GetUserByTokenHash(context.Background(), "broken", now)
	var pe *apperr.PersistenceError
	assert.ErrorAs(t, err, &pe)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTokenByHash(t *testing.T) {
	repo, mock := setupTokenMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM personal_access_tokens WHERE token_hash = $1`)).
		WithArgs("digest").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.DeleteTokenByHash(context.Background(), "digest"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTokensByUser(t *testing.T) {
	repo, mock := setupTokenMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM personal_access_tokens WHERE user_id = $1`)).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteTokensByUser(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
