// Package repository provides PostgreSQL persistence for users, bearer tokens and recipes.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresUserRepository implements user persistence using a PostgreSQL database.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// EmailExists checks whether a user with the specified email exists.
func (s *PostgresUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, apperr.Persistence("check email", err)
	}
	return exists, nil
}

// CreateUser inserts u and fills in its generated ID and timestamps.
// A taken email yields apperr.ErrDuplicate.
func (s *PostgresUserRepository) CreateUser(ctx context.Context, u *models.User) error {
	err := s.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (name, email, password) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrDuplicate
		}
		return apperr.Persistence("insert user", err)
	}
	return nil
}

// GetUserByEmail returns the user with the given email or apperr.ErrNotFound.
func (s *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT id, name, email, password, created_at, updated_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("select user", err)
	}
	return &u, nil
}
