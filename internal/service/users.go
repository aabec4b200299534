// Package service provides the business logic for users, bearer tokens and
// recipes, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the persistence operations required by UserStore.
type UserRepository interface {
	// EmailExists returns true if a user with the given email exists.
	EmailExists(ctx context.Context, email string) (bool, error)
	// CreateUser inserts the user and fills in its ID. A taken email yields apperr.ErrDuplicate.
	CreateUser(ctx context.Context, u *models.User) error
	// GetUserByEmail returns the user or apperr.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserStore creates users and checks their passwords.
type UserStore struct {
	repo UserRepository
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserStore constructs a UserStore hashing passwords with bcrypt.DefaultCost.
func NewUserStore(repo UserRepository) *UserStore {
	return &UserStore{repo: repo, cost: bcrypt.DefaultCost}
}

const emailTaken = "The email has already been taken."

// Create validates the input, hashes the password and persists a new user.
// It fails with *apperr.ValidationError on bad input or a taken email.
func (s *UserStore) Create(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if err := validateRegistration(name, email, password).OrNil(); err != nil {
		return nil, err
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.FieldError("email", emailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Persistence("hash password", err)
	}

	u := &models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.FieldError("email", emailTaken)
		}
		return nil, err
	}
	return u, nil
}

// FindByEmail returns the user with email or apperr.ErrNotFound.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
}

// VerifyPassword reports whether plaintext matches the stored digest of u.
// bcrypt compares in constant time. A nil user is checked against a dummy
// digest so that unknown emails cost the same as wrong passwords.
func (s *UserStore) VerifyPassword(u *models.User, plaintext string) bool {
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(plaintext)) == nil
}

func (s *UserStore) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("recipe-keeper-dummy-password"), s.cost)
	})
	return s.dummyHash
}
