package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	jpegBytes = append([]byte("\xff\xd8\xff\xe0"), bytes.Repeat([]byte{0}, 32)...)
)

type mockUserRepo struct {
	EmailExistsFunc    func(ctx context.Context, email string) (bool, error)
	CreateUserFunc     func(ctx context.Context, u *models.User) error
	GetUserByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return m.EmailExistsFunc(ctx, email)
}
func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.GetUserByEmailFunc(ctx, email)
}

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*models.User{}}
}

func (r *memUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[email]
	return ok, nil
}

func (r *memUserRepo) CreateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return apperr.ErrDuplicate
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// memTokenRepo is an in-memory TokenRepository.
type memTokenRepo struct {
	mu     sync.Mutex
	nextID int64
	tokens map[string]models.Token
	users  map[int64]*models.User
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]models.Token{}, users: map[int64]*models.User{}}
}

func (r *memTokenRepo) CreateToken(_ context.Context, t *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.Hash]; ok {
		return errors.New("duplicate token hash")
	}
	r.nextID++
	t.ID = r.nextID
	r.tokens[t.Hash] = *t
	if _, ok := r.users[t.UserID]; !ok {
		r.users[t.UserID] = &models.User{ID: t.UserID}
	}
	return nil
}

func (r *memTokenRepo) GetUserByTokenHash(_ context.Context, hash string, now time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[hash]
	if !ok || (t.ExpiresAt != nil && !t.ExpiresAt.After(now)) {
		return nil, apperr.ErrNotFound
	}
	u := *r.users[t.UserID]
	return &u, nil
}

func (r *memTokenRepo) DeleteTokenByHash(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, hash)
	return nil
}

func (r *memTokenRepo) DeleteTokensByUser(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for h, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, h)
			n++
		}
	}
	return n, nil
}

// memRecipeRepo is an in-memory RecipeRepository.
type memRecipeRepo struct {
	mu        sync.Mutex
	nextID    int64
	recipes   map[int64]models.Recipe
	createErr error
	updateErr error
	lastList  models.ListFilter
}

func newMemRecipeRepo() *memRecipeRepo {
	return &memRecipeRepo{recipes: map[int64]models.Recipe{}}
}

func (r *memRecipeRepo) ListRecipes(_ context.Context, f models.ListFilter) ([]models.Recipe, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = f
	var out []models.Recipe
	for _, rec := range r.recipes {
		if f.Category != nil && (rec.Category == nil || *rec.Category != *f.Category) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := (f.Page - 1) * models.PageSize
	if start > len(out) {
		start = len(out)
	}
	end := start + models.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *memRecipeRepo) GetRecipeByID(_ context.Context, id int64) (*models.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &rec, nil
}

func (r *memRecipeRepo) CreateRecipe(_ context.Context, rec *models.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	rec.ID = r.nextID
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	r.recipes[rec.ID] = *rec
	return nil
}

func (r *memRecipeRepo) UpdateRecipe(_ context.Context, rec *models.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	cur, ok := r.recipes[rec.ID]
	if !ok || cur.UserID != rec.UserID {
		return apperr.ErrNotFound
	}
	if rec.Image == nil {
		rec.Image = cur.Image
	}
	rec.UpdatedAt = time.Now()
	r.recipes[rec.ID] = *rec
	return nil
}

func (r *memRecipeRepo) DeleteRecipe(_ context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.recipes[id]
	if !ok || cur.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(r.recipes, id)
	return nil
}

// staleReadRepo serves GetRecipeByID from a snapshot taken before a
// concurrent write, like a request that read the row earlier.
type staleReadRepo struct {
	*memRecipeRepo
	snapshot models.Recipe
}

func (r *staleReadRepo) GetRecipeByID(context.Context, int64) (*models.Recipe, error) {
	rec := r.snapshot
	return &rec, nil
}

// memBlobs is an in-memory blob.Storage.
type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
