package http

import (
	"context"
	"io"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	RegisterFunc  func(ctx context.Context, name, email, password string) (*models.User, string, error)
	LoginFunc     func(ctx context.Context, email, password string) (*models.User, string, error)
	LogoutFunc    func(ctx context.Context, token string) error
	LogoutAllFunc func(ctx context.Context, userID int64) error
}

func (f *fakeAuthService) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	return f.RegisterFunc(ctx, name, email, password)
}
func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	return f.LoginFunc(ctx, email, password)
}
func (f *fakeAuthService) Logout(ctx context.Context, token string) error {
	return f.LogoutFunc(ctx, token)
}
func (f *fakeAuthService) LogoutAll(ctx context.Context, userID int64) error {
	return f.LogoutAllFunc(ctx, userID)
}

// fakeRecipeService implements RecipeService for testing.
type fakeRecipeService struct {
	ListFunc   func(ctx context.Context, f models.ListFilter) (models.Page, error)
	GetFunc    func(ctx context.Context, id int64) (*models.Recipe, error)
	CreateFunc func(ctx context.Context, ownerID int64, f models.RecipeFields, img *models.Image) (*models.Recipe, error)
	UpdateFunc func(ctx context.Context, id, callerID int64, f models.RecipeFields, img *models.Image) (*models.Recipe, error)
	DeleteFunc func(ctx context.Context, id, callerID int64) error
	ImageFunc  func(ctx context.Context, id int64) (io.ReadCloser, string, error)
}

func (f *fakeRecipeService) List(ctx context.Context, lf models.ListFilter) (models.Page, error) {
	return f.ListFunc(ctx, lf)
}
func (f *fakeRecipeService) Get(ctx context.Context, id int64) (*models.Recipe, error) {
	return f.GetFunc(ctx, id)
}
func (f *fakeRecipeService) Create(ctx context.Context, ownerID int64, rf models.RecipeFields, img *models.Image) (*models.Recipe, error) {
	return f.CreateFunc(ctx, ownerID, rf, img)
}
func (f *fakeRecipeService) Update(ctx context.Context, id, callerID int64, rf models.RecipeFields, img *models.Image) (*models.Recipe, error) {
	return f.UpdateFunc(ctx, id, callerID, rf, img)
}
func (f *fakeRecipeService) Delete(ctx context.Context, id, callerID int64) error {
	return f.DeleteFunc(ctx, id, callerID)
}
func (f *fakeRecipeService) Image(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	return f.ImageFunc(ctx, id)
}

// fakeAuthenticator resolves a fixed token table.
type fakeAuthenticator map[string]*models.User

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (*models.User, error) {
	u, ok := f[token]
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	return u, nil
}
