package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/blob"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RecipeRepository defines the persistence operations needed by RecipeService.
type RecipeRepository interface {
	// ListRecipes returns a page of recipes and the total number of matches.
	ListRecipes(ctx context.Context, f models.ListFilter) ([]models.Recipe, int64, error)
	// GetRecipeByID returns the recipe or apperr.ErrNotFound.
	GetRecipeByID(ctx context.Context, id int64) (*models.Recipe, error)
	// CreateRecipe inserts the recipe and fills in its ID and timestamps.
	CreateRecipe(ctx context.Context, r *models.Recipe) error
	// UpdateRecipe replaces the editable fields of a recipe still owned by
	// r.UserID. A nil r.Image keeps the stored image; on return r.Image holds
	// the stored key.
	UpdateRecipe(ctx context.Context, r *models.Recipe) error
	// DeleteRecipe removes recipe id owned by userID.
	DeleteRecipe(ctx context.Context, id, userID int64) error
}

// RecipeService implements recipe CRUD, ownership checks and image
// persistence.
//
// Images live in blob storage, which cannot commit atomically with the
// database. Writes store the blob first and remove it again when the row
// write fails; old blobs are removed only after the row no longer
// references them.
type RecipeService struct {
	repo         RecipeRepository
	blobs        blob.Storage
	maxImageSize int64
	log          *zap.Logger
}

// NewRecipeService constructs a RecipeService.
func NewRecipeService(repo RecipeRepository, blobs blob.Storage, maxImageSize int64, log *zap.Logger) *RecipeService {
	return &RecipeService{repo: repo, blobs: blobs, maxImageSize: maxImageSize, log: log}
}

// authorize is the single ownership predicate for every mutation.
func authorize(r *models.Recipe, callerID int64) error {
	if !r.OwnedBy(callerID) {
		return apperr.ErrForbidden
	}
	return nil
}

// List returns one page of recipes.
func (s *RecipeService) List(ctx context.Context, f models.ListFilter) (models.Page, error) {
	if f.SortBy != "" {
		if _, ok := models.ParseSortField(string(f.SortBy)); !ok {
			return models.Page{}, apperr.FieldError("sort_by", "The selected sort_by is invalid.")
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	recipes, total, err := s.repo.ListRecipes(ctx, f)
	if err != nil {
		return models.Page{}, err
	}
	return models.NewPage(recipes, f.Page, total), nil
}

// Get returns recipe id or apperr.ErrNotFound.
func (s *RecipeService) Get(ctx context.Context, id int64) (*models.Recipe, error) {
	return s.repo.GetRecipeByID(ctx, id)
}

// Create validates and persists a recipe owned by ownerID, storing img first when given.
func (s *RecipeService) Create(ctx context.Context, ownerID int64, f models.RecipeFields, img *models.Image) (*models.Recipe, error) {
	f = normalize(f)
	if err := validateRecipe(f, img, s.maxImageSize).OrNil(); err != nil {
		return nil, err
	}

	r := &models.Recipe{UserID: ownerID}
	apply(r, f)

	key, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	if key != "" {
		r.Image = &key
	}

	if err := s.repo.CreateRecipe(ctx, r); err != nil {
		return nil, s.discardImage(ctx, key, err)
	}
	return r, nil
}

// Update replaces the editable fields of recipe id on behalf of callerID and
// optionally its image. The old image is deleted only after the row update commits.
func (s *RecipeService) Update(ctx context.Context, id, callerID int64, f models.RecipeFields, img *models.Image) (*models.Recipe, error) {
	current, err := s.repo.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(current, callerID); err != nil {
		return nil, err
	}

	f = normalize(f)
	if err := validateRecipe(f, img, s.maxImageSize).OrNil(); err != nil {
		return nil, err
	}

	updated := *current
	apply(&updated, f)

	key, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	// A nil image leaves the stored key alone; current.Image may be stale.
	updated.Image = nil
	if key != "" {
		updated.Image = &key
	}

	if err := s.repo.UpdateRecipe(ctx, &updated); err != nil {
		return nil, s.discardImage(ctx, key, err)
	}

	if key != "" && current.Image != nil && *current.Image != key {
		s.removeBlob(ctx, *current.Image, id)
	}
	return &updated, nil
}

// Delete removes recipe id on behalf of callerID, then its image. A crash
// between the two leaves an orphaned blob, never a row pointing at a
// deleted blob.
func (s *RecipeService) Delete(ctx context.Context, id, callerID int64) error {
	current, err := s.repo.GetRecipeByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(current, callerID); err != nil {
		return err
	}

	if err := s.repo.DeleteRecipe(ctx, id, callerID); err != nil {
		return err
	}
	if current.Image != nil {
		s.removeBlob(ctx, *current.Image, id)
	}
	return nil
}

// Image opens the stored image of recipe id and returns its content type.
func (s *RecipeService) Image(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	r, err := s.repo.GetRecipeByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if r.Image == nil {
		return nil, "", apperr.ErrNotFound
	}
	rc, err := s.blobs.Get(ctx, *r.Image)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, "", err
		}
		return nil, "", apperr.Persistence("read image", err)
	}
	return rc, contentTypeForKey(*r.Image), nil
}

func (s *RecipeService) storeImage(ctx context.Context, img *models.Image) (string, error) {
	if img == nil {
		return "", nil
	}
	ct, err := imageContentType(img)
	if err != nil {
		return "", apperr.FieldError("image", imageTypesMessage)
	}
	key := blob.NewKey(imageKeyPrefix, imageExt(img.Filename))
	if err := s.blobs.Put(ctx, key, img.Data, ct); err != nil {
		return "", apperr.Persistence("store image", err)
	}
	return key, nil
}

// discardImage removes a blob whose row write failed and folds any cleanup
// failure into cause.
func (s *RecipeService) discardImage(ctx context.Context, key string, cause error) error {
	if key == "" {
		return cause
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Error("failed to remove orphaned image", zap.String("key", key), zap.Error(err))
		return multierr.Append(cause, apperr.Persistence("remove orphaned image", err))
	}
	return cause
}

func (s *RecipeService) removeBlob(ctx context.Context, key string, recipeID int64) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.Error("failed to remove recipe image",
			zap.Int64("recipe_id", recipeID), zap.String("key", key), zap.Error(err))
	}
}

func normalize(f models.RecipeFields) models.RecipeFields {
	f.Name = strings.TrimSpace(f.Name)
	if f.Category != nil {
		c := strings.TrimSpace(*f.Category)
		if c == "" {
			f.Category = nil
		} else {
			f.Category = &c
		}
	}
	return f
}

func apply(r *models.Recipe, f models.RecipeFields) {
	r.Name = f.Name
	r.Description = f.Description
	r.Ingredients = f.Ingredients
	r.Instructions = f.Instructions
	r.DietaryRestrictions = f.DietaryRestrictions
	r.Category = f.Category
}
