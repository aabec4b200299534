package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/middleware"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for form fields next to the image.
const multipartOverhead = 1 << 20

// RecipeService defines the recipe operations required by RecipeHandler.
type RecipeService interface {
	List(ctx context.Context, f models.ListFilter) (models.Page, error)
	Get(ctx context.Context, id int64) (*models.Recipe, error)
	Create(ctx context.Context, ownerID int64, f models.RecipeFields, img *models.Image) (*models.Recipe, error)
	Update(ctx context.Context, id, callerID int64, f models.RecipeFields, img *models.Image) (*models.Recipe, error)
	Delete(ctx context.Context, id, callerID int64) error
	// Image opens the stored image of a recipe and returns its content type.
	Image(ctx context.Context, id int64) (io.ReadCloser, string, error)
}

// RecipeHandler handles the recipe endpoints.
type RecipeHandler struct {
	RecipeService RecipeService
	// MaxImageSize is the largest accepted image in bytes.
	MaxImageSize int64
	Log          *zap.Logger
}

type recipeResponse struct {
	Message string         `json:"message,omitempty"`
	Recipe  *models.Recipe `json:"recipe"`
}

// List handles GET /recipes?category=&sort_by=&page=.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := models.ListFilter{SortBy: models.SortField(q.Get("sort_by"))}
	if c := q.Get("category"); c != "" {
		f.Category = &c
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		f.Page = p
	}

	page, err := h.RecipeService.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Page{"recipes": page})
}

// Show handles GET /recipes/{id}.
func (h *RecipeHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(r)
	if !ok {
		writeError(w, h.Log, apperr.ErrNotFound)
		return
	}
	rec, err := h.RecipeService.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Recipe: rec})
}

// Store handles POST /recipes. The recipe is owned by the caller whatever
// the body says.
func (h *RecipeHandler) Store(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	f, img, err := h.readRecipe(w, r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	rec, err := h.RecipeService.Create(r.Context(), id.User.ID, f, img)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipeResponse{Message: "Recipe created successfully", Recipe: rec})
}

// Update handles PUT /recipes/{id}.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	recID, ok := recipeID(r)
	if !ok {
		writeError(w, h.Log, apperr.ErrNotFound)
		return
	}
	f, img, err := h.readRecipe(w, r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	rec, err := h.RecipeService.Update(r.Context(), recID, id.User.ID, f, img)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Message: "Recipe updated successfully", Recipe: rec})
}

// Destroy handles DELETE /recipes/{id}.
func (h *RecipeHandler) Destroy(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	recID, ok := recipeID(r)
	if !ok {
		writeError(w, h.Log, apperr.ErrNotFound)
		return
	}
	if err := h.RecipeService.Delete(r.Context(), recID, id.User.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Recipe deleted successfully")
}

// Image handles GET /recipes/{id}/image by streaming the stored blob.
func (h *RecipeHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(r)
	if !ok {
		writeError(w, h.Log, apperr.ErrNotFound)
		return
	}
	rc, contentType, err := h.RecipeService.Image(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("failed to stream recipe image", zap.Int64("recipe_id", id), zap.Error(err))
	}
}

// readRecipe reads the recipe fields and optional image from a multipart
// form or a JSON body. Query parameters never count as fields.
func (h *RecipeHandler) readRecipe(w http.ResponseWriter, r *http.Request) (models.RecipeFields, *models.Image, error) {
	// Oversized images must still reach validation, so the hard cap sits
	// above MaxImageSize.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.MaxImageSize+multipartOverhead)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var f models.RecipeFields
		if err := decodeJSON(r, &f); err != nil {
			return models.RecipeFields{}, nil, err
		}
		return f, nil, nil
	}

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return models.RecipeFields{}, nil, errBodyTooLarge
		}
		return models.RecipeFields{}, nil, errMalformedBody
	}

	f := models.RecipeFields{
		Name:                r.PostFormValue("name"),
		Description:         r.PostFormValue("description"),
		Ingredients:         r.PostFormValue("ingredients"),
		Instructions:        r.PostFormValue("instructions"),
		DietaryRestrictions: r.PostFormValue("dietary_restrictions"),
	}
	if _, ok := r.MultipartForm.Value["category"]; ok {
		c := r.PostFormValue("category")
		f.Category = &c
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return f, nil, nil
	}
	if err != nil {
		return models.RecipeFields{}, nil, errMalformedBody
	}
	defer file.Close()

	// One byte past the limit is enough for validation to reject it.
	data, err := io.ReadAll(io.LimitReader(file, h.MaxImageSize+1))
	if err != nil {
		return models.RecipeFields{}, nil, errMalformedBody
	}
	return f, &models.Image{Filename: header.Filename, Data: data}, nil
}

// recipeID parses the {id} path parameter. Anything but a positive integer
// is treated as an absent recipe.
func recipeID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	return id, err == nil && id > 0
}
