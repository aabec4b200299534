package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

const recipeColumns = `id, name, description, ingredients, instructions, dietary_restrictions,
	category, image, user_id, created_at, updated_at`

// sortColumns maps every sortable field to its SQL column. Only these
// strings are ever interpolated into ORDER BY.
var sortColumns = map[models.SortField]string{
	models.SortByID:        "id",
	models.SortByName:      "name",
	models.SortByCreatedAt: "created_at",
	models.SortByUpdatedAt: "updated_at",
}

// PostgresRecipeRepository implements recipe persistence against a PostgreSQL database.
type PostgresRecipeRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresRecipeRepository creates a new PostgresRecipeRepository using the provided *sql.DB.
func NewPostgresRecipeRepository(db *sql.DB) *PostgresRecipeRepository {
	return &PostgresRecipeRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (models.Recipe, error) {
	var (
		r        models.Recipe
		category sql.NullString
		image    sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Ingredients, &r.Instructions,
		&r.DietaryRestrictions, &category, &image, &r.UserID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if category.Valid {
		r.Category = &category.String
	}
	if image.Valid {
		r.Image = &image.String
	}
	return r, nil
}

// ListRecipes returns one page of recipes matching f and the total number of matches.
//
//	ctx: context for cancellation and deadlines
//	f:   category filter, sort column and 1-based page
//
// A SortBy outside the allow-list is rejected with an apperr.ValidationError.
func (s *PostgresRecipeRepository) ListRecipes(ctx context.Context, f models.ListFilter) ([]models.Recipe, int64, error) {
	order := "id"
	if f.SortBy != "" {
		col, ok := sortColumns[f.SortBy]
		if !ok {
			return nil, 0, apperr.FieldError("sort_by", "The selected sort_by is invalid.")
		}
		order = col
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var (
		where strings.Builder
		args  []any
	)
	if f.Category != nil {
		args = append(args, *f.Category)
		fmt.Fprintf(&where, " WHERE category = $%d", len(args))
	}

	var total int64
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, apperr.Persistence("count recipes", err)
	}

	args = append(args, models.PageSize, (page-1)*models.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM recipes%s ORDER BY %s, id LIMIT $%d OFFSET $%d`,
		recipeColumns, where.String(), order, len(args)-1, len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Persistence("list recipes", err)
	}
	defer rows.Close()

	recipes := make([]models.Recipe, 0, models.PageSize)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, apperr.Persistence("scan recipe", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Persistence("list recipes", err)
	}
	return recipes, total, nil
}

// GetRecipeByID retrieves a single recipe or apperr.ErrNotFound.
func (s *PostgresRecipeRepository) GetRecipeByID(ctx context.Context, id int64) (*models.Recipe, error) {
	r, err := scanRecipe(s.DB.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("select recipe", err)
	}
	return &r, nil
}

// CreateRecipe inserts r and fills in its ID and timestamps.
func (s *PostgresRecipeRepository) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO recipes (name, description, ingredients, instructions, dietary_restrictions, category, image, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.Name, r.Description, r.Ingredients, r.Instructions, r.DietaryRestrictions,
		r.Category, r.Image, r.UserID).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert recipe", err)
	}
	return nil
}

// UpdateRecipe replaces the editable fields of r. The image column changes
// only when r.Image is non-nil, so a text-only edit never writes back a key
// read before a concurrent image swap. On return r.Image holds the stored
// key. The row must still belong to r.UserID; otherwise apperr.ErrNotFound
// is returned and nothing changes.
func (s *PostgresRecipeRepository) UpdateRecipe(ctx context.Context, r *models.Recipe) error {
	var image sql.NullString
	err := s.DB.QueryRowContext(ctx, `
		UPDATE recipes SET
			name = $1,
			description = $2,
			ingredients = $3,
			instructions = $4,
			dietary_restrictions = $5,
			category = $6,
			image = COALESCE($7, image),
			updated_at = now()
		WHERE id = $8 AND user_id = $9
		RETURNING image, updated_at
	`, r.Name, r.Description, r.Ingredients, r.Instructions, r.DietaryRestrictions,
		r.Category, r.Image, r.ID, r.UserID).Scan(&image, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return apperr.Persistence("update recipe", err)
	}
	r.Image = nil
	if image.Valid {
		r.Image = &image.String
	}
	return nil
}

// DeleteRecipe removes recipe id owned by userID, or returns apperr.ErrNotFound.
func (s *PostgresRecipeRepository) DeleteRecipe(ctx context.Context, id, userID int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperr.Persistence("delete recipe", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("delete recipe", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
