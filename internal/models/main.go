// Package models defines the core data structures for users, tokens and recipes.
package models

import "time"

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID int64 `json:"id"`
	// Name is the display name, at most 255 characters.
	Name string `json:"name"`
	// Email is unique across users.
	Email string `json:"email"`
	// PasswordHash is the bcrypt digest of the password. It is never serialized.
	PasswordHash []byte `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token is a persisted bearer token record. Only the digest of the
// plaintext token is stored.
type Token struct {
	ID        int64
	UserID    int64
	Name      string
	Hash      string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Recipe is a recipe owned by a user.
type Recipe struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Ingredients         string  `json:"ingredients"`
	Instructions        string  `json:"instructions"`
	DietaryRestrictions string  `json:"dietary_restrictions"`
	Category            *string `json:"category"`
	// Image is the blob storage key of the recipe image, nil when absent.
	Image     *string   `json:"image"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID may mutate the recipe.
func (r *Recipe) OwnedBy(userID int64) bool {
	return r.UserID == userID
}

// RecipeFields holds the client-editable recipe fields.
type RecipeFields struct {
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Ingredients         string  `json:"ingredients"`
	Instructions        string  `json:"instructions"`
	DietaryRestrictions string  `json:"dietary_restrictions"`
	Category            *string `json:"category"`
}

// Image is an uploaded image file.
type Image struct {
	// Filename is the client-supplied file name, used for its extension only.
	Filename string
	// Data is the file content; its sniffed type must match the extension.
	Data []byte
}

// SortField is a recipe column the list may be ordered by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// SortFields lists every allowed SortField.
var SortFields = []SortField{SortByID, SortByName, SortByCreatedAt, SortByUpdatedAt}

// ParseSortField returns the SortField named s and whether it is allowed.
func ParseSortField(s string) (SortField, bool) {
	for _, f := range SortFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// PageSize is the fixed number of recipes per page.
const PageSize = 10

// ListFilter selects a page of recipes.
type ListFilter struct {
	// Category filters on equality when non-nil.
	Category *string
	// SortBy orders ascending by the column; empty means by id.
	SortBy SortField
	// Page is 1-based.
	Page int
}

// Page is a page of recipes with pagination metadata.
type Page struct {
	Data        []Recipe `json:"data"`
	CurrentPage int      `json:"current_page"`
	PerPage     int      `json:"per_page"`
	Total       int64    `json:"total"`
	LastPage    int      `json:"last_page"`
}

// NewPage builds pagination metadata for a page of data out of total rows.
func NewPage(data []Recipe, page int, total int64) Page {
	if data == nil {
		data = []Recipe{}
	}
	last := int((total + PageSize - 1) / PageSize)
	if last < 1 {
		last = 1
	}
	return Page{
		Data:        data,
		CurrentPage: page,
		PerPage:     PageSize,
		Total:       total,
		LastPage:    last,
	}
}
