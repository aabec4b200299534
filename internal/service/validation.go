package service

import (
	"fmt"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
)

const (
	maxStringLen      = 255
	minPasswordLen    = 8
	maxPasswordBytes  = 72 // bcrypt input limit
	imageKeyPrefix    = "recipe_images"
	imageTypesMessage = "The image must be a file of type: jpg, jpeg, png."
)

// imageTypes maps allowed file extensions to the content type the bytes must sniff as.
var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

func required(v *apperr.ValidationError, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, fmt.Sprintf("The %s field is required.", field))
		return false
	}
	return true
}

func maxLen(v *apperr.ValidationError, field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		v.Add(field, fmt.Sprintf("The %s must not be greater than %d characters.", field, n))
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validateRegistration(name, email, password string) *apperr.ValidationError {
	v := apperr.NewValidationError()

	if required(v, "name", name) {
		maxLen(v, "name", name, maxStringLen)
	}
	if required(v, "email", email) {
		if !validEmail(email) {
			v.Add("email", "The email must be a valid email address.")
		}
		maxLen(v, "email", email, maxStringLen)
	}
	if required(v, "password", password) {
		if utf8.RuneCountInString(password) < minPasswordLen {
			v.Add("password", fmt.Sprintf("The password must be at least %d characters.", minPasswordLen))
		}
		if len(password) > maxPasswordBytes {
			v.Add("password", fmt.Sprintf("The password must not be greater than %d bytes.", maxPasswordBytes))
		}
	}
	return v
}

func validateRecipe(f models.RecipeFields, img *models.Image, maxImageSize int64) *apperr.ValidationError {
	v := apperr.NewValidationError()

	if required(v, "name", f.Name) {
		maxLen(v, "name", f.Name, maxStringLen)
	}
	required(v, "description", f.Description)
	required(v, "ingredients", f.Ingredients)
	required(v, "instructions", f.Instructions)
	required(v, "dietary_restrictions", f.DietaryRestrictions)
	if f.Category != nil {
		maxLen(v, "category", *f.Category, maxStringLen)
	}

	if img != nil {
		if _, err := imageContentType(img); err != nil {
			v.Add("image", imageTypesMessage)
		}
		if int64(len(img.Data)) > maxImageSize {
			v.Add("image", fmt.Sprintf("The image must not be greater than %d kilobytes.", maxImageSize/1024))
		}
	}
	return v
}

func imageExt(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// imageContentType checks both the extension and the sniffed bytes of img.
func imageContentType(img *models.Image) (string, error) {
	want, ok := imageTypes[imageExt(img.Filename)]
	if !ok {
		return "", fmt.Errorf("unsupported image extension %q", filepath.Ext(img.Filename))
	}
	if got := http.DetectContentType(img.Data); got != want {
		return "", fmt.Errorf("image content %q does not match extension", got)
	}
	return want, nil
}

// contentTypeForKey derives the content type of a stored image from its key.
func contentTypeForKey(key string) string {
	if ct, ok := imageTypes[imageExt(key)]; ok {
		return ct
	}
	return "application/octet-stream"
}
