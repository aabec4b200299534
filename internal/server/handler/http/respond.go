package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"go.uber.org/zap"
)

var (
	errMalformedBody = errors.New("malformed request body")
	errBodyTooLarge  = errors.New("request body too large")
)

const msgInternal = "Internal server error."

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

// writeError renders err with the status of its kind. Anything that is not
// a known kind is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The given data was invalid.",
			"errors":  ve.Fields,
		})
	case errors.Is(err, errMalformedBody):
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
	case errors.Is(err, errBodyTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, "The request body is too large.")
	case errors.Is(err, apperr.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
	case errors.Is(err, apperr.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "This action is unauthorized.")
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found.")
	default:
		log.Error("request failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return errMalformedBody
	}
	return nil
}
