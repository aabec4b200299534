// Package middleware provides HTTP middlewares for bearer token
// authentication and request logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atinyakov/RecipeKeeper/internal/apperr"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"go.uber.org/zap"
)

// Authenticator resolves a plaintext bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Identity is the authenticated caller of a request.
type Identity struct {
	User *models.User
	// Token is the plaintext bearer token the request carried.
	Token string
}

type identityKey struct{}

// TokenAuth rejects requests without a live bearer token with 401 and
// stores the resolved Identity in the request context otherwise.
func TokenAuth(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthenticated(w)
				return
			}

			u, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperr.ErrUnauthenticated) {
					unauthenticated(w)
					return
				}
				log.Error("failed to resolve token", zap.Error(err))
				writeMessage(w, http.StatusInternalServerError, "Internal server error.")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{User: u, Token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the Identity stored by TokenAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.User != nil
}

// AuthedHandlerFunc is a handler that receives the caller explicitly.
type AuthedHandlerFunc func(w http.ResponseWriter, r *http.Request, id Identity)

// Authed adapts h to http.HandlerFunc. Requests that did not pass
// TokenAuth are answered with 401.
func Authed(h AuthedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			unauthenticated(w)
			return
		}
		h(w, r, id)
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
