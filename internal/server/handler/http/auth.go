// Package http provides the HTTP handlers, routing and error rendering of
// the RecipeKeeper API.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/RecipeKeeper/internal/middleware"
	"github.com/atinyakov/RecipeKeeper/internal/models"
	"go.uber.org/zap"
)

// maxAuthBody bounds register and login request bodies.
const maxAuthBody = 64 << 10

// AuthService defines the authentication operations required by AuthHandler.
type AuthService interface {
	// Register creates a user and returns it with its first plaintext token.
	Register(ctx context.Context, name, email, password string) (*models.User, string, error)
	// Login checks credentials and returns the user with a fresh plaintext token.
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	// Logout revokes exactly the given token.
	Logout(ctx context.Context, token string) error
	// LogoutAll revokes every token of the user.
	LogoutAll(ctx context.Context, userID int64) error
}

// AuthHandler handles registration, login, logout and the current user.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
}

// RegisterRequest is the JSON payload of POST /register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON payload of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

// Register handles POST /register and answers 201 with the user and its token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBody)

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	u, token, err := h.AuthService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully.",
		User:    u,
		Token:   token,
	})
}

// Login handles POST /login. Unknown email and wrong password get the same 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBody)

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	u, token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "User logged in successfully.",
		User:    u,
		Token:   token,
	})
}

// Logout handles POST /logout, revoking only the token of this request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	if err := h.AuthService.Logout(r.Context(), id.Token); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "User successfully logged out.")
}

// LogoutAll handles POST /logout/all, revoking every token of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request, id middleware.Identity) {
	if err := h.AuthService.LogoutAll(r.Context(), id.User.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "User successfully logged out of all sessions.")
}

// Me handles GET /user.
func (h *AuthHandler) Me(w http.ResponseWriter, _ *http.Request, id middleware.Identity) {
	writeJSON(w, http.StatusOK, id.User)
}
