package http

import (
	"net/http"

	"github.com/atinyakov/RecipeKeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// RecipeKeeper API.
//
// Routes:
//
//	POST   /register            → authHandler.Register
//	POST   /login               → authHandler.Login
//	POST   /logout              → authHandler.Logout (bearer)
//	POST   /logout/all          → authHandler.LogoutAll (bearer)
//	GET    /user                → authHandler.Me (bearer)
//	GET    /recipes             → recipeHandler.List
//	GET    /recipes/{id}        → recipeHandler.Show
//	GET    /recipes/{id}/image  → recipeHandler.Image
//	POST   /recipes             → recipeHandler.Store (bearer)
//	PUT    /recipes/{id}        → recipeHandler.Update (bearer)
//	DELETE /recipes/{id}        → recipeHandler.Destroy (bearer)
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. Recoverer
//  4. AllowContentType("application/json", "multipart/form-data") for requests with a body
func NewRouter(
	authHandler *AuthHandler,
	recipeHandler *RecipeHandler,
	auth middleware.Authenticator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json", "multipart/form-data"))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	// Public endpoints
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)
	r.Get("/recipes", recipeHandler.List)
	r.Get("/recipes/{id}", recipeHandler.Show)
	r.Get("/recipes/{id}/image", recipeHandler.Image)

	// Protected group: requires a live bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(auth, logger))

		r.Post("/logout", middleware.Authed(authHandler.Logout))
		r.Post("/logout/all", middleware.Authed(authHandler.LogoutAll))
		r.Get("/user", middleware.Authed(authHandler.Me))

		r.Post("/recipes", middleware.Authed(recipeHandler.Store))
		r.Put("/recipes/{id}", middleware.Authed(recipeHandler.Update))
		r.Delete("/recipes/{id}", middleware.Authed(recipeHandler.Destroy))
	})

	return r
}
