// Package main initializes and starts the RecipeKeeper HTTP(S) server,
// setting up configuration, logging, database connections, blob storage,
// repositories, services and handlers.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/RecipeKeeper/internal/blob"
	"github.com/atinyakov/RecipeKeeper/internal/config"
	"github.com/atinyakov/RecipeKeeper/internal/db"
	"github.com/atinyakov/RecipeKeeper/internal/logger"
	"github.com/atinyakov/RecipeKeeper/internal/repository"
	"github.com/atinyakov/RecipeKeeper/internal/server/handler/http"
	"github.com/atinyakov/RecipeKeeper/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and apply migrations.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Purge expired tokens when tokens expire at all.
	if options.TokenTTL > 0 {
		db.StartExpiredTokenCleaner(ctx, postgresDB, options.TokenCleanupInterval, zapLogger)
	}

	blobs, err := newBlobStorage(ctx, options)
	if err != nil {
		zapLogger.Fatal("cannot init image storage", zap.Error(err), zap.String("storage", options.Storage))
	}

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	tokenRepo := repository.NewPostgresTokenRepository(postgresDB)
	recipeRepo := repository.NewPostgresRecipeRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(
		service.NewUserStore(userRepo),
		service.NewTokenIssuer(tokenRepo, options.TokenTTL),
	)
	recipeService := service.NewRecipeService(recipeRepo, blobs, options.MaxImageSize, zapLogger)

	// Create HTTP handlers for auth and recipe endpoints.
	authHandler := &http.AuthHandler{AuthService: authService, Log: zapLogger}
	recipeHandler := &http.RecipeHandler{
		RecipeService: recipeService,
		MaxImageSize:  options.MaxImageSize,
		Log:           zapLogger,
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, recipeHandler, authService, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	useTLS := options.TLSCert != "" && options.TLSKey != ""
	if useTLS {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", useTLS))
		if useTLS {
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

func newBlobStorage(ctx context.Context, options *config.Options) (blob.Storage, error) {
	if options.Storage == config.StorageS3 {
		return blob.NewS3Storage(ctx, blob.S3Config{
			Bucket:    options.S3Bucket,
			Region:    options.S3Region,
			Endpoint:  options.S3Endpoint,
			AccessKey: options.S3AccessKey,
			SecretKey: options.S3SecretKey,
		})
	}
	return blob.NewFSStorage(options.StorageDir)
}
