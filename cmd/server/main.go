package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/offsync/offsync/internal/server/handlers"
	"github.com/offsync/offsync/internal/server/middleware"
	"github.com/offsync/offsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "offsync-server.db", "Path to SQLite database")
	tokenTTL := flag.Duration("token-ttl", time.Hour, "Access token lifetime")
	rateLimit := flag.Int("rate-limit", 300, "Requests per minute per client IP")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger, *addr, *dbPath, *tokenTTL, *rateLimit); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath string, tokenTTL time.Duration, rateLimit int) error {
	// Secrets come from the environment, never from flags.
	jwtSecret := os.Getenv("OFFSYNC_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("OFFSYNC_JWT_SECRET is not set")
	}

	passwordHash := []byte(os.Getenv("OFFSYNC_PASSWORD_HASH"))
	if len(passwordHash) == 0 {
		password := os.Getenv("OFFSYNC_PASSWORD")
		if password == "" {
			return fmt.Errorf("set OFFSYNC_PASSWORD_HASH (bcrypt) or OFFSYNC_PASSWORD")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = hash
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(jwtSecret),
		AccessTokenTTL: tokenTTL,
	}

	authHandler := handlers.NewAuthHandler(logger, passwordHash, jwtConfig)
	healthHandler := handlers.NewHealthHandler(logger, Version)
	recordsHandler := handlers.NewRecordsHandler(logger, store)

	authRequired := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/token", authHandler.Token)
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("POST /api/v1/records/apply", authRequired(http.HandlerFunc(recordsHandler.Apply)))
	mux.Handle("GET /api/v1/records/{id}", authRequired(http.HandlerFunc(recordsHandler.Get)))
	mux.Handle("GET /api/v1/records", authRequired(http.HandlerFunc(recordsHandler.List)))

	// Clients poll the health endpoint to detect connectivity, so it is
	// excluded from both the request log and the rate limit.
	handler := middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(
		middleware.RecoveryMiddleware(logger)(
			rateLimitExceptHealth(rateLimit, logger)(mux),
		),
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", Version)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func rateLimitExceptHealth(rate int, logger *slog.Logger) func(http.Handler) http.Handler {
	limit := middleware.RateLimitMiddleware(rate, time.Minute, logger)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/health" {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func printVersion() {
	fmt.Printf("offsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
