package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/mailshield/mailshield/auth"
	"github.com/mailshield/mailshield/config"
	"github.com/mailshield/mailshield/handlers"
	authMiddleware "github.com/mailshield/mailshield/middleware"
	"github.com/mailshield/mailshield/store"
)

// newRouter builds the full route tree for the control-plane API
func newRouter(cfg *config.Config, st store.Store, verifier auth.Verifier) http.Handler {
	sessionMiddleware := authMiddleware.NewAuthMiddleware(verifier)

	keyHandler := handlers.NewAPIKeyHandler(st)
	accountHandler := handlers.NewAccountHandler(st)
	usageHandler := handlers.NewUsageHandler(st)
	internalHandler := handlers.NewInternalHandler(st)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Public routes
	r.Get("/health", handlers.HealthCheck)

	// Dashboard API, scoped to the authenticated owner
	r.Route("/api", func(r chi.Router) {
		r.Use(sessionMiddleware.RequireSession)
		r.MethodNotAllowed(handlers.MethodNotAllowed)

		r.Get("/me", accountHandler.Me)
		r.Get("/usage", usageHandler.Usage)

		r.Route("/keys", func(r chi.Router) {
			r.MethodNotAllowed(handlers.MethodNotAllowed)
			r.Get("/", keyHandler.List)
			r.With(httprate.LimitByIP(cfg.IssueRateLimit, time.Minute)).
				Post("/", keyHandler.Create)
			r.Post("/revoke", keyHandler.Revoke)
		})
	})

	// Verification-API callbacks, gated by the shared internal token
	r.Route("/internal", func(r chi.Router) {
		r.Use(authMiddleware.RequireInternalToken(cfg.InternalAPIToken))
		r.MethodNotAllowed(handlers.MethodNotAllowed)

		r.Post("/keys/verify", internalHandler.VerifyKey)
		r.Post("/usage", internalHandler.RecordUsage)
	})

	return r
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize store (PostgreSQL if configured, otherwise memory)
	var st store.Store
	var pgStore *store.PostgresStore

	if cfg.Database.DBName != "" {
		connString := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName,
			cfg.Database.SSLMode,
		)

		var err error
		pgStore, err = store.NewPostgresStore(context.Background(), connString)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		// Run database migrations
		conn, err := pgStore.Pool().Acquire(context.Background())
		if err != nil {
			log.Fatalf("Failed to acquire database connection: %v", err)
		}

		if err := store.RunMigrations(context.Background(), conn.Conn()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		conn.Release()

		st = pgStore
		log.Println("Using PostgreSQL storage")
	} else {
		st = store.NewMemoryStore()
		log.Println("Using in-memory storage")
	}

	if cfg.SessionSecret == "" {
		log.Println("Warning: SESSION_SECRET not configured, all sessions will be rejected")
	}
	if cfg.InternalAPIToken == "" {
		log.Println("Warning: INTERNAL_API_TOKEN not configured, internal routes disabled")
	}

	// Session verifier for dashboard routes
	verifier := auth.NewTokenVerifier(cfg.SessionSecret, cfg.SessionIssuer)

	r := newRouter(cfg, st, verifier)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if pgStore != nil {
		pgStore.Close()
	}

	log.Println("Server exited")
}
