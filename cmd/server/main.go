// Dealflow - onboarding and deal-room API server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/dealflow/internal/ai"
	"github.com/ashureev/dealflow/internal/api"
	"github.com/ashureev/dealflow/internal/config"
	"github.com/ashureev/dealflow/internal/dealroom"
	"github.com/ashureev/dealflow/internal/identity"
	"github.com/ashureev/dealflow/internal/middleware"
	"github.com/ashureev/dealflow/internal/onboarding"
	"github.com/ashureev/dealflow/internal/store"
	"github.com/ashureev/dealflow/internal/wizard"
	"github.com/ashureev/dealflow/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	catalog, err := wizard.BuiltinCatalog()
	if err != nil {
		return err
	}
	onboardingSvc := onboarding.NewService(catalog, newSubmitter(cfg, repo),
		cfg.Onboarding.VerificationDelay, cfg.Onboarding.SessionTTL)

	deals := dealroom.NewRegistry()
	if cfg.SeedDemoDeal {
		deals.Put(dealroom.DemoDeal())
		slog.Info("Seeded demo deal", "deal_id", dealroom.DemoDealID)
	}
	dealSvc := dealroom.NewService(deals, ai.NewFacade(newGenerator(cfg)))
	defer dealSvc.Close()

	limiter := dealroom.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer limiter.Stop()

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	api.NewHealthHandler(repo, cfg.HealthCheckTimeout).RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		api.NewAccountHandler(repo, cfg.AIKeyConfigured()).RegisterRoutes(r)
		onboarding.NewHandler(onboardingSvc, repo).RegisterRoutes(r)
		dealroom.NewHandler(dealSvc, limiter, cfg.AllowedOrigins, cfg.IsDevelopment()).RegisterRoutes(r)
	})

	r.Handle("/*", web.SPAHandler())

	// No WriteTimeout: chat sockets and slow model calls hold responses open.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	onboardingSvc.StartSweeper(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newSubmitter(cfg *config.Config, repo store.Repository) onboarding.Submitter {
	if cfg.Onboarding.SubmissionSink == config.SinkLog {
		slog.Info("Onboarding submissions go to the log")
		return onboarding.LogSubmitter{}
	}
	return onboarding.NewStoreSubmitter(repo)
}

func newGenerator(cfg *config.Config) ai.Generator {
	if !cfg.AIKeyConfigured() {
		slog.Warn("No API key for AI provider, deal-room AI will serve fallbacks", "provider", cfg.AI.Provider)
	}
	if cfg.AI.Provider == config.ProviderAnthropic {
		slog.Info("AI provider configured", "provider", cfg.AI.Provider, "model", cfg.AI.AnthropicModel)
		return ai.NewAnthropicGenerator(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel)
	}
	slog.Info("AI provider configured", "provider", cfg.AI.Provider, "model", cfg.AI.GeminiModel)
	return ai.NewGeminiClient(cfg.AI.GeminiBaseURL, cfg.AI.GeminiModel, cfg.AI.GeminiAPIKey, &http.Client{})
}
