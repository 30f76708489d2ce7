package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/minerva/internal/ai"
	"github.com/p-n-ai/minerva/internal/api"
	"github.com/p-n-ai/minerva/internal/catalog"
	"github.com/p-n-ai/minerva/internal/platform/cache"
	"github.com/p-n-ai/minerva/internal/platform/config"
	"github.com/p-n-ai/minerva/internal/platform/database"
	"github.com/p-n-ai/minerva/internal/platform/metrics"
	"github.com/p-n-ai/minerva/internal/tutor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	router, err := newRouter(ctx, cfg.AI)
	if err != nil {
		return err
	}
	slog.Info("AI providers registered", "providers", router.Names())

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	m := metrics.New()
	var checks []api.Check

	var budget ai.BudgetChecker = ai.NewInMemoryBudget(int64(cfg.AI.DailyTokenBudget))
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connecting cache: %w", err)
		}
		defer c.Close()
		budget = ai.NewRedisBudget(c, int64(cfg.AI.DailyTokenBudget))
		checks = append(checks, api.Check{Name: "cache", Ping: c.HealthCheck})
		slog.Info("token budget shared via cache")
	}

	var events tutor.EventLogger = tutor.NopEventLogger{}
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("connecting database: %w", err)
		}
		defer db.Close()
		logger := tutor.NewPostgresEventLogger(db.Pool)
		if err := logger.EnsureSchema(ctx); err != nil {
			return err
		}
		events = logger
		checks = append(checks, api.Check{Name: "database", Ping: db.HealthCheck})
		slog.Info("generation events logged to database")
	}

	svc := tutor.NewService(tutor.Config{
		Generator:       router,
		Catalog:         cat,
		Budget:          budget,
		Events:          events,
		Metrics:         m,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
	})

	handler, err := api.NewHandler(api.Config{
		Service:        svc,
		Metrics:        m,
		Checks:         checks,
		ModelChecks:    []api.Check{{Name: "providers", Ping: router.HealthCheck}},
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newLogger builds the JSON or text handler at the configured level.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newRouter registers every configured provider in fallback order.
func newRouter(ctx context.Context, cfg config.AIConfig) (*ai.Router, error) {
	router := ai.NewRouter()

	if cfg.Google.APIKey != "" {
		p, err := ai.NewGoogleProvider(ctx, cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model))
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}
		router.Register("google", p)
	}
	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, ai.WithDefaultModel(cfg.OpenAI.Model)))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		router.Register("anthropic", p)
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, ai.WithDefaultModel(cfg.OpenRouter.Model)))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithDefaultModel(cfg.Ollama.Model)))
	}

	if !router.HasProvider() {
		return nil, ai.ErrNoProviders
	}
	return router, nil
}
