package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Vovarama1992/campus-ai-advisor/internal/ai"
	"github.com/Vovarama1992/campus-ai-advisor/internal/auth"
	"github.com/Vovarama1992/campus-ai-advisor/internal/campus"
	"github.com/Vovarama1992/campus-ai-advisor/internal/config"
	"github.com/Vovarama1992/campus-ai-advisor/internal/db"
	"github.com/Vovarama1992/campus-ai-advisor/internal/logging"
	"github.com/Vovarama1992/campus-ai-advisor/internal/observability"
)

func main() {
	root := &cobra.Command{
		Use:           "campusai",
		Short:         "Personalized campus chat assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Apply database migrations", RunE: runMigrate},
		&cobra.Command{Use: "check-ai", Short: "Verify the language-model provider connection", RunE: runCheckAI},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func bootstrap() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogPretty), nil
}

func newAIClient(cfg config.Config, log zerolog.Logger) *ai.OpenAIClient {
	return ai.NewOpenAIClient(ai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		BaseURL:     cfg.OpenAIBaseURL,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.OpenAITimeout,
	}, log)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// --- storage ---
	var (
		repo    campus.Repo
		storage = "memory"
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := db.Migrate(ctx, conn, log); err != nil {
			return err
		}
		repo = campus.NewRepo(conn)
		storage = "postgres"
	} else {
		log.Warn().Msg("DATABASE_URL is not set, using in-memory storage")
		repo = campus.NewMemoryRepo()
	}

	// --- core wiring ---
	metrics := observability.NewMetrics(cfg.MetricsNamespace, nil)
	aiClient := newAIClient(cfg, log)
	gate, err := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL, log)
	if err != nil {
		return err
	}
	svc := campus.NewService(repo, aiClient, metrics, log, cfg.HistoryWindow)
	handler := campus.NewHandler(svc, repo, gate, aiClient, storage, log)

	// --- router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	campus.RegisterRoutes(r, handler)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", storage).Bool("openai", aiClient.Configured()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-sigCh:
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		_ = srv.Close()
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	conn, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(cmd.Context(), conn, log); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

func runCheckAI(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	client := newAIClient(cfg, log)
	text, kind := client.Ping(cmd.Context())
	if kind != "" {
		return fmt.Errorf("provider check failed: %s (%s)", kind, kind.Message())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok (%s): %s\n", client.Model(), text)
	return nil
}
