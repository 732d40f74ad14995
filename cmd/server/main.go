package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"healthmate/internal/config"
	"healthmate/internal/core"
	"healthmate/internal/db"
	httpserver "healthmate/internal/http"
	"healthmate/internal/llm"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "healthmate",
		Short:         "HealthMate AI conversational health assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), chatCmd())

	if err := root.Execute(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("healthmate failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// buildChatService wires the Gateway client, the optional emergency
// notifier and the chat service.  The returned closer releases the
// database connection when one was opened.
func buildChatService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*core.ChatService, func(), error) {
	if err := cfg.RequireGateway(); err != nil {
		return nil, nil, err
	}
	// Initialize the Gateway client (uses env: OPENAI_API_KEY, OPENAI_MODEL_CHAT)
	client := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})

	opts := core.Options{
		HospitalSource: cfg.HospitalSource,
		HospitalLimit:  cfg.HospitalLimit,
		Logger:         logger,
	}
	closer := func() {}
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		opts.Alerter = db.NewNotifier(conn, cfg.AlertChannel)
		closer = func() { closeDB(conn, logger) }
		logger.Info().Str("channel", cfg.AlertChannel).Msg("emergency alerts enabled")
	}
	return core.NewChatService(client, opts), closer, nil
}

func closeDB(conn *sql.DB, logger zerolog.Logger) {
	if err := conn.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close database")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			chat, closer, err := buildChatService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           httpserver.NewServer(core.NewRegistry(chat), cfg.Language(), cfg.MaxUploadBytes, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Str("model", cfg.Model).Str("hospital_source", cfg.HospitalSource).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
