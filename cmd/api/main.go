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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/prompt-tavern/backend/internal/config"
	"github.com/zhouzirui/prompt-tavern/backend/internal/handler"
	"github.com/zhouzirui/prompt-tavern/backend/internal/logging"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chat"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/chatbot"
	"github.com/zhouzirui/prompt-tavern/backend/internal/service/prompt"
)

var (
	configPath string
	envFile    string
	addr       string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "prompt-tavern",
	Short:        "Prompt Tavern chatbot API server",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (or set "+config.PathEnv+")")
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "env file to load before reading the environment (default .env)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides PORT")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	personas := persona.NewRegistry(persona.Seed())
	sessions := chat.NewStore(
		chat.WithMaxSessions(cfg.Session.MaxSessions),
		chat.WithTimeout(cfg.Session.Timeout),
		chat.WithLogger(logger.Named("sessions")),
	)
	engine := chatbot.New(personas, sessions,
		chatbot.WithLogger(logger.Named("engine")),
		chatbot.WithRenderer(prompt.NewRenderer(cfg.Session.HistoryLimit)),
	)

	router := handler.NewRouter(personas, engine, handler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("prompt tavern starting",
		zap.String("addr", cfg.Server.Addr),
		zap.Int("max_sessions", cfg.Session.MaxSessions),
		zap.Duration("session_timeout", cfg.Session.Timeout),
		zap.Duration("sweep_interval", cfg.Session.SweepInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sessions.Run(gctx, cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		return runServer(gctx, srv, cfg.Server.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

func runServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
