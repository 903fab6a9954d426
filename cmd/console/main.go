package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/infra"
)

var (
	configDir string
	envFile   string

	cfg    *infra.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "twinsecure-console",
	Short: "TwinSecure security dashboard console",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := infra.LoadDotEnv(envFile); err != nil {
			return err
		}

		var paths []string
		if configDir != "" {
			paths = []string{configDir}
		}
		c, err := infra.LoadConfig(paths...)
		if err != nil {
			return err
		}
		cfg = c

		logger, err = infra.NewLogger(cfg.Logger)
		return err
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the console HTTP API and WebSocket stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run one refresh cycle and print the dashboard state as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return snapshot(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory with config.yaml (default: . and ./configs)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	// Контекст отменится по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("console: %v", err)
	}
}

func serve(ctx context.Context) error {
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	// Первый цикл: упавшие сущности не мешают старту
	if err := a.store.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.httpHandler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console started", zap.String("addr", srv.Addr), zap.String("api", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("console stopping...")

	// Даём время на завершение запросов
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("console exited properly")
	return nil
}

func snapshot(ctx context.Context) error {
	defer logger.Sync()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Refresh(ctx); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a.store.Snapshot())
}
