package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/api"
	"github.com/victornedelchev/Games-Play/internal/config"
	"github.com/victornedelchev/Games-Play/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "gameplayd",
	Short:         "Mock REST backend for the Games Play client",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional file of GAMEPLAY_* variables")
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags(), envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gin.SetMode(gin.ReleaseMode)
	srv, err := api.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("assemble server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("admin", fmt.Sprintf("http://localhost%s/admin", httpServer.Addr)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
