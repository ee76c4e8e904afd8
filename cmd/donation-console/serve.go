package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"donation-console/internal/config"
	"donation-console/internal/gateway"
	"donation-console/internal/logger"
	"donation-console/internal/routes"
)

func serveCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return serve(cmd.Context(), cfg, shutdownTimeout)
		},
	}
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, shutdownTimeout time.Duration) error {
	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.L()
	log.Info("Starting donation console",
		zap.String("environment", env),
		zap.String("version", version),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("realtime", cfg.Realtime.Transport),
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subscriber, err := gateway.NewSubscriber(cfg.Realtime, log.Named("realtime"))
	if err != nil {
		return err
	}

	app := routes.NewConsole(cfg, subscriber, log)
	defer app.Close()
	if err := app.Start(ctx, cfg.Drafts.TTL); err != nil {
		// The console still works without push; lists refresh on demand.
		log.Warn("Realtime updates unavailable", zap.Error(err))
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.SetupRoutes(cfg, app),
		ReadHeaderTimeout: 15 * time.Second,
		// Submits wait on the backend, which may take up to the backend timeout.
		WriteTimeout: cfg.Backend.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	color.Green("donation-console listening on %s", addr)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info("Server exited properly")
	return nil
}
