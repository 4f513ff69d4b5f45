package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/precrastine/internal/logging"
	"github.com/dukerupert/precrastine/internal/metrics"
	"github.com/dukerupert/precrastine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and change feed",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "interface to listen on (PRECRASTINE_HOST)")
	serveCmd.Flags().String("port", "", "port to listen on (PRECRASTINE_PORT)")
	serveCmd.Flags().Int("login-rate-limit", 0, "login attempts per IP per minute (PRECRASTINE_LOGIN_RATE_LIMIT)")
	serveCmd.Flags().Bool("trust-proxy", false, "rate limit on X-Forwarded-For instead of the peer address (PRECRASTINE_TRUST_PROXY)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)

	db, kv, sess, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer db.Close()

	srv := server.New(kv, sess, metrics.New(), server.Config{
		LoginRateLimit: cfg.LoginRateLimit,
		TrustProxy:     cfg.TrustProxy,
	}, logger)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.RateLimiter().RunCleanup(ctx, 10*time.Minute)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("precrastine listening", "addr", "http://"+cfg.Addr(), "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
