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

	"github.com/PoYaSharonLin/Sparko-api/internal/taxonomy"
	chiTransport "github.com/PoYaSharonLin/Sparko-api/internal/transport/chi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx, "api")
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.Queue.Driver == "memory" {
			a.logger.Warn("Memory queue without an in-process worker: jobs will stay pending; use `sparko all`")
		}
		return a.serveHTTP(ctx)
	},
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
}

// serveHTTP blocks until ctx is done, then drains in-flight requests.
func (a *app) serveHTTP(ctx context.Context) error {
	journals, err := taxonomy.Load(a.cfg.Taxonomy.Path)
	if err != nil {
		return fmt.Errorf("load journal taxonomy: %w", err)
	}
	a.logger.Info("Journal taxonomy loaded",
		zap.String("path", a.cfg.Taxonomy.Path),
		zap.Int("domains", len(journals.Domains)),
	)

	server := chiTransport.NewServer(a.interests, a.listing, a.health, journals, a.logger).
		WithCacheMaxAge(
			time.Duration(a.cfg.Cache.JobMaxAgeSec)*time.Second,
			time.Duration(a.cfg.Cache.PapersMaxAgeSec)*time.Second,
		).
		WithEnvironment(a.env)

	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:          a.cfg.Auth.APIKeys,
		AllowedOrigins:   a.cfg.CORS.AllowedOrigins,
		AllowCredentials: a.cfg.CORS.AllowCredentials,
		CORSMaxAge:       a.cfg.CORS.MaxAgeSec,
	}, a.logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
