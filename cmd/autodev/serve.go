package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	httpserver "github.com/fyrsmithlabs/autodev/internal/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd serves pipeline runs over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve pipeline runs over HTTP",
	Long: `Start the HTTP service. Each POST /api/v1/runs runs an independent
pipeline with its own project record and deadline.

Endpoints:
  POST /api/v1/runs   {"request": "..."}
  GET  /health
  GET  /metrics

Examples:
  # Start on the configured host and port
  autodev serve

  # Override the port
  AUTODEV_SERVER_HTTP_PORT=8080 autodev serve`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}

	srv, err := httpserver.NewServer(a.pipeline, a.logger.Named("http"), &httpserver.Config{
		Host:       a.cfg.Server.Host,
		Port:       a.cfg.Server.Port,
		RunTimeout: a.cfg.Server.RunTimeout.Duration(),
		Version:    version,
	}, httpserver.WithTelemetry(a.telemetry))
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
	}
	a.close(shutdownCtx)
	return nil
}
