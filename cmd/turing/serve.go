package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/internal/platform/otel"
	"github.com/mathieusouflis/turing/internal/presentation/tui"
	httpAdapter "github.com/mathieusouflis/turing/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the machine API over HTTP.

Routes live under /api/machines; /swagger documents them, /metrics exposes
Prometheus metrics and /api/machines/{id}/events streams changes (SSE).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("port") {
			a.cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("host") {
			a.cfg.Host, _ = cmd.Flags().GetString("host")
		}
		if err := a.cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := otel.Setup(ctx, "turing", a.cfg.OTelEndpoint)
		if err != nil {
			return fmt.Errorf("setup tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				a.logger.Warn("Tracing shutdown failed", "err", err)
			}
		}()

		opts := []httpAdapter.Option{httpAdapter.WithLogger(a.logger)}
		if a.metrics != nil {
			opts = append(opts, httpAdapter.WithMetricsHandler(a.metrics.Handler()))
		}
		handler, err := httpAdapter.NewHandler(a.svc, opts...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              a.cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(cmd.ErrOrStderr(), strings.TrimSpace(turing.Version))
		}

		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("Starting Turing server", "addr", srv.Addr, "store", a.cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			a.logger.Info("Shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			a.logger.Info("Turing server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (env TURING_PORT)")
	serveCmd.Flags().String("host", "0.0.0.0", "Interface to bind (env TURING_HOST)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
