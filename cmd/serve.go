package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/codevoice/internal/adapters/http/api"
	"github.com/okian/codevoice/internal/adapters/http/swagger"
	app "github.com/okian/codevoice/internal/app"
	"github.com/okian/codevoice/pkg/logger"
	"github.com/okian/codevoice/pkg/metrics"
)

// HTTP server timeout constants. Answers wait on two model calls, so the
// write timeout is generous.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 90 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the interview HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	if err := swagger.Register(ctx, mux); err != nil {
		return err
	}

	svc := app.New(cfg, app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		return err
	}

	api.NewServer(svc.Interviews(), svc.Ledger(), svc.Bank(), log.Named("api")).Register(ctx, mux)

	servers := []*http.Server{newHTTPServer(cfg.Addr, mux)}
	if cfg.TelemetryAddr != "" {
		telemetry := http.NewServeMux()
		telemetry.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
		servers = append(servers, newHTTPServer(cfg.TelemetryAddr, telemetry))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.Info(gctx, "starting HTTP server", logger.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		log.Info(shutdownCtx, "server stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
