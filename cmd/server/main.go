package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "faceverify/internal/jwt_token"
	"faceverify/internal/platform/config"
	"faceverify/internal/platform/httpserver"
	"faceverify/internal/platform/logger"
	httpmetrics "faceverify/internal/platform/metrics"
	"faceverify/internal/verification/device"
	"faceverify/internal/verification/handler"
	"faceverify/pkg/platform/middleware/auth"
	devicemw "faceverify/pkg/platform/middleware/device"
	"faceverify/pkg/platform/middleware/metadata"
	"faceverify/pkg/platform/middleware/requestid"
	"faceverify/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/verification.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start faceverify", "error", err)
		os.Exit(1)
	}

	router := newRouter(cfg, log, a)
	srv := httpserver.New(cfg.Addr, otelhttp.NewHandler(router, "faceverify"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting faceverify", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if a.relay != nil {
		g.Go(func() error {
			if err := a.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.close()
	if err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newRouter(cfg config.Server, log *slog.Logger, a *app) chi.Router {
	httpMetrics := httpmetrics.New()
	jwtValidator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience),
	)
	h := handler.New(a.service, log, a.checks)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(httpMetrics.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(devicemw.Middleware(device.NewService(true)))
	r.Use(requesttime.Middleware)

	h.RegisterHealth(r)
	r.Method(http.MethodGet, "/metrics", httpMetrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireServiceAuth(jwtValidator, log))
		h.Register(r)
	})
	return r
}
