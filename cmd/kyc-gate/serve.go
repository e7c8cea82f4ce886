package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kyc-gate/config"
	"kyc-gate/utils/logger"
	"kyc-gate/utils/otel"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		return err
	}

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	// Initialize structured logger
	hostname, _ := os.Hostname()
	log := logger.Init(logger.Options{
		Level:          cfg.LogLevel,
		OTel:           otelCfg.Enabled,
		Service:        otelCfg.ServiceName,
		Instance:       hostname,
		OnboardingPath: cfg.OnboardingPath,
	})

	log.InfoContext(ctx, "configuration loaded",
		"identity_provider", cfg.IdentityProvider,
		"identity_url", cfg.IdentityBaseURL(),
		"identity_timeout", cfg.IdentityTimeout,
		"port", cfg.Port,
		"cache_ttl", cfg.CacheTTL,
		"cache_size", cfg.CacheSize,
		"onboarding_path", cfg.OnboardingPath,
		"redis_enabled", cfg.RedisURL != "",
		"upstream_url", cfg.UpstreamURL)

	a, err := newApp(ctx, cfg, log, otelCfg.ServiceName, otelCfg.Enabled)
	if err != nil {
		log.ErrorContext(ctx, "failed to build server", "error", err)
		return err
	}

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	log.InfoContext(ctx, "starting kyc-gate server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.bus != nil {
		g.Go(func() error {
			defer a.bus.Close()
			// Losing the bus only delays remote invalidations until CACHE_TTL.
			if err := a.bus.Run(gCtx, a.store); err != nil {
				log.WarnContext(gCtx, "invalidation bus stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.echo.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server exited properly")
	return nil
}
