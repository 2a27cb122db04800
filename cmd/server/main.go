package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickwarner/admediator/internal/api"
	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/config"
	"github.com/patrickwarner/admediator/internal/events"
	"github.com/patrickwarner/admediator/internal/mediation"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.Backend, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	metricsRegistry := observability.NewPrometheusRegistry()
	queue := events.NewQueue()

	adBackend, err := backend.New(cfg.Backend, backend.Deps{
		Sink:    queue,
		Logger:  logger,
		Metrics: metricsRegistry,
		Config:  cfg,
	})
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	coordinator := mediation.New(mediation.Deps{
		Backend: adBackend,
		Queue:   queue,
		Bus:     events.NewBus(),
		Logger:  logger,
		Metrics: metricsRegistry,
	})
	defer func() {
		if err := coordinator.Close(); err != nil {
			logger.Error("close backend", zap.Error(err))
		}
	}()

	coordinator.SubscribeAll(func(ev models.Event) {
		logger.Debug("ad event",
			zap.Stringer("kind", ev.Kind),
			zap.String("ad_unit_id", string(ev.AdUnitID)),
			zap.String("event", ev.Name))
	})

	if err := coordinator.InitializeSdk(ctx, cfg.SdkConfiguration()); err != nil {
		return fmt.Errorf("initialize sdk: %w", err)
	}
	units := cfg.AdUnits()
	for _, format := range []models.AdFormat{models.FormatBanner, models.FormatInterstitial, models.FormatRewardedVideo, models.FormatNative} {
		if ids := units[format]; len(ids) > 0 {
			coordinator.LoadPlugins(format, ids...)
		}
	}

	// Callbacks are applied either on a fixed tick, like a game loop frame,
	// or as soon as they arrive.
	if cfg.PumpInterval > 0 {
		ticker := time.NewTicker(cfg.PumpInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					coordinator.Pump()
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		go func() {
			if err := coordinator.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("callback loop stopped", zap.Error(err))
			}
		}()
	}

	srvDeps := api.NewServer(logger, coordinator, metricsRegistry)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      srvDeps.Handler(cfg.ServiceName),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Mediation server running",
		zap.String("addr", addr),
		zap.String("backend", adBackend.Name()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
