package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/felixgeelhaar/tutora/internal/app"
	billingApp "github.com/felixgeelhaar/tutora/internal/billing/application"
	billingSubs "github.com/felixgeelhaar/tutora/internal/billing/application/subscribers"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tutora/pkg/config"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

func main() {
	logger := observability.NewLogger(observability.ProductionLogConfig())

	logger.Info("starting tutora worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", observability.Err(err))
		os.Exit(1)
	}

	logCfg := observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat)
	logCfg.Output = os.Stdout
	logger = observability.NewLogger(logCfg)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", observability.Err(err))
		os.Exit(1)
	}
	defer container.Close()

	var wg sync.WaitGroup

	// Audit consumer; with no broker the container already dispatches in process
	if container.InProcessEventBus == nil {
		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:    cfg.RabbitMQURL,
			Logger: logger,
		}, eventbus.NewConsumerRegistry(logger))
		if err != nil {
			logger.Error("failed to start RabbitMQ consumer", observability.Err(err))
			os.Exit(1)
		}
		defer consumer.Close()

		audit := billingSubs.NewAuditSubscriber(0, container.Metrics, logger)
		if err := consumer.RegisterConsumer(audit); err != nil {
			logger.Error("failed to bind audit subscriber", observability.Err(err))
			os.Exit(1)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", observability.Err(err))
				cancel()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = container.Sweeper.Run(ctx)
	}()

	if cfg.WorkerHealthAddr != "" {
		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           newHealthMux(container.Health, container.Metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", observability.Err(err))
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", observability.Err(err))
			}
		}()
	}

	statsInterval := cfg.SweepInterval
	if statsInterval <= 0 {
		statsInterval = billingApp.DefaultSweeperConfig().Interval
	}
	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				logger.Info("worker stats",
					"trials_expired", container.Metrics.GetCounter(observability.MetricTrialsSwept),
					"upgrades_consumed", container.Metrics.GetCounter(observability.MetricEventsConsumed,
						observability.T("kind", string(billingApp.ChangeUpgraded))),
					"cancellations_consumed", container.Metrics.GetCounter(observability.MetricEventsConsumed,
						observability.T("kind", string(billingApp.ChangeCancelled))),
				)
			}
		}
	}()

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down worker")
	wg.Wait()
	logger.Info("worker stopped")

	fmt.Println("Goodbye!")
}
