package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/tutora/internal/app"
	mcpinternal "github.com/felixgeelhaar/tutora/internal/mcp"
	"github.com/felixgeelhaar/tutora/pkg/config"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

func main() {
	logger := observability.NewLogger(observability.ProductionLogConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
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

	if cfg.UserID == "" {
		logger.Error("TUTORA_USER_ID is required")
		os.Exit(1)
	}

	cliApp := mcpinternal.NewCLIApp(container, cfg.UserID)

	if err := mcpinternal.Serve(ctx, cfg, cliApp, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", observability.Err(err))
		os.Exit(1)
	}
}
