package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	cliBilling "github.com/felixgeelhaar/tutora/adapter/cli/billing"
	"github.com/felixgeelhaar/tutora/adapter/cli/mcp"
	"github.com/felixgeelhaar/tutora/internal/app"
	"github.com/felixgeelhaar/tutora/pkg/config"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	logger := observability.NewLogger(observability.DefaultLogConfig())

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using development mode", observability.Err(err))
		cfg = &config.Config{AppEnv: "development"}
	}

	logger = observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat))
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", observability.Err(err))
		os.Exit(1)
	}
	defer container.Close()

	logger.Debug("container ready",
		"store", container.StoreKind(),
		"payment", container.PaymentKind(),
	)

	cliApp := cli.NewApp(container.Engine, container.UsageService, container.Health)
	cliApp.SetCurrentUserID(cfg.UserID)
	cli.SetApp(cliApp)

	cli.AddCommand(cliBilling.Commands()...)
	cli.AddCommand(mcp.Cmd)

	if err := cli.ExecuteContext(ctx); err != nil {
		container.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
