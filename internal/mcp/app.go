package mcp

import (
	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/felixgeelhaar/tutora/internal/app"
)

// NewCLIApp creates a CLI application instance backed by the provided container.
func NewCLIApp(container *app.Container, currentUser string) *cli.App {
	cliApp := cli.NewApp(container.Engine, container.UsageService, container.Health)
	cliApp.SetCurrentUserID(currentUser)
	return cliApp
}
