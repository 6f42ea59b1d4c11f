package cli

import (
	billingApp "github.com/felixgeelhaar/tutora/internal/billing/application"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

// App holds the CLI application dependencies.
type App struct {
	Engine       *billingApp.Engine
	UsageService *billingApp.UsageService
	Health       *observability.HealthRegistry

	// Current user (configured per environment, overridden by --user)
	CurrentUserID string
}

// NewApp creates a new CLI application.
func NewApp(engine *billingApp.Engine, usage *billingApp.UsageService, health *observability.HealthRegistry) *App {
	return &App{
		Engine:       engine,
		UsageService: usage,
		Health:       health,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id string) {
	a.CurrentUserID = id
}

// UserID returns the user commands act on.
func (a *App) UserID() string {
	if userFlag != "" {
		return userFlag
	}
	return a.CurrentUserID
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
