// Package billing holds the subscription commands.
package billing

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/spf13/cobra"
)

var errNoApp = errors.New("subscription engine not initialized")

// Commands returns every billing command for registration on the root.
func Commands() []*cobra.Command {
	return []*cobra.Command{statusCmd, upgradeCmd, cancelCmd, accessCmd, usageCmd, assignmentCmd}
}

func requireApp() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.Engine == nil {
		return nil, errNoApp
	}
	return app, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
