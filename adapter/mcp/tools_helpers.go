package mcp

import (
	"errors"
	"strings"

	"github.com/felixgeelhaar/tutora/adapter/cli"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
)

var errEngineUnavailable = errors.New("subscription engine not initialized")

// userInput is the input of tools that act on a single user.
type userInput struct {
	UserID string `json:"user_id,omitempty"`
}

// resolveUser prefers the explicit user over the configured one.
func resolveUser(app *cli.App, input userInput) (string, error) {
	if id := strings.TrimSpace(input.UserID); id != "" {
		return id, nil
	}
	if app != nil && app.CurrentUserID != "" {
		return app.CurrentUserID, nil
	}
	return "", domain.ErrUserRequired
}

type planView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Price           string   `json:"price"`
	Currency        string   `json:"currency"`
	TrialDays       int      `json:"trial_days"`
	AssignmentLimit int      `json:"assignment_limit"`
	Features        []string `json:"features"`
}

func toPlanViews(plans []domain.Plan) []planView {
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, planView{
			ID:              p.ID,
			Name:            p.Name,
			Price:           p.Price.StringFixed(2),
			Currency:        p.Currency,
			TrialDays:       p.TrialDays,
			AssignmentLimit: p.AssignmentLimit,
			Features:        p.Features,
		})
	}
	return views
}
