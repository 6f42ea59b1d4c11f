package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers read-only resources for the plan catalog and
// the current user's subscription.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	tools := billingTools{app: deps.App}

	srv.Resource("tutora://plans").
		Name("Plans").
		Description("Plan catalog with prices and limits").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			plans, err := tools.plans(ctx, struct{}{})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, plans)
		})

	srv.Resource("tutora://subscription").
		Name("Subscription").
		Description("Subscription status for the configured user").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			view, err := tools.status(ctx, userInput{})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, view)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
