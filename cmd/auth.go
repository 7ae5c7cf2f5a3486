package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/olx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthStatus reports which credentials the CRM client uses and who they log in as.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCRM(); err != nil {
		return err
	}

	user, err := r.crm.LoggedUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	if user == "" || user == "Guest" {
		return fmt.Errorf("%w: credentials resolve to Guest", shared.ErrNotAuthenticated)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{
			"site": r.api.BaseURL(),
			"mode": string(r.authMode),
			"user": user,
		}, true)
	}

	r.writePlain("✓ Authenticated\n")
	r.writePlain("  Site: %s\n", r.api.BaseURL())
	r.writePlain("  Mode: %s\n", r.authMode)
	r.writePlain("  User: %s\n", user)
	return nil
}

// AuthLogin opens the CRM login page so a session can be captured with 'olx setup session'.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	base := r.config.Server.BaseURL
	if base == "" {
		return fmt.Errorf("%w: server.base_url is not set in %s", shared.ErrInvalidConfig, r.configPath)
	}

	url := base + "/login"
	r.writePlain("Opening %s\n", url)
	r.writePlain("After logging in, copy any request to %s as cURL and run 'olx setup session --curl ...'\n", base)
	return shared.OpenBrowser(url)
}
