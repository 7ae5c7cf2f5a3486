package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/olx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a config file from the template unless one exists.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		r.writePlain("Config already exists at %s\n", r.configPath)
		return nil
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set server.base_url and either an API key pair, OAuth client or session file\n")
	r.writePlain("2. Run 'olx setup database' to create the local database\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", path)
	return nil
}

// SetupSession captures the cookies of a logged in browser session from a copied cURL command.
func (r *Runner) SetupSession(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	outputPath := cmd.String("output")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	if curlFile != "" {
		data, err := os.ReadFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to read cURL file: %w", err)
		}
		curlCmd = string(data)
		r.logger.Info("read cURL from file", "file", curlFile)
	}

	session, err := shared.ParseBrowserSession(curlCmd)
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}
	if session.Guest() {
		return fmt.Errorf("%w: the copied request was made as Guest, log in first", shared.ErrNotAuthenticated)
	}

	if outputPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = filepath.Join(homeDir, ".olx", "session.txt")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(curlCmd), 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	r.logger.Info("session saved", "path", outputPath)
	r.logger.Debug("captured session", "headers", session.String())

	r.writePlain("✓ CRM browser session captured\n")
	r.writePlain("Session file saved to: %s\n", outputPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Update %s with: server.session_file = \"%s\"\n", r.configPath, outputPath)
	r.writePlain("2. Run 'olx auth status' to test authentication\n")
	return nil
}
