package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/desertthunder/olx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive events view of a record.
//
// Logs go to ./tmp/olx-tui.log while the program owns the terminal.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	fileLogger, logFile, err := shared.NewFileLogger("./tmp/olx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	zones, err := r.zones()
	if err != nil {
		return err
	}

	notifier := ui.NewNotifier(0)
	ctrl, closeDB, err := r.controller(reference(cmd), notifier)
	defer closeDB()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ctrl, notifier, zones)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
