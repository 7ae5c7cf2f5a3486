package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/formatter"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/repositories"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/desertthunder/olx/internal/tasks"
	"github.com/desertthunder/olx/internal/ui"
	"github.com/urfave/cli/v3"
)

const progressWidth = 30

// recorder opens the database for recording runs. The returned close func is never nil.
func (r *Runner) recorder(disabled bool) (tasks.JobRecorder, func(), error) {
	if disabled {
		return nil, func() {}, nil
	}
	db, err := r.openDatabase()
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewSyncJobRecorder(repositories.NewSyncJobRepository(db)), func() { db.Close() }, nil
}

// printProgress writes each update of progressCh until it is closed, then closes done.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progressCh {
		switch update.Phase {
		case tasks.SyncStarted:
			r.writePlain("▶ %s\n", update.Message)
		case tasks.SyncProgress:
			r.writePlain("  %s\n", formatter.ProgressLine(update.Kind.Title(), update.Step, update.Total, progressWidth))
		case tasks.SyncCompleted:
			r.writePlain("✓ %s\n", update.Message)
		case tasks.SyncFailed:
			r.writePlain("%s\n", update.Message)
		}
	}
}

func (r *Runner) syncAction(kind models.SyncKind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.SyncRun(ctx, cmd, kind)
	}
}

// SyncRun starts one sync job and follows it to completion.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command, kind models.SyncKind) error {
	if err := r.requireCRM(); err != nil {
		return err
	}

	recorder, closeDB, err := r.recorder(cmd.Bool("no-record"))
	if err != nil {
		return err
	}
	defer closeDB()

	client := r.relayClient()
	defer client.Close()
	tracker := r.tracker(client, recorder)

	if cmd.Bool("tui") {
		return r.runSyncTUI(ctx, tracker, []models.SyncKind{kind}, tasks.BulkSyncOpts{NumWorkers: 1})
	}

	r.logger.Info("starting sync", "kind", kind)
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	result, err := tracker.Run(ctx, kind, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	r.writePlain("%s: %d/%d in %s\n", result.Channel, result.Progress, result.Total, result.Duration.Round(time.Millisecond))
	return nil
}

// SyncAll runs several sync kinds with a bounded worker pool.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCRM(); err != nil {
		return err
	}

	kinds := models.SyncKinds()
	if names := cmd.StringSlice("kind"); len(names) > 0 {
		kinds = kinds[:0:0]
		for _, name := range names {
			kind, err := models.ParseSyncKind(name)
			if err != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
			}
			kinds = append(kinds, kind)
		}
	}
	opts := tasks.BulkSyncOpts{NumWorkers: int(cmd.Int("workers")), StartRate: cmd.Float("rate")}

	recorder, closeDB, err := r.recorder(cmd.Bool("no-record"))
	if err != nil {
		return err
	}
	defer closeDB()

	client := r.relayClient()
	defer client.Close()
	tracker := r.tracker(client, recorder)

	if cmd.Bool("tui") {
		return r.runSyncTUI(ctx, tracker, kinds, opts)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.printProgress(progressCh, done)

	result := tracker.RunAll(ctx, kinds, opts, progressCh)
	close(progressCh)
	<-done

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Succeeded: %d/%d\n", result.Succeeded, result.Total)
	r.writePlain("Duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.Failed > 0 {
		r.writePlain("\nFailed:\n")
		for _, kr := range result.Results {
			if kr.Err != nil {
				r.writePlain("  - %s: %v\n", kr.Kind, kr.Err)
			}
		}
		return fmt.Errorf("%w: %d of %d jobs", shared.ErrSyncFailed, result.Failed, result.Total)
	}
	return nil
}

func (r *Runner) runSyncTUI(ctx context.Context, runner ui.BulkRunner, kinds []models.SyncKind, opts tasks.BulkSyncOpts) error {
	fileLogger, logFile, err := shared.NewFileLogger("./tmp/olx-sync.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	model := ui.NewSyncModel(ctx, runner, kinds, opts)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result := model.Result(); result != nil && result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d jobs", shared.ErrSyncFailed, result.Failed, result.Total)
	}
	return nil
}

// SyncWatch runs the configured cron schedules until interrupted.
func (r *Runner) SyncWatch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCRM(); err != nil {
		return err
	}

	recorder, closeDB, err := r.recorder(false)
	if err != nil {
		return err
	}
	defer closeDB()

	client := r.relayClient()
	defer client.Close()

	scheduler := tasks.NewScheduler(r.tracker(client, recorder), shared.WithLogger(r.logger, "component", "scheduler"))
	scheduler.OnResult = func(kind models.SyncKind, result *tasks.SyncResult, err error) {
		if err != nil {
			r.logger.Error("scheduled sync failed", "kind", kind, "error", err)
			return
		}
		r.logger.Info("scheduled sync completed", "kind", kind, "progress", result.Progress, "total", result.Total, "took", result.Duration)
	}

	if err := scheduler.Schedule(r.config.Sync.Schedules); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	for _, e := range scheduler.Entries() {
		r.writePlain("%-16s %-14s next %s\n", e.Kind, e.Spec, e.Next.Format(time.RFC3339))
	}

	if cmd.Bool("reload") {
		r.logger.Info("watching config for schedule changes", "path", r.configPath)
		return scheduler.WatchConfig(ctx, r.configPath, func(path string) (map[string]string, error) {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return config.Sync.Schedules, nil
		})
	}

	<-ctx.Done()
	return nil
}

// SyncHistory prints recorded sync runs, newest first.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	opts := repositories.ListOptions{
		Status: models.SyncStatus(cmd.String("status")),
		Limit:  int(cmd.Int("limit")),
	}
	if name := cmd.String("kind"); name != "" {
		kind, err := models.ParseSyncKind(name)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		opts.Kind = kind
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := repositories.NewSyncJobRepository(db).List(ctx, opts)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}
	_, err = r.output.Write(formatter.SyncHistory(jobs, time.Now()))
	return err
}
