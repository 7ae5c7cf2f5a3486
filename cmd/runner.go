package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/olx/internal/formatter"
	"github.com/desertthunder/olx/internal/realtime"
	"github.com/desertthunder/olx/internal/services"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/desertthunder/olx/internal/tasks"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	crm        *services.CRMService
	authMode   services.AuthMode
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	AuthMode   services.AuthMode
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	var crm *services.CRMService
	if opts.API != nil {
		crm = services.NewCRMService(opts.API)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		crm:        crm,
		authMode:   opts.AuthMode,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, eventsCommand, cacheCommand, relayCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireCRM fails when no credentials were configured at startup.
func (r *Runner) requireCRM() error {
	if r.crm == nil {
		return fmt.Errorf("%w: CRM client not initialized, check [server] in %s", shared.ErrServiceUnavailable, r.configPath)
	}
	return nil
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase() (*sqlx.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func (r *Runner) zones() (formatter.Zones, error) {
	system, display, err := r.config.Display.Locations()
	if err != nil {
		return formatter.Zones{}, err
	}
	return formatter.Zones{System: system, Display: display}, nil
}

// relayClient subscribes to progress channels on the configured relay.
func (r *Runner) relayClient() *realtime.Client {
	return realtime.NewClient(r.config.Realtime.RelayURL, nil, shared.WithLogger(r.logger, "component", "realtime"))
}

// tracker builds a sync tracker over the relay. Runs are recorded when recorder is non-nil.
func (r *Runner) tracker(client *realtime.Client, recorder tasks.JobRecorder) *tasks.SyncTracker {
	t := tasks.NewSyncTracker(r.crm, client, shared.WithLogger(r.logger, "component", "sync")).
		WithStallTimeout(r.config.Sync.Stall())
	if recorder != nil {
		t = t.WithRecorder(recorder)
	}
	return t
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
