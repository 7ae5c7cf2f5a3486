// submodule cmd contains command definitions
package main

import (
	"fmt"

	"github.com/desertthunder/olx/internal/models"
	"github.com/urfave/cli/v3"
)

var referenceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "doctype",
		Aliases:  []string{"t"},
		Usage:    "CRM doctype of the record (e.g. Lead, Opportunity)",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "name",
		Aliases:  []string{"n"},
		Usage:    "CRM document name of the record",
		Required: true,
	},
}

func withReference(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, referenceFlags...), flags...)
}

var indexFlag = &cli.IntFlag{
	Name:     "index",
	Aliases:  []string{"i"},
	Usage:    "Number of the entry in 'events list'",
	Required: true,
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "session",
				Usage: "Capture a CRM browser session from a copied cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser's network tab",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Session file path (default: ~/.olx/session.txt)",
					},
				},
				Action: r.SetupSession,
			},
		},
	}
}

// authCommand inspects the configured CRM credentials
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "CRM authentication commands",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the credential source and logged in user",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.AuthStatus,
			},
			{
				Name:   "login",
				Usage:  "Open the CRM login page in the browser",
				Action: r.AuthLogin,
			},
		},
	}
}

// syncCommand handles Microsoft sync jobs
func syncCommand(r *Runner) *cli.Command {
	commands := []*cli.Command{}
	for _, kind := range models.SyncKinds() {
		commands = append(commands, &cli.Command{
			Name:  string(kind),
			Usage: fmt.Sprintf("Sync %s and follow its progress", kind.Title()),
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "tui", Usage: "Show a progress bar"},
				&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
				&cli.BoolFlag{Name: "no-record", Usage: "Do not record the run in the database"},
			},
			Action: r.syncAction(kind),
		})
	}

	commands = append(commands,
		&cli.Command{
			Name:  "all",
			Usage: "Sync several kinds concurrently",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Kinds to sync (default: all)"},
				&cli.IntFlag{Name: "workers", Usage: "Concurrent jobs (max 5)", Value: 2},
				&cli.FloatFlag{Name: "rate", Usage: "Job starts per second", Value: 1},
				&cli.BoolFlag{Name: "tui", Usage: "Show progress bars"},
				&cli.BoolFlag{Name: "no-record", Usage: "Do not record runs in the database"},
			},
			Action: r.SyncAll,
		},
		&cli.Command{
			Name:  "watch",
			Usage: "Run syncs on the cron schedules in [sync.schedules]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "reload", Usage: "Reload schedules when the config file changes"},
			},
			Action: r.SyncWatch,
		},
		&cli.Command{
			Name:  "history",
			Usage: "List recorded sync runs",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "kind", Usage: "Only show this kind"},
				&cli.StringFlag{Name: "status", Usage: "Only show this status (running, completed, failed, stalled)"},
				&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum runs to show", Value: 20},
				&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
			},
			Action: r.SyncHistory,
		},
	)

	return &cli.Command{
		Name:     "sync",
		Usage:    "Start Microsoft sync jobs and follow their progress",
		Commands: commands,
	}
}

// eventsCommand handles scheduled events of a CRM record
func eventsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "events",
		Aliases: []string{"ev"},
		Usage:   "List and schedule Outlook events of a CRM record",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List events and slot proposals",
				Flags: withReference(
					&cli.BoolFlag{Name: "cached", Usage: "Read the last refreshed list from the database"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: text, md, csv, json", Value: "text"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write an export instead of printing"},
				),
				Action: r.EventsList,
			},
			{
				Name:  "schedule",
				Usage: "Propose event slots",
				Flags: withReference(
					&cli.StringSliceFlag{Name: "slot", Usage: "Proposal as \"YYYY-MM-DD HH:MM/HH:MM\" in the display timezone (repeatable)"},
					&cli.StringFlag{Name: "template", Usage: "Email template"},
					&cli.StringFlag{Name: "subject", Usage: "Subject (default: template subject)"},
					&cli.StringFlag{Name: "description", Usage: "Description"},
					&cli.StringFlag{Name: "calendar", Usage: "Outlook calendar"},
					&cli.StringFlag{Name: "organiser", Usage: "Organiser (default: logged in user)"},
					&cli.StringFlag{Name: "location", Usage: "Location"},
					&cli.BoolFlag{Name: "teams", Usage: "Add a Teams meeting"},
					&cli.BoolFlag{Name: "all-day", Usage: "All day event"},
					&cli.StringFlag{Name: "repeat-on", Usage: "Repeat: Daily, Weekly, Monthly, Yearly"},
					&cli.StringFlag{Name: "repeat-till", Usage: "Last repeat date (YYYY-MM-DD)"},
					&cli.StringSliceFlag{Name: "weekday", Usage: "Weekday of a weekly repeat (repeatable)"},
					&cli.StringSliceFlag{Name: "user", Aliases: []string{"u"}, Usage: "Internal participant (repeatable)"},
					&cli.StringFlag{Name: "group", Usage: "Add every member of a user group"},
					&cli.IntFlag{Name: "preview", Usage: "Print this many occurrences and exit without creating slots"},
				),
				Action: r.EventsSchedule,
			},
			{
				Name:  "reschedule",
				Usage: "Replace the proposals of an entry",
				Flags: withReference(
					indexFlag,
					&cli.StringSliceFlag{Name: "slot", Usage: "New proposal as \"YYYY-MM-DD HH:MM/HH:MM\" (repeatable)", Required: true},
					&cli.StringFlag{Name: "reason", Usage: "Reason sent to participants"},
				),
				Action: r.EventsReschedule,
			},
			{
				Name:  "cancel",
				Usage: "Cancel an entry",
				Flags: withReference(
					indexFlag,
					&cli.StringFlag{Name: "reason", Usage: "Reason sent to participants"},
				),
				Action: r.EventsCancel,
			},
			{
				Name:  "edit",
				Usage: "Edit a confirmed event",
				Flags: withReference(
					indexFlag,
					&cli.StringFlag{Name: "subject", Usage: "New subject"},
					&cli.StringFlag{Name: "description", Usage: "New description"},
					&cli.StringFlag{Name: "location", Usage: "New location"},
					&cli.BoolFlag{Name: "teams", Usage: "Add a Teams meeting"},
					&cli.StringSliceFlag{Name: "user", Aliases: []string{"u"}, Usage: "Add an internal participant (repeatable)"},
					&cli.StringFlag{Name: "group", Usage: "Add every member of a user group"},
				),
				Action: r.EventsEdit,
			},
			{
				Name:   "close",
				Usage:  "Mark an entry as Closed",
				Flags:  withReference(indexFlag),
				Action: r.EventsClose,
			},
			{
				Name:   "open",
				Usage:  "Open the meeting link of an entry in the browser",
				Flags:  withReference(indexFlag),
				Action: r.EventsOpen,
			},
		},
	}
}

// cacheCommand handles the local event cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local event cache",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the cached events of a record",
				Flags: withReference(
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				),
				Action: r.CacheShow,
			},
			{
				Name:   "clear",
				Usage:  "Drop the cached events of a record",
				Flags:  withReference(),
				Action: r.CacheClear,
			},
		},
	}
}

// relayCommand handles the realtime progress relay
func relayCommand(r *Runner) *cli.Command {
	channelFlag := &cli.StringFlag{
		Name:     "channel",
		Aliases:  []string{"c"},
		Usage:    "Realtime channel (e.g. sync_ms_users)",
		Required: true,
	}

	return &cli.Command{
		Name:  "relay",
		Usage: "Realtime progress relay",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve realtime channels over Server-Sent Events",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (default: realtime.listen_addr)"},
				},
				Action: r.RelayServe,
			},
			{
				Name:  "publish",
				Usage: "Publish one progress event",
				Flags: []cli.Flag{
					channelFlag,
					&cli.StringFlag{Name: "title", Usage: "Progress title"},
					&cli.IntFlag{Name: "progress", Usage: "Progress value"},
					&cli.IntFlag{Name: "total", Usage: "Total value"},
					&cli.StringFlag{Name: "error", Usage: "Report a failed job"},
				},
				Action: r.RelayPublish,
			},
			{
				Name:   "listen",
				Usage:  "Print events of a channel until interrupted",
				Flags:  []cli.Flag{channelFlag},
				Action: r.RelayListen,
			},
		},
	}
}

// apiCommand makes raw calls to the CRM site
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct CRM API access for debugging",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Make a GET request",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path", UsageText: "API path (e.g. /api/resource/Lead)"},
				},
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output compact JSON"}},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Make a POST request",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path", UsageText: "API path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "JSON request body", Required: true},
				},
				Action: r.APIPost,
			},
			{
				Name:  "call",
				Usage: "Call a whitelisted method and print its message",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "method", UsageText: "Dotted method path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "args", Aliases: []string{"a"}, Usage: "JSON object of arguments", Value: "{}"},
				},
				Action: r.APICall,
			},
		},
	}
}

// tuiCommand launches the interactive events view
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse and schedule events of a record interactively",
		Flags:  withReference(),
		Action: r.TUI,
	}
}
