package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/olx/internal/formatter"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/repositories"
	"github.com/desertthunder/olx/internal/scheduling"
	"github.com/desertthunder/olx/internal/services"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/urfave/cli/v3"
)

const slotLayout = "2006-01-02 15:04"

// eventIndex converts the 1-based --index shown by 'events list' to a list position.
func eventIndex(cmd *cli.Command) int {
	return int(cmd.Int("index")) - 1
}

func reference(cmd *cli.Command) models.Reference {
	return models.Reference{Doctype: cmd.String("doctype"), Docname: cmd.String("name")}
}

// controller builds a scheduling controller for ref. Refreshed lists are written to the event cache when the
// database opens; the returned close func is never nil.
func (r *Runner) controller(ref models.Reference, notifier scheduling.Notifier) (*scheduling.Controller, func(), error) {
	if err := r.requireCRM(); err != nil {
		return nil, func() {}, err
	}

	zones, err := r.zones()
	if err != nil {
		return nil, func() {}, err
	}
	view, err := scheduling.ParseView(r.config.Calendar.DefaultView)
	if err != nil {
		return nil, func() {}, err
	}

	logger := shared.WithLogger(r.logger, "component", "scheduling", "ref", ref.String())
	if notifier == nil {
		notifier = scheduling.NewLogNotifier(logger)
	}
	opts := scheduling.Options{
		Backend:      r.crm,
		Defaults:     r.crm,
		Calendar:     r.crm,
		Notifier:     notifier,
		Logger:       logger,
		HolidayColor: r.config.Calendar.HolidayColor,
		View:         view,
		SystemZone:   zones.System,
		DefaultData: models.ScheduleDefaults{
			Participants: []models.ParticipantRow{{ReferenceDoctype: ref.Doctype, ReferenceDocname: ref.Docname}},
		},
	}

	if src := r.config.Calendar.HolidayFeed; src != "" {
		feed := services.NewHolidayFeed(src, nil, zones.Display)
		opts.Assets = scheduling.NewAssets(feed)
		opts.Holidays = feed
	}

	closeDB := func() {}
	if db, err := r.openDatabase(); err != nil {
		r.logger.Warn("event cache unavailable", "error", err)
	} else {
		cache := repositories.NewEventCacheRepository(db)
		opts.OnRefresh = func(events []models.ScheduledEvent) {
			if err := cache.Replace(context.Background(), ref, events); err != nil {
				logger.Warn("failed to cache events", "error", err)
			}
		}
		closeDB = func() { db.Close() }
	}

	ctrl, err := scheduling.New(ref, opts)
	if err != nil {
		closeDB()
		return nil, func() {}, err
	}
	return ctrl, closeDB, nil
}

// loadedController builds a controller and fetches its event list.
func (r *Runner) loadedController(ctx context.Context, cmd *cli.Command) (*scheduling.Controller, func(), error) {
	ctrl, closeDB, err := r.controller(reference(cmd), nil)
	if err != nil {
		return nil, closeDB, err
	}
	if err := ctrl.Refresh(ctx); err != nil {
		closeDB()
		return nil, func() {}, err
	}
	return ctrl, closeDB, nil
}

// parseSlot parses "YYYY-MM-DD HH:MM/HH:MM" (or a full end date) in the display zone and returns wall clocks in the
// system zone.
func parseSlot(value string, zones formatter.Zones) (time.Time, time.Time, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: slot %q must be START/END", shared.ErrInvalidFlag, value)
	}

	display := zones.Display
	if display == nil {
		display = time.UTC
	}
	system := zones.System
	if system == nil {
		system = time.UTC
	}

	start, err := time.ParseInLocation(slotLayout, strings.TrimSpace(from), display)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: slot start %q: %v", shared.ErrInvalidFlag, from, err)
	}

	to = strings.TrimSpace(to)
	if !strings.Contains(to, " ") {
		to = start.Format(time.DateOnly) + " " + to
	}
	end, err := time.ParseInLocation(slotLayout, to, display)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: slot end %q: %v", shared.ErrInvalidFlag, to, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: slot %q ends before it starts", shared.ErrInvalidFlag, value)
	}
	return start.In(system), end.In(system), nil
}

func (r *Runner) appendSlots(d *scheduling.Dialog, values []string) error {
	zones, err := r.zones()
	if err != nil {
		return err
	}
	for _, v := range values {
		start, end, err := parseSlot(v, zones)
		if err != nil {
			return err
		}
		d.AppendSlot(start, end)
	}
	return nil
}

// submit applies fn to the open dialog and submits it. The dialog is closed when either step fails.
func submit(ctx context.Context, ctrl *scheduling.Controller, fn func(d *scheduling.Dialog) error) error {
	if err := ctrl.Update(fn); err != nil {
		return errors.Join(err, ctrl.Close())
	}
	if err := ctrl.Submit(ctx); err != nil {
		if closeErr := ctrl.Close(); closeErr != nil && !errors.Is(closeErr, shared.ErrNoDialog) {
			return errors.Join(err, closeErr)
		}
		return err
	}
	return nil
}

// EventsList prints the events of a record, or writes them to an export file.
func (r *Runner) EventsList(ctx context.Context, cmd *cli.Command) error {
	ref := reference(cmd)
	zones, err := r.zones()
	if err != nil {
		return err
	}

	var events []models.ScheduledEvent
	if cmd.Bool("cached") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		var cachedAt time.Time
		events, cachedAt, err = repositories.NewEventCacheRepository(db).List(ctx, ref)
		if err != nil {
			return err
		}
		r.logger.Info("using cached events", "ref", ref, "cached_at", cachedAt)
	} else {
		ctrl, closeDB, err := r.loadedController(ctx, cmd)
		defer closeDB()
		if err != nil {
			return err
		}
		if events, err = ctrl.Events(); err != nil {
			return err
		}
	}

	format := cmd.String("format")
	if output := cmd.String("output"); output != "" {
		return r.exportEvents(ref, events, zones, format, output)
	}

	var data []byte
	switch format {
	case "json":
		return r.writeJSON(events, true)
	case "md", "markdown":
		data, err = formatter.EventsToMarkdown(ref, events, zones)
	case "csv":
		data, err = formatter.EventsToCSV(events, zones)
	case "text", "":
		data, err = formatter.EventsToText(events, zones)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

func (r *Runner) exportEvents(ref models.Reference, events []models.ScheduledEvent, zones formatter.Zones, format, output string) error {
	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(ref, events, zones, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d entries to %s\n", len(events), result.EventsFile)
		r.writePlain("  Metadata: %s\n", result.MetadataFile)
	case "md", "markdown":
		path, err := formatter.WriteMarkdownExport(ref, events, zones, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d entries to %s\n", len(events), path)
	case "text", "":
		path, err := formatter.WriteTextExport(ref, events, zones, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d entries to %s\n", len(events), path)
	default:
		return fmt.Errorf("%w: cannot export format %q", shared.ErrInvalidFlag, format)
	}
	return nil
}

// EventsSchedule opens a Schedule dialog, fills it from flags and submits it.
func (r *Runner) EventsSchedule(ctx context.Context, cmd *cli.Command) error {
	ctrl, closeDB, err := r.controller(reference(cmd), nil)
	defer closeDB()
	if err != nil {
		return err
	}

	if _, err := ctrl.OpenSchedule(ctx, nil); err != nil {
		return err
	}
	if t := cmd.String("template"); t != "" {
		if err := ctrl.SetTemplate(ctx, t); err != nil {
			return errors.Join(err, ctrl.Close())
		}
	}
	if g := cmd.String("group"); g != "" {
		added, err := ctrl.ExpandGroup(ctx, g)
		if err != nil {
			return errors.Join(err, ctrl.Close())
		}
		r.logger.Info("group expanded", "group", g, "added", added)
	}

	fill := func(d *scheduling.Dialog) error {
		if err := r.appendSlots(d, cmd.StringSlice("slot")); err != nil {
			return err
		}
		for _, u := range cmd.StringSlice("user") {
			d.AddUser(u)
		}
		for flag, field := range map[string]*string{
			"subject":     &d.Subject,
			"description": &d.Description,
			"calendar":    &d.OutlookCalendar,
			"organiser":   &d.Organiser,
			"location":    &d.Location,
			"repeat-till": &d.RepeatTill,
		} {
			if cmd.IsSet(flag) {
				*field = cmd.String(flag)
			}
		}
		if on := cmd.String("repeat-on"); on != "" {
			d.Repeat = true
			d.RepeatOn = on
			d.Weekdays = cmd.StringSlice("weekday")
		}
		d.AddTeamsMeet = cmd.Bool("teams")
		d.AllDay = cmd.Bool("all-day")
		return nil
	}

	if n := int(cmd.Int("preview")); n > 0 {
		defer ctrl.Close()
		if err := ctrl.Update(fill); err != nil {
			return err
		}
		d, err := ctrl.Dialog()
		if err != nil {
			return err
		}
		if err := d.Validate(); err != nil {
			return err
		}
		return r.printOccurrences(d, n)
	}

	return submit(ctx, ctrl, fill)
}

func (r *Runner) printOccurrences(d scheduling.Dialog, limit int) error {
	occurrences, err := d.Occurrences(limit)
	if err != nil {
		return err
	}
	zones, err := r.zones()
	if err != nil {
		return err
	}

	r.writePlainHeader(d.Subject)
	for _, o := range occurrences {
		r.writePlain("#%d  %s\n", o.Proposal, zones.Range(models.NewTimestamp(o.Start), models.NewTimestamp(o.End)))
	}
	return nil
}

// EventsReschedule replaces the proposals of an entry.
func (r *Runner) EventsReschedule(ctx context.Context, cmd *cli.Command) error {
	ctrl, closeDB, err := r.loadedController(ctx, cmd)
	defer closeDB()
	if err != nil {
		return err
	}

	if _, err := ctrl.OpenReschedule(ctx, nil, eventIndex(cmd)); err != nil {
		return err
	}
	return submit(ctx, ctrl, func(d *scheduling.Dialog) error {
		d.Reason = cmd.String("reason")
		return r.appendSlots(d, cmd.StringSlice("slot"))
	})
}

// EventsCancel cancels an entry.
func (r *Runner) EventsCancel(ctx context.Context, cmd *cli.Command) error {
	ctrl, closeDB, err := r.loadedController(ctx, cmd)
	defer closeDB()
	if err != nil {
		return err
	}

	if _, err := ctrl.OpenCancel(ctx, nil, eventIndex(cmd)); err != nil {
		return err
	}
	return submit(ctx, ctrl, func(d *scheduling.Dialog) error {
		d.Reason = cmd.String("reason")
		return nil
	})
}

// EventsEdit edits a confirmed event. Unset flags keep the current values.
func (r *Runner) EventsEdit(ctx context.Context, cmd *cli.Command) error {
	ctrl, closeDB, err := r.loadedController(ctx, cmd)
	defer closeDB()
	if err != nil {
		return err
	}

	if _, err := ctrl.OpenEdit(ctx, nil, eventIndex(cmd)); err != nil {
		return err
	}
	if g := cmd.String("group"); g != "" {
		if _, err := ctrl.ExpandGroup(ctx, g); err != nil {
			return errors.Join(err, ctrl.Close())
		}
	}
	return submit(ctx, ctrl, func(d *scheduling.Dialog) error {
		if cmd.IsSet("subject") {
			d.Subject = cmd.String("subject")
		}
		if cmd.IsSet("description") {
			d.Description = cmd.String("description")
		}
		if cmd.IsSet("location") {
			d.Location = cmd.String("location")
		}
		if cmd.IsSet("teams") {
			d.AddTeamsMeet = cmd.Bool("teams")
		}
		for _, u := range cmd.StringSlice("user") {
			d.AddUser(u)
		}
		return nil
	})
}

// EventsClose marks an entry as Closed.
func (r *Runner) EventsClose(ctx context.Context, cmd *cli.Command) error {
	ctrl, closeDB, err := r.loadedController(ctx, cmd)
	defer closeDB()
	if err != nil {
		return err
	}
	return ctrl.MarkClosed(ctx, eventIndex(cmd))
}

// EventsOpen opens the meeting link of an entry, or its desk page when it has none.
func (r *Runner) EventsOpen(ctx context.Context, cmd *cli.Command) error {
	ctrl, closeDB, err := r.loadedController(ctx, cmd)
	defer closeDB()
	if err != nil {
		return err
	}

	ev, err := ctrl.Event(eventIndex(cmd))
	if err != nil {
		return err
	}

	url := ev.MeetingLink
	if url == "" {
		url = fmt.Sprintf("%s/app/%s/%s", r.api.BaseURL(), slug(ev.Doctype()), ev.Name)
	}
	r.logger.Info("opening", "url", url)
	return shared.OpenBrowser(url)
}

// slug turns a doctype into its desk route, e.g. "Event Slot" into "event-slot".
func slug(doctype string) string {
	return strings.ReplaceAll(strings.ToLower(doctype), " ", "-")
}
