package scheduling

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
)

// Backend performs the remote actions behind the controller.
//
// Implemented by services.CRMService.
type Backend interface {
	ReferenceEvents(ctx context.Context, ref models.Reference, withSlots bool) ([]models.ScheduledEvent, error)
	CreateSlot(ctx context.Context, doc models.SlotDoc) error
	RescheduleEventSlots(ctx context.Context, req models.RescheduleRequest) error
	CancelEvent(ctx context.Context, req models.CancelRequest) error
	EditEvent(ctx context.Context, req models.EditRequest) error
	GroupUsers(ctx context.Context, group string) ([]string, error)
	SetStatus(ctx context.Context, doctype, name, status string) error
}

// Defaults resolves pre-filled Schedule dialog values.
type Defaults interface {
	ScheduleDefaults(ctx context.Context) (models.ScheduleDefaults, error)
	TemplateSubject(ctx context.Context, template string) (string, error)
}

// Trigger is the control that opened a dialog. It stays disabled while the dialog is open.
type Trigger interface {
	SetDisabled(disabled bool)
}

// State is the controller's dialog state.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateSubmitting:
		return "submitting"
	default:
		return ""
	}
}

// Options configures a [Controller]. Backend is required.
type Options struct {
	Backend      Backend
	Defaults     Defaults
	Assets       AssetLoader
	Notifier     Notifier
	Logger       *log.Logger
	OnRefresh    func(events []models.ScheduledEvent)
	Calendar     EventFeed
	Holidays     HolidaySource
	HolidayColor string
	View         View
	SystemZone   *time.Location
	DefaultData  models.ScheduleDefaults // caller values win over resolved defaults
}

var successMessages = map[DialogKind]string{
	DialogSchedule:   "Event slots created successfully.",
	DialogReschedule: "Event slots rescheduled successfully.",
	DialogCancel:     "Event cancelled successfully.",
	DialogEdit:       "Event updated successfully.",
}

var pendingMessages = map[DialogKind]string{
	DialogSchedule:   "Creating Event Slots...",
	DialogReschedule: "Rescheduling Event Slots...",
	DialogCancel:     "Cancelling Event...",
	DialogEdit:       "Updating Event...",
}

// Controller lists the events of one CRM record and runs its Schedule, Reschedule, Cancel and Edit dialogs.
//
// At most one dialog is open at a time. State changes are serialised and the lock is never held across a remote call.
type Controller struct {
	ref    models.Reference
	opts   Options
	logger *log.Logger
	notify Notifier

	mu      sync.Mutex
	events  []models.ScheduledEvent
	loaded  bool
	state   State
	dialog  *Dialog
	trigger Trigger
	session int
}

// New creates a controller for the record ref.
func New(ref models.Reference, opts Options) (*Controller, error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: reference doctype and name", shared.ErrMissingArgument)
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("%w: scheduling backend not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(opts.Logger)
	}
	return &Controller{ref: ref, opts: opts, logger: opts.Logger, notify: opts.Notifier}, nil
}

// Reference returns the record the controller serves.
func (c *Controller) Reference() models.Reference {
	return c.ref
}

// State returns the current dialog state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh replaces the cached event list with the server's and calls OnRefresh.
func (c *Controller) Refresh(ctx context.Context) error {
	events, err := c.opts.Backend.ReferenceEvents(ctx, c.ref, true)
	if err != nil {
		err = fmt.Errorf("failed to load events for %s: %w", c.ref, err)
		c.notify.Error(err)
		return err
	}
	if events == nil {
		events = []models.ScheduledEvent{}
	}

	c.mu.Lock()
	c.events = events
	c.loaded = true
	snapshot := slices.Clone(events)
	c.mu.Unlock()

	c.logger.Debug("events refreshed", "ref", c.ref, "count", len(snapshot))
	if c.opts.OnRefresh != nil {
		c.opts.OnRefresh(snapshot)
	}
	return nil
}

// Events returns the cached list. It fails with [shared.ErrNotLoaded] before the first Refresh.
func (c *Controller) Events() ([]models.ScheduledEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, shared.ErrNotLoaded
	}
	return slices.Clone(c.events), nil
}

// Event returns the cached entry at index.
func (c *Controller) Event(index int) (models.ScheduledEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eventLocked(index)
}

func (c *Controller) eventLocked(index int) (models.ScheduledEvent, error) {
	if !c.loaded {
		return models.ScheduledEvent{}, shared.ErrNotLoaded
	}
	if index < 0 || index >= len(c.events) {
		return models.ScheduledEvent{}, fmt.Errorf("%w: %d of %d", shared.ErrEventIndex, index, len(c.events))
	}
	return c.events[index], nil
}

// OpenSchedule opens a Schedule dialog pre-filled with the organiser, default calendar and template subject.
func (c *Controller) OpenSchedule(ctx context.Context, trigger Trigger) (*Dialog, error) {
	return c.open(ctx, trigger, DialogSchedule, -1)
}

// OpenReschedule opens the proposal editor for the entry at index.
func (c *Controller) OpenReschedule(ctx context.Context, trigger Trigger, index int) (*Dialog, error) {
	return c.open(ctx, trigger, DialogReschedule, index)
}

// OpenCancel opens a Cancel dialog for the entry at index.
func (c *Controller) OpenCancel(ctx context.Context, trigger Trigger, index int) (*Dialog, error) {
	return c.open(ctx, trigger, DialogCancel, index)
}

// OpenEdit opens an Edit dialog for the confirmed event at index.
func (c *Controller) OpenEdit(ctx context.Context, trigger Trigger, index int) (*Dialog, error) {
	return c.open(ctx, trigger, DialogEdit, index)
}

func (c *Controller) open(ctx context.Context, trigger Trigger, kind DialogKind, index int) (*Dialog, error) {
	if trigger == nil {
		trigger = noTrigger{}
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s dialog", shared.ErrDialogOpen, c.dialogKindLocked())
	}

	var target *models.ScheduledEvent
	if kind != DialogSchedule {
		ev, err := c.eventLocked(index)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		if err := checkTarget(kind, ev); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		target = &ev
	}

	c.state = StateOpen
	c.session++
	session := c.session
	c.trigger = trigger
	c.mu.Unlock()

	trigger.SetDisabled(true)

	if kind == DialogSchedule || kind == DialogReschedule {
		if err := c.loadAssets(ctx); err != nil {
			c.abort(session)
			err = fmt.Errorf("failed to load calendar assets: %w", err)
			c.notify.Error(err)
			return nil, err
		}
	}

	d := &Dialog{Kind: kind, Index: index, Event: target}
	switch kind {
	case DialogSchedule:
		c.applyDefaults(ctx, d)
	case DialogEdit:
		d.Subject = target.Subject
		d.Description = target.Description
		d.AddTeamsMeet = bool(target.AddTeamsMeet)
		d.Location = target.Location
		d.Users, d.Participants = PartitionParticipants(target.Participants)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session || c.state != StateOpen {
		return nil, fmt.Errorf("%w: dialog closed while opening", shared.ErrNoDialog)
	}
	c.dialog = d
	snapshot := d.clone()
	return &snapshot, nil
}

func checkTarget(kind DialogKind, ev models.ScheduledEvent) error {
	switch kind {
	case DialogEdit:
		if ev.IsSlot() {
			return fmt.Errorf("%w: %s is a slot proposal, only confirmed events can be edited", shared.ErrInvalidArgument, ev.Name)
		}
		fallthrough
	case DialogReschedule, DialogCancel:
		if ev.Cancelled() {
			return fmt.Errorf("%w: %s is cancelled", shared.ErrInvalidArgument, ev.Name)
		}
	}
	return nil
}

func (c *Controller) loadAssets(ctx context.Context) error {
	if c.opts.Assets == nil {
		return nil
	}
	return c.opts.Assets.Load(ctx)
}

// applyDefaults fills the Schedule dialog. Lookup failures leave fields empty.
func (c *Controller) applyDefaults(ctx context.Context, d *Dialog) {
	var resolved models.ScheduleDefaults
	if c.opts.Defaults != nil {
		var err error
		if resolved, err = c.opts.Defaults.ScheduleDefaults(ctx); err != nil {
			c.logger.Warn("failed to resolve schedule defaults", "error", err)
		}
	}

	given := c.opts.DefaultData
	d.Organiser = firstNonEmpty(given.Organiser, resolved.Organiser)
	d.OutlookCalendar = firstNonEmpty(given.OutlookCalendar, resolved.OutlookCalendar)
	d.EmailTemplate = firstNonEmpty(given.EmailTemplate, resolved.EmailTemplate)
	d.Subject = firstNonEmpty(given.Subject, resolved.Subject)
	d.Participants = slices.Clone(given.Participants)

	if d.Subject == "" && d.EmailTemplate != "" && c.opts.Defaults != nil {
		subject, err := c.opts.Defaults.TemplateSubject(ctx, d.EmailTemplate)
		if err != nil {
			c.logger.Warn("failed to fetch template subject", "template", d.EmailTemplate, "error", err)
		}
		d.Subject = subject
	}
}

// abort returns an opening session to Idle and re-enables its trigger.
func (c *Controller) abort(session int) {
	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return
	}
	trigger := c.trigger
	c.state = StateIdle
	c.dialog = nil
	c.trigger = nil
	c.mu.Unlock()

	if trigger != nil {
		trigger.SetDisabled(false)
	}
}

func (c *Controller) dialogKindLocked() string {
	if c.dialog == nil {
		return "another"
	}
	return c.dialog.Kind.String()
}

// Dialog returns a snapshot of the open dialog.
func (c *Controller) Dialog() (Dialog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialog == nil {
		return Dialog{}, shared.ErrNoDialog
	}
	return c.dialog.clone(), nil
}

// Update edits the open dialog under the controller lock. It fails while a submit is in flight.
func (c *Controller) Update(fn func(d *Dialog) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(fn)
}

func (c *Controller) updateLocked(fn func(d *Dialog) error) error {
	switch {
	case c.state == StateSubmitting:
		return shared.ErrSubmitInFlight
	case c.dialog == nil:
		return shared.ErrNoDialog
	}
	return fn(c.dialog)
}

// SetTemplate selects an email template and copies its subject when the subject is empty.
func (c *Controller) SetTemplate(ctx context.Context, template string) error {
	if _, err := c.requireKind(DialogSchedule); err != nil {
		return err
	}

	var subject string
	if c.opts.Defaults != nil && template != "" {
		var err error
		if subject, err = c.opts.Defaults.TemplateSubject(ctx, template); err != nil {
			return fmt.Errorf("failed to fetch template subject: %w", err)
		}
	}

	return c.Update(func(d *Dialog) error {
		d.EmailTemplate = template
		if d.Subject == "" {
			d.Subject = subject
		}
		return nil
	})
}

// ExpandGroup adds the members of group to the dialog's users, skipping those already present,
// then clears the group selector. It returns the number of rows added.
func (c *Controller) ExpandGroup(ctx context.Context, group string) (int, error) {
	session, err := c.requireKind(DialogSchedule, DialogEdit)
	if err != nil {
		return 0, err
	}
	if group == "" {
		return 0, nil
	}
	if err := c.Update(func(d *Dialog) error { d.UserGroup = group; return nil }); err != nil {
		return 0, err
	}

	members, err := c.opts.Backend.GroupUsers(ctx, group)
	if err != nil {
		err = fmt.Errorf("failed to expand group %s: %w", group, err)
		c.notify.Error(err)
		return 0, err
	}

	var added int
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return 0, fmt.Errorf("%w: dialog closed while expanding group", shared.ErrNoDialog)
	}
	err = c.updateLocked(func(d *Dialog) error {
		d.Users, added = MergeMembers(d.Users, members, d.userRow)
		d.UserGroup = ""
		return nil
	})
	return added, err
}

// requireKind checks that an open dialog has one of kinds and returns its session.
func (c *Controller) requireKind(kinds ...DialogKind) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dialog == nil {
		return 0, shared.ErrNoDialog
	}
	if !slices.Contains(kinds, c.dialog.Kind) {
		return 0, fmt.Errorf("%w: not available in the %s dialog", shared.ErrWrongDialog, c.dialog.Kind)
	}
	return c.session, nil
}

// OpenPicker returns a slot picker whose selections append proposals to the open dialog.
func (c *Controller) OpenPicker() (*Picker, error) {
	session, err := c.requireKind(DialogSchedule, DialogReschedule)
	if err != nil {
		return nil, err
	}

	return NewPicker(PickerConfig{
		Events:       c.opts.Calendar,
		Holidays:     c.opts.Holidays,
		HolidayColor: c.opts.HolidayColor,
		View:         c.opts.View,
		SystemZone:   c.opts.SystemZone,
		OnSlotSelect: func(start, end time.Time) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.session != session || c.state != StateOpen || c.dialog == nil {
				return
			}
			p := c.dialog.AppendSlot(start, end)
			c.logger.Debug("slot added", "idx", p.Idx, "start", p.StartsOn, "end", p.EndsOn)
		},
	}), nil
}

// Submit validates the open dialog and sends it.
//
// Invalid input fails before any remote call. On success the dialog closes, the trigger is re-enabled and the
// list is refreshed. On failure the dialog stays open and the trigger stays disabled until Close.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state == StateSubmitting:
		c.mu.Unlock()
		return shared.ErrSubmitInFlight
	case c.dialog == nil:
		c.mu.Unlock()
		return shared.ErrNoDialog
	}
	if err := c.dialog.Validate(); err != nil {
		c.mu.Unlock()
		c.notify.Error(err)
		return err
	}
	d := c.dialog.clone()
	session := c.session
	c.state = StateSubmitting
	c.mu.Unlock()

	c.notify.Info(pendingMessages[d.Kind])
	err := c.send(ctx, &d)

	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state = StateOpen
		c.mu.Unlock()
		err = fmt.Errorf("%s failed: %w", d.Kind, err)
		c.notify.Error(err)
		return err
	}
	trigger := c.trigger
	c.state = StateIdle
	c.dialog = nil
	c.trigger = nil
	c.mu.Unlock()

	if trigger != nil {
		trigger.SetDisabled(false)
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after submit failed", "error", err)
	}
	c.notify.Success(successMessages[d.Kind])
	return nil
}

func (c *Controller) send(ctx context.Context, d *Dialog) error {
	switch d.Kind {
	case DialogSchedule:
		doc, err := d.SlotDoc()
		if err != nil {
			return err
		}
		return c.opts.Backend.CreateSlot(ctx, doc)
	case DialogReschedule:
		return c.opts.Backend.RescheduleEventSlots(ctx, d.RescheduleRequest())
	case DialogCancel:
		return c.opts.Backend.CancelEvent(ctx, d.CancelRequest())
	case DialogEdit:
		return c.opts.Backend.EditEvent(ctx, d.EditRequest())
	default:
		return fmt.Errorf("%w: unknown dialog kind %d", shared.ErrInvalidInput, d.Kind)
	}
}

// Close dismisses the open dialog without a remote call and re-enables its trigger.
func (c *Controller) Close() error {
	c.mu.Lock()
	switch {
	case c.state == StateSubmitting:
		c.mu.Unlock()
		return shared.ErrSubmitInFlight
	case c.state == StateIdle:
		c.mu.Unlock()
		return shared.ErrNoDialog
	}
	trigger := c.trigger
	c.state = StateIdle
	c.dialog = nil
	c.trigger = nil
	c.session++
	c.mu.Unlock()

	if trigger != nil {
		trigger.SetDisabled(false)
	}
	return nil
}

// MarkClosed sets the status of the entry at index to Closed and refreshes.
func (c *Controller) MarkClosed(ctx context.Context, index int) error {
	ev, err := c.Event(index)
	if err != nil {
		return err
	}
	if err := c.opts.Backend.SetStatus(ctx, ev.Doctype(), ev.Name, models.StatusClosed); err != nil {
		err = fmt.Errorf("failed to close %s: %w", ev.Name, err)
		c.notify.Error(err)
		return err
	}
	return c.Refresh(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type noTrigger struct{}

func (noTrigger) SetDisabled(bool) {}
