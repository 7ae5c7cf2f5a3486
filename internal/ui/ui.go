package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/formatter"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/scheduling"
	"github.com/desertthunder/olx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EventsView ViewState = iota
	DialogView
	PickerView
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	ctrl       *scheduling.Controller
	notifier   *Notifier
	zones      formatter.Zones
	triggers   map[scheduling.DialogKind]*actionTrigger
	width      int
	height     int
	eventList  list.Model
	events     []models.ScheduledEvent
	loaded     bool
	dialog     scheduling.Dialog
	form       form
	template   string
	picker     *pickerView
	submitting bool
	status     notice
	help       help.Model
	keys       keyMap
}

// NewModel creates a TUI model over ctrl. The controller should have been created with notifier.
func NewModel(ctx context.Context, ctrl *scheduling.Controller, notifier *Notifier, zones formatter.Zones) *Model {
	if notifier == nil {
		notifier = NewNotifier(0)
	}
	eventList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	eventList.Title = fmt.Sprintf("Events for %s", ctrl.Reference())
	eventList.SetFilteringEnabled(false)
	eventList.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		view:      EventsView,
		ctrl:      ctrl,
		notifier:  notifier,
		zones:     zones,
		eventList: eventList,
		triggers: map[scheduling.DialogKind]*actionTrigger{
			scheduling.DialogSchedule:   {},
			scheduling.DialogReschedule: {},
			scheduling.DialogCancel:     {},
			scheduling.DialogEdit:       {},
		},
		help: help.New(),
		keys: newKeyMap(),
	}
}

// Init loads the event list and starts listening for toasts.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.notifier.wait())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.eventList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && (m.view == EventsView || msg.String() == "ctrl+c") {
			return m, tea.Quit
		}
		switch m.view {
		case EventsView:
			return m.handleEventKeys(msg)
		case DialogView:
			return m.handleDialogKeys(msg)
		case PickerView:
			return m.handlePickerKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == EventsView {
		var cmd tea.Cmd
		m.eventList, cmd = m.eventList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEventsLoaded:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.setEvents(msg.data.([]models.ScheduledEvent))
		return m, nil

	case MsgDialogOpened:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		d := msg.data.(*scheduling.Dialog)
		m.dialog = *d
		m.form = newForm(*d)
		m.template = d.EmailTemplate
		m.view = DialogView
		return m, nil

	case MsgDialogChanged:
		if msg.err != nil {
			m.fail(msg.err)
		}
		if errors.Is(msg.err, shared.ErrNoDialog) {
			m.view = EventsView
			return m, nil
		}
		m.dialog = msg.data.(scheduling.Dialog)
		m.form.load(m.dialog)
		m.template = m.dialog.EmailTemplate
		return m, nil

	case MsgSubmitted:
		m.submitting = false
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.view = EventsView
		m.picker = nil
		if events, ok := msg.data.([]models.ScheduledEvent); ok {
			m.setEvents(events)
		}
		return m, nil

	case MsgEntriesLoaded:
		if m.picker == nil {
			return m, nil
		}
		m.picker.loading = false
		m.picker.err = msg.err
		if msg.err == nil {
			m.picker.entries = msg.data.([]scheduling.Entry)
		}
		return m, nil

	case MsgNotice:
		m.status = msg.data.(notice)
		return m, m.notifier.wait()
	}
	return m, nil
}

func (m *Model) fail(err error) {
	m.status = notice{level: noticeError, text: err.Error()}
}

func (m *Model) setEvents(events []models.ScheduledEvent) {
	m.events = events
	m.loaded = true
	items := make([]list.Item, len(events))
	for i, e := range events {
		items[i] = eventItem{event: e, zones: m.zones}
	}
	m.eventList.SetItems(items)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case EventsView:
		body = m.renderEvents()
	case DialogView:
		body = m.renderDialog()
	case PickerView:
		body = m.picker.view(m.keys, m.help)
	}
	if m.status.text != "" {
		body += "\n\n" + m.status.render()
	}
	return body
}

func (m *Model) handleEventKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	index := m.eventList.Index()
	switch {
	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.schedule):
		return m, m.open(scheduling.DialogSchedule, -1)
	case !m.loaded || len(m.events) == 0:
	case key.Matches(msg, m.keys.reschedule):
		return m, m.open(scheduling.DialogReschedule, index)
	case key.Matches(msg, m.keys.cancel):
		return m, m.open(scheduling.DialogCancel, index)
	case key.Matches(msg, m.keys.edit):
		return m, m.open(scheduling.DialogEdit, index)
	case key.Matches(msg, m.keys.close):
		return m, m.markClosed(index)
	}

	var cmd tea.Cmd
	m.eventList, cmd = m.eventList.Update(msg)
	return m, cmd
}

func (m *Model) handleDialogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		if err := m.ctrl.Close(); err != nil && !errors.Is(err, shared.ErrNoDialog) {
			m.fail(err)
			return m, nil
		}
		m.view = EventsView
		return m, nil
	case key.Matches(msg, m.keys.submit):
		m.submitting = true
		if cmd := m.applyForm(); cmd != nil {
			return m, tea.Sequence(cmd, m.submit())
		}
		return m, m.submit()
	case key.Matches(msg, m.keys.picker):
		m.applyForm()
		p, err := m.ctrl.OpenPicker()
		if err != nil {
			m.fail(err)
			return m, nil
		}
		m.picker = newPickerView(p)
		m.view = PickerView
		return m, m.picker.load(m.ctx)
	case key.Matches(msg, m.keys.group):
		m.applyForm()
		return m, m.expandGroup(m.form.value(fieldUserGroup))
	case key.Matches(msg, m.keys.dropSlot):
		n := len(m.dialog.Proposals)
		if n == 0 {
			return m, nil
		}
		m.applyForm()
		return m, m.change(func(d *scheduling.Dialog) error { return d.RemoveSlot(n) })
	case msg.String() == "tab" || msg.String() == "shift+tab":
		leaving := m.form.focused()
		if msg.String() == "tab" {
			m.form.move(1)
		} else {
			m.form.move(-1)
		}
		if leaving == fieldTemplate {
			return m, m.applyForm()
		}
		return m, nil
	}

	cmd := m.form.update(msg)
	if m.form.focused() != fieldTemplate {
		m.ctrl.Update(m.form.apply)
	}
	return m, cmd
}

// applyForm writes the inputs to the open dialog. A changed template is set through the controller.
func (m *Model) applyForm() tea.Cmd {
	if err := m.ctrl.Update(m.form.apply); err != nil {
		m.fail(err)
	}
	if tpl := m.form.value(fieldTemplate); m.form.kind == scheduling.DialogSchedule && tpl != m.template {
		m.template = tpl
		return m.setTemplate(tpl)
	}
	return nil
}

func (m *Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		m.picker.picker.Close()
		m.picker = nil
		m.view = DialogView
		return m, m.change(nil)
	}

	reload, selected, err := m.picker.handle(msg, m.keys)
	switch {
	case err != nil:
		m.fail(err)
	case selected:
		m.picker = nil
		m.view = DialogView
		return m, m.change(nil)
	case reload:
		return m, m.picker.load(m.ctx)
	}
	return m, nil
}

func (m *Model) renderEvents() string {
	if !m.loaded {
		return styles.help.Render("Loading events...")
	}
	bindings := []key.Binding{m.keys.schedule, m.keys.reschedule, m.keys.cancel, m.keys.edit, m.keys.close, m.keys.refresh, m.keys.quit}
	busy := ""
	for _, t := range m.triggers {
		if t.Disabled() {
			busy = styles.warn.Render("  (dialog open)")
			break
		}
	}
	if len(m.events) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s%s", styles.title.Render(m.eventList.Title), styles.help.Render("No events"), m.help.ShortHelpView(bindings), busy)
	}
	return fmt.Sprintf("%s\n\n%s%s", m.eventList.View(), m.help.ShortHelpView(bindings), busy)
}

func (m *Model) renderDialog() string {
	var b strings.Builder
	title := m.dialog.Kind.Title()
	if m.dialog.Event != nil {
		title = fmt.Sprintf("%s: %s", title, m.dialog.Event.Subject)
	}
	b.WriteString(styles.title.Render(title) + "\n")
	b.WriteString(m.form.view())

	var bindings []key.Binding
	switch m.dialog.Kind {
	case scheduling.DialogSchedule, scheduling.DialogReschedule:
		b.WriteString("\n" + styles.label.Render("Slots") + "\n")
		if len(m.dialog.Proposals) == 0 {
			b.WriteString(styles.help.Render("  none, ctrl+p to pick") + "\n")
		}
		for _, p := range m.dialog.Proposals {
			fmt.Fprintf(&b, "  %d. %s\n", p.Idx, m.zones.Range(p.StartsOn, p.EndsOn))
		}
		bindings = append(bindings, m.keys.picker, m.keys.dropSlot)
	}
	if m.dialog.Kind == scheduling.DialogSchedule || m.dialog.Kind == scheduling.DialogEdit {
		bindings = append(bindings, m.keys.group)
	}
	if len(m.dialog.Participants) > 0 {
		b.WriteString("\n" + styles.label.Render("Participants") + "\n")
		for _, p := range m.dialog.Participants {
			fmt.Fprintf(&b, "  %s/%s\n", p.ReferenceDoctype, p.ReferenceDocname)
		}
	}

	if m.submitting {
		b.WriteString("\n" + styles.warn.Render("Submitting...") + "\n")
	}
	bindings = append(bindings, m.keys.next, m.keys.submit, m.keys.back)
	b.WriteString("\n" + m.help.ShortHelpView(bindings))
	return b.String()
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Refresh(m.ctx); err != nil {
			return eventsLoadedMsg(nil, err)
		}
		events, err := m.ctrl.Events()
		return eventsLoadedMsg(events, err)
	}
}

func (m *Model) open(kind scheduling.DialogKind, index int) tea.Cmd {
	trigger := m.triggers[kind]
	return func() tea.Msg {
		var (
			d   *scheduling.Dialog
			err error
		)
		switch kind {
		case scheduling.DialogSchedule:
			d, err = m.ctrl.OpenSchedule(m.ctx, trigger)
		case scheduling.DialogReschedule:
			d, err = m.ctrl.OpenReschedule(m.ctx, trigger, index)
		case scheduling.DialogCancel:
			d, err = m.ctrl.OpenCancel(m.ctx, trigger, index)
		case scheduling.DialogEdit:
			d, err = m.ctrl.OpenEdit(m.ctx, trigger, index)
		}
		return dialogOpenedMsg(d, err)
	}
}

func (m *Model) submit() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Submit(m.ctx); err != nil {
			return submittedMsg(nil, err)
		}
		events, _ := m.ctrl.Events()
		return submittedMsg(events, nil)
	}
}

func (m *Model) markClosed(index int) tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.MarkClosed(m.ctx, index); err != nil {
			return eventsLoadedMsg(nil, err)
		}
		events, err := m.ctrl.Events()
		return eventsLoadedMsg(events, err)
	}
}

// change applies fn to the open dialog, if any, and reports the new snapshot.
func (m *Model) change(fn func(d *scheduling.Dialog) error) tea.Cmd {
	return func() tea.Msg {
		var err error
		if fn != nil {
			err = m.ctrl.Update(fn)
		}
		d, derr := m.ctrl.Dialog()
		return dialogChangedMsg(d, errors.Join(err, derr))
	}
}

func (m *Model) setTemplate(template string) tea.Cmd {
	return func() tea.Msg {
		err := m.ctrl.SetTemplate(m.ctx, template)
		d, derr := m.ctrl.Dialog()
		return dialogChangedMsg(d, errors.Join(err, derr))
	}
}

func (m *Model) expandGroup(group string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.ExpandGroup(m.ctx, group)
		d, derr := m.ctrl.Dialog()
		return dialogChangedMsg(d, errors.Join(err, derr))
	}
}
