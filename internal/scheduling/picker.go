package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
)

// View is a calendar view mode.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

// ParseView accepts month, week or day. Empty selects week.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewMonth, ViewWeek, ViewDay:
		return View(s), nil
	case "":
		return ViewWeek, nil
	default:
		return "", fmt.Errorf("%w: unknown calendar view %q", shared.ErrInvalidArgument, s)
	}
}

// EventFeed returns busy calendar entries for a window.
type EventFeed interface {
	CalendarEntries(ctx context.Context, start, end time.Time) ([]models.CalendarEntry, error)
}

// HolidaySource returns holidays intersecting a window.
type HolidaySource interface {
	Holidays(ctx context.Context, start, end time.Time) ([]models.Holiday, error)
}

// PickerConfig parameterises a [Picker].
type PickerConfig struct {
	Events       EventFeed
	Holidays     HolidaySource
	HolidayColor string
	View         View
	SystemZone   *time.Location // zone of naive CRM timestamps
	Now          func() time.Time
	OnSlotSelect func(start, end time.Time)
}

// Entry is one item the picker displays.
type Entry struct {
	ID         string
	Title      string
	Start      time.Time
	End        time.Time
	AllDay     bool
	Color      string
	Background bool // holiday band
}

// Picker selects time ranges on a calendar composed of busy events and holiday bands.
type Picker struct {
	cfg PickerConfig

	mu      sync.Mutex
	view    View
	date    time.Time
	clicked time.Time
	closed  bool
}

// NewPicker creates an open picker focused on today.
func NewPicker(cfg PickerConfig) *Picker {
	if cfg.View == "" {
		cfg.View = ViewWeek
	}
	if cfg.SystemZone == nil {
		cfg.SystemZone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Picker{cfg: cfg, view: cfg.View, date: startOfDay(cfg.Now())}
}

// View returns the active view.
func (p *Picker) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// SetView changes the active view.
func (p *Picker) SetView(v View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = v
	p.clicked = time.Time{}
}

// Date returns the focused date.
func (p *Picker) Date() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.date
}

// GotoDate focuses date.
func (p *Picker) GotoDate(date time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.date = startOfDay(date)
}

// Step moves the focused date by n views (negative moves back).
func (p *Picker) Step(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.view {
	case ViewMonth:
		p.date = p.date.AddDate(0, n, 0)
	case ViewWeek:
		p.date = p.date.AddDate(0, 0, 7*n)
	default:
		p.date = p.date.AddDate(0, 0, n)
	}
}

// Window returns the [start, end) range of the active view.
func (p *Picker) Window() (time.Time, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return window(p.view, p.date)
}

func window(v View, date time.Time) (time.Time, time.Time) {
	switch v {
	case ViewMonth:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		return start, start.AddDate(0, 1, 0)
	case ViewWeek:
		offset := (int(date.Weekday()) + 6) % 7
		start := date.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	default:
		return date, date.AddDate(0, 0, 1)
	}
}

// Entries returns busy events and holiday bands intersecting [start, end), ordered by start.
func (p *Picker) Entries(ctx context.Context, start, end time.Time) ([]Entry, error) {
	var (
		wg       sync.WaitGroup
		busy     []models.CalendarEntry
		holidays []models.Holiday
		busyErr  error
		holErr   error
	)

	if p.cfg.Events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			busy, busyErr = p.cfg.Events.CalendarEntries(ctx, start, end)
		}()
	}
	if p.cfg.Holidays != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holidays, holErr = p.cfg.Holidays.Holidays(ctx, start, end)
		}()
	}
	wg.Wait()

	if busyErr != nil {
		return nil, fmt.Errorf("failed to load calendar events: %w", busyErr)
	}
	if holErr != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", holErr)
	}

	entries := make([]Entry, 0, len(busy)+len(holidays))
	for _, e := range busy {
		entries = append(entries, Entry{
			ID:     e.Name,
			Title:  e.Title,
			Start:  e.Start.In(p.cfg.SystemZone),
			End:    e.End.In(p.cfg.SystemZone),
			AllDay: bool(e.AllDay),
			Color:  e.Color,
		})
	}
	for _, h := range holidays {
		if !h.Overlaps(start, end) {
			continue
		}
		entries = append(entries, Entry{
			Title:      h.Summary,
			Start:      h.Start,
			End:        h.End,
			AllDay:     true,
			Color:      p.cfg.HolidayColor,
			Background: true,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start.Before(entries[j].Start) })
	return entries, nil
}

// Select hands [start, end) to OnSlotSelect and closes the picker.
//
// In month view a selection ending one calendar day after it starts is a click, not a range, and is ignored.
// The day is measured in start's location, so DST days of 23 or 25 hours count too.
// It reports whether a slot was selected.
func (p *Picker) Select(start, end time.Time) (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, fmt.Errorf("%w: picker is closed", shared.ErrNoDialog)
	}
	if p.view == ViewMonth && end.Equal(start.AddDate(0, 0, 1)) {
		p.mu.Unlock()
		return false, nil
	}
	if !end.After(start) {
		p.mu.Unlock()
		return false, fmt.Errorf("%w: selection end must be after start", shared.ErrInvalidArgument)
	}
	p.closed = true
	fn := p.cfg.OnSlotSelect
	p.mu.Unlock()

	if fn != nil {
		fn(start, end)
	}
	return true, nil
}

// DayClick handles a date click in month view. A second click on the same date opens that day in day view.
// It reports whether the view changed.
func (p *Picker) DayClick(date time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.view != ViewMonth {
		return false
	}
	day := startOfDay(date)
	if !p.clicked.IsZero() && p.clicked.Equal(day) {
		p.view = ViewDay
		p.date = day
		p.clicked = time.Time{}
		return true
	}
	p.clicked = day
	return false
}

// Close dismisses the picker without a selection.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// Closed reports whether the picker was dismissed or used.
func (p *Picker) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// RequiredLibs lists the calendar widget assets for a user language.
func RequiredLibs(language string) []string {
	libs := []string{
		"assets/frappe/js/lib/fullcalendar/fullcalendar.min.css",
		"assets/frappe/js/lib/fullcalendar/fullcalendar.min.js",
	}
	if language != "" && language != "en" {
		libs = append(libs, "assets/frappe/js/lib/fullcalendar/locale-all.js")
	}
	return libs
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
