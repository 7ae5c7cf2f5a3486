package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/scheduling"
)

const (
	slotStep   = 30 * time.Minute
	dayStart   = 9 * time.Hour
	maxEntries = 12
)

// pickerView drives a [scheduling.Picker] with a keyboard cursor.
//
// In day and week views the cursor moves in half hours; in month view it moves in days.
type pickerView struct {
	picker  *scheduling.Picker
	entries []scheduling.Entry
	cursor  time.Time
	length  time.Duration
	loading bool
	err     error
}

func newPickerView(p *scheduling.Picker) *pickerView {
	v := &pickerView{picker: p}
	v.reset()
	return v
}

// reset moves the cursor to the focused date and picks a default selection length for the view.
func (v *pickerView) reset() {
	date := v.picker.Date()
	if v.picker.View() == scheduling.ViewMonth {
		v.cursor = date
		v.length = 24 * time.Hour
		return
	}
	v.cursor = date.Add(dayStart)
	v.length = time.Hour
}

func (v *pickerView) unit() time.Duration {
	if v.picker.View() == scheduling.ViewMonth {
		return 24 * time.Hour
	}
	return slotStep
}

func (v *pickerView) load(ctx context.Context) tea.Cmd {
	v.loading = true
	p := v.picker
	return func() tea.Msg {
		start, end := p.Window()
		entries, err := p.Entries(ctx, start, end)
		return entriesLoadedMsg(entries, err)
	}
}

// follow keeps the picker's window on the cursor and reports whether it moved.
func (v *pickerView) follow() bool {
	start, end := v.picker.Window()
	if !v.cursor.Before(start) && v.cursor.Before(end) {
		return false
	}
	v.picker.GotoDate(v.cursor)
	return true
}

// handle applies a key and returns whether entries need reloading, the selection result and any error.
func (v *pickerView) handle(msg tea.KeyMsg, keys keyMap) (reload bool, selected bool, err error) {
	switch {
	case key.Matches(msg, keys.left):
		v.cursor = v.cursor.AddDate(0, 0, -1)
		return v.follow(), false, nil
	case key.Matches(msg, keys.right):
		v.cursor = v.cursor.AddDate(0, 0, 1)
		return v.follow(), false, nil
	case key.Matches(msg, keys.up):
		if v.picker.View() == scheduling.ViewMonth {
			v.cursor = v.cursor.AddDate(0, 0, -7)
		} else {
			v.cursor = v.cursor.Add(-slotStep)
		}
		return v.follow(), false, nil
	case key.Matches(msg, keys.down):
		if v.picker.View() == scheduling.ViewMonth {
			v.cursor = v.cursor.AddDate(0, 0, 7)
		} else {
			v.cursor = v.cursor.Add(slotStep)
		}
		return v.follow(), false, nil
	case key.Matches(msg, keys.shorter):
		if v.length > v.unit() {
			v.length -= v.unit()
		}
		return false, false, nil
	case key.Matches(msg, keys.longer):
		v.length += v.unit()
		return false, false, nil
	case key.Matches(msg, keys.pageNext):
		v.picker.Step(1)
		v.reset()
		return true, false, nil
	case key.Matches(msg, keys.pagePrev):
		v.picker.Step(-1)
		v.reset()
		return true, false, nil
	case key.Matches(msg, keys.month):
		return v.switchView(scheduling.ViewMonth), false, nil
	case key.Matches(msg, keys.week):
		return v.switchView(scheduling.ViewWeek), false, nil
	case key.Matches(msg, keys.day):
		return v.switchView(scheduling.ViewDay), false, nil
	case key.Matches(msg, keys.dayClick):
		if v.picker.DayClick(v.cursor) {
			v.reset()
			return true, false, nil
		}
		return false, false, nil
	case key.Matches(msg, keys.selectSlot):
		ok, err := v.picker.Select(v.cursor, v.cursor.Add(v.length))
		return false, ok, err
	}
	return false, false, nil
}

func (v *pickerView) switchView(view scheduling.View) bool {
	if v.picker.View() == view {
		return false
	}
	v.picker.GotoDate(v.cursor)
	v.picker.SetView(view)
	v.reset()
	return true
}

func (v *pickerView) view(keys keyMap, h help.Model) string {
	var b strings.Builder
	start, end := v.picker.Window()
	title := fmt.Sprintf("Pick a slot: %s of %s", v.picker.View(), start.Format("2 Jan 2006"))
	b.WriteString(styles.title.Render(title) + "\n")

	sel := fmt.Sprintf("Selection: %s to %s", v.cursor.Format("Mon 2 Jan 15:04"), v.cursor.Add(v.length).Format("Mon 2 Jan 15:04"))
	b.WriteString(styles.ok.Render(sel) + "\n\n")

	switch {
	case v.loading:
		b.WriteString(styles.help.Render("Loading calendar...") + "\n")
	case v.err != nil:
		b.WriteString(styles.err.Render(v.err.Error()) + "\n")
	case len(v.entries) == 0:
		b.WriteString(styles.help.Render("Nothing booked between "+start.Format("2 Jan")+" and "+end.Add(-time.Nanosecond).Format("2 Jan")) + "\n")
	default:
		for i, e := range v.entries {
			if i == maxEntries {
				fmt.Fprintf(&b, "  ... %d more\n", len(v.entries)-maxEntries)
				break
			}
			b.WriteString(renderEntry(e, v.cursor, v.cursor.Add(v.length)) + "\n")
		}
	}

	bindings := []key.Binding{keys.left, keys.right, keys.up, keys.down, keys.shorter, keys.longer, keys.pageNext, keys.pagePrev, keys.month, keys.week, keys.day, keys.selectSlot, keys.back}
	if v.picker.View() == scheduling.ViewMonth {
		bindings = append(bindings, keys.dayClick)
	}
	b.WriteString("\n" + h.ShortHelpView(bindings))
	return b.String()
}

func renderEntry(e scheduling.Entry, selStart, selEnd time.Time) string {
	when := e.Start.Format("Mon 2 Jan 15:04") + " to " + e.End.Format("15:04")
	if e.AllDay {
		when = e.Start.Format("Mon 2 Jan") + " (all day)"
	}
	line := fmt.Sprintf("  %-28s %s", when, e.Title)
	switch {
	case e.Background:
		return styles.band.Render(line)
	case e.Start.Before(selEnd) && selStart.Before(e.End):
		return styles.busy.Render(line + "  (overlaps)")
	default:
		return line
	}
}
