package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/scheduling"
)

const (
	fieldTemplate  = "email_template"
	fieldUserGroup = "user_group"
)

// field is one text input bound to a [scheduling.Dialog] value.
type field struct {
	key   string
	label string
	input textinput.Model
	get   func(d *scheduling.Dialog) string
	set   func(d *scheduling.Dialog, v string)
}

// form edits the fields of one dialog kind. Proposals are edited through the picker.
type form struct {
	kind   scheduling.DialogKind
	fields []field
	focus  int
}

func text(key, label string, get func(d *scheduling.Dialog) string, set func(d *scheduling.Dialog, v string)) field {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 256
	return field{key: key, label: label, input: in, get: get, set: set}
}

func check(key, label string, ptr func(d *scheduling.Dialog) *bool) field {
	f := text(key, label,
		func(d *scheduling.Dialog) string { return formatBool(*ptr(d)) },
		func(d *scheduling.Dialog, v string) { *ptr(d) = parseBool(v) },
	)
	f.input.Placeholder = "yes/no"
	return f
}

var (
	subjectField = func() field {
		return text("subject", "Subject",
			func(d *scheduling.Dialog) string { return d.Subject },
			func(d *scheduling.Dialog, v string) { d.Subject = v })
	}
	descriptionField = func() field {
		return text("description", "Description",
			func(d *scheduling.Dialog) string { return d.Description },
			func(d *scheduling.Dialog, v string) { d.Description = v })
	}
	locationField = func() field {
		return text("location", "Location",
			func(d *scheduling.Dialog) string { return d.Location },
			func(d *scheduling.Dialog, v string) { d.Location = v })
	}
	teamsField = func() field {
		return check("add_teams_meet", "Teams Meeting", func(d *scheduling.Dialog) *bool { return &d.AddTeamsMeet })
	}
	reasonField = func() field {
		return text("reason", "Reason",
			func(d *scheduling.Dialog) string { return d.Reason },
			func(d *scheduling.Dialog, v string) { d.Reason = v })
	}
	groupField = func() field {
		f := text(fieldUserGroup, "User Group",
			func(d *scheduling.Dialog) string { return d.UserGroup },
			func(d *scheduling.Dialog, v string) { d.UserGroup = v })
		f.input.Placeholder = "ctrl+g adds members"
		return f
	}
	usersField = func() field {
		f := text("users", "Users",
			func(d *scheduling.Dialog) string {
				keys := make([]string, len(d.Users))
				for i, u := range d.Users {
					keys[i] = u.Key()
				}
				return strings.Join(keys, ", ")
			},
			func(d *scheduling.Dialog, v string) {
				names := splitList(v)
				d.Users = slices.DeleteFunc(d.Users, func(u models.UserRow) bool {
					return !slices.Contains(names, u.Key())
				})
				for _, name := range names {
					d.AddUser(name)
				}
			})
		f.input.Placeholder = "comma separated"
		f.input.CharLimit = 1024
		return f
	}
)

func newForm(d scheduling.Dialog) form {
	var fields []field
	switch d.Kind {
	case scheduling.DialogSchedule:
		fields = []field{
			text(fieldTemplate, "Email Template",
				func(d *scheduling.Dialog) string { return d.EmailTemplate },
				func(d *scheduling.Dialog, v string) {}),
			subjectField(),
			descriptionField(),
			text("outlook_calendar", "Outlook Calendar",
				func(d *scheduling.Dialog) string { return d.OutlookCalendar },
				func(d *scheduling.Dialog, v string) { d.OutlookCalendar = v }),
			text("organiser", "Organiser",
				func(d *scheduling.Dialog) string { return d.Organiser },
				func(d *scheduling.Dialog, v string) { d.Organiser = v }),
			locationField(),
			teamsField(),
			check("all_day", "All Day", func(d *scheduling.Dialog) *bool { return &d.AllDay }),
			text("repeat_on", "Repeat On",
				func(d *scheduling.Dialog) string { return d.RepeatOn },
				func(d *scheduling.Dialog, v string) {
					d.RepeatOn = v
					d.Repeat = v != ""
				}),
			text("repeat_till", "Repeat Till",
				func(d *scheduling.Dialog) string { return d.RepeatTill },
				func(d *scheduling.Dialog, v string) { d.RepeatTill = v }),
			text("weekdays", "Weekdays",
				func(d *scheduling.Dialog) string { return strings.Join(d.Weekdays, ", ") },
				func(d *scheduling.Dialog, v string) { d.Weekdays = splitList(v) }),
			groupField(),
			usersField(),
		}
		fields[8].input.Placeholder = strings.Join([]string{models.RepeatDaily, models.RepeatWeekly, models.RepeatMonthly, models.RepeatYearly}, "/")
		fields[9].input.Placeholder = "YYYY-MM-DD"
	case scheduling.DialogReschedule, scheduling.DialogCancel:
		fields = []field{reasonField()}
	case scheduling.DialogEdit:
		fields = []field{subjectField(), descriptionField(), locationField(), teamsField(), groupField(), usersField()}
	}

	f := form{kind: d.Kind, fields: fields}
	f.load(d)
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

// load copies the dialog values into the inputs.
func (f *form) load(d scheduling.Dialog) {
	for i := range f.fields {
		f.fields[i].input.SetValue(f.fields[i].get(&d))
	}
}

// apply writes the input values into d. The template is set through the controller instead.
func (f *form) apply(d *scheduling.Dialog) error {
	for _, fl := range f.fields {
		fl.set(d, strings.TrimSpace(fl.input.Value()))
	}
	return nil
}

func (f *form) value(key string) string {
	for _, fl := range f.fields {
		if fl.key == key {
			return strings.TrimSpace(fl.input.Value())
		}
	}
	return ""
}

func (f *form) focused() string {
	if len(f.fields) == 0 {
		return ""
	}
	return f.fields[f.focus].key
}

// move shifts focus by delta, wrapping around.
func (f *form) move(delta int) {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *form) view() string {
	var b strings.Builder
	for i, fl := range f.fields {
		label := styles.label
		if i == f.focus {
			label = styles.focused
		}
		fmt.Fprintf(&b, "%s %s\n", label.Render(fl.label), fl.input.View())
	}
	return b.String()
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
