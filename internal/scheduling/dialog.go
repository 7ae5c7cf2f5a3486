package scheduling

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
)

// DialogKind selects which dialog a session renders.
type DialogKind int

const (
	DialogSchedule DialogKind = iota
	DialogReschedule
	DialogCancel
	DialogEdit
)

func (k DialogKind) String() string {
	switch k {
	case DialogSchedule:
		return "schedule"
	case DialogReschedule:
		return "reschedule"
	case DialogCancel:
		return "cancel"
	case DialogEdit:
		return "edit"
	default:
		return ""
	}
}

// Title is the dialog heading.
func (k DialogKind) Title() string {
	switch k {
	case DialogSchedule:
		return "Schedule Event"
	case DialogReschedule:
		return "Reschedule Event"
	case DialogCancel:
		return "Cancel Event"
	case DialogEdit:
		return "Edit Event"
	default:
		return ""
	}
}

// ValidationError lists the problems that kept a dialog from submitting.
type ValidationError struct {
	Kind     DialogKind
	Missing  []string // required fields left empty
	Problems []string // filled fields with invalid values
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Problems...)
	return fmt.Sprintf("%s dialog: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return shared.ErrInvalidInput
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Problems) == 0
}

// Dialog holds the field values of one open dialog session.
//
// Only the fields of its Kind are read on submit.
type Dialog struct {
	Kind  DialogKind
	Index int                    // position of Event in the controller's list
	Event *models.ScheduledEvent // target of reschedule, cancel and edit

	EmailTemplate   string
	Subject         string
	Description     string
	OutlookCalendar string
	Organiser       string
	AddTeamsMeet    bool
	Location        string
	AllDay          bool

	Repeat     bool
	RepeatOn   string
	RepeatTill string // YYYY-MM-DD, empty repeats indefinitely
	Weekdays   []string

	Proposals    []models.SlotProposal
	UserGroup    string
	Users        []models.UserRow
	Participants []models.ParticipantRow

	Reason string
}

// AppendSlot adds a proposal with the next sequential index and returns it.
func (d *Dialog) AppendSlot(start, end time.Time) models.SlotProposal {
	p := models.SlotProposal{
		Idx:      len(d.Proposals) + 1,
		StartsOn: models.NewTimestamp(start),
		EndsOn:   models.NewTimestamp(end),
	}
	d.Proposals = append(d.Proposals, p)
	return p
}

// RemoveSlot drops the proposal with idx and renumbers the rest.
func (d *Dialog) RemoveSlot(idx int) error {
	i := slices.IndexFunc(d.Proposals, func(p models.SlotProposal) bool { return p.Idx == idx })
	if i < 0 {
		return fmt.Errorf("%w: no slot %d", shared.ErrInvalidArgument, idx)
	}
	d.Proposals = slices.Delete(d.Proposals, i, i+1)
	for j := range d.Proposals {
		d.Proposals[j].Idx = j + 1
	}
	return nil
}

// AddUser appends a user row unless one with the same key exists.
func (d *Dialog) AddUser(name string) bool {
	row := d.userRow(name)
	if slices.ContainsFunc(d.Users, func(u models.UserRow) bool { return u.Key() == row.Key() }) {
		return false
	}
	d.Users = append(d.Users, row)
	return true
}

// userRow keys schedule rows by Microsoft User and edit rows by CRM User.
func (d *Dialog) userRow(name string) models.UserRow {
	if d.Kind == DialogEdit {
		return models.UserRow{User: name}
	}
	return models.UserRow{MicrosoftUser: name}
}

// Validate checks the required fields of the dialog kind.
func (d *Dialog) Validate() error {
	v := &ValidationError{Kind: d.Kind}
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			v.Missing = append(v.Missing, field)
		}
	}

	switch d.Kind {
	case DialogSchedule:
		require("subject", d.Subject)
		require("outlook_calendar", d.OutlookCalendar)
		require("organiser", d.Organiser)
		d.validateProposals(v)
		if len(d.Users) == 0 && len(d.Participants) == 0 {
			v.Missing = append(v.Missing, "participants")
		}
		d.validateRepeat(v)
	case DialogReschedule:
		d.validateProposals(v)
		require("reschedule_reason", d.Reason)
	case DialogCancel:
		require("cancel_reason", d.Reason)
	case DialogEdit:
		require("subject", d.Subject)
	default:
		v.Problems = append(v.Problems, fmt.Sprintf("unknown dialog kind %d", d.Kind))
	}

	if v.empty() {
		return nil
	}
	return v
}

func (d *Dialog) validateProposals(v *ValidationError) {
	if len(d.Proposals) == 0 {
		v.Missing = append(v.Missing, "slot_proposals")
		return
	}
	for _, p := range d.Proposals {
		if err := p.Validate(); err != nil {
			v.Problems = append(v.Problems, err.Error())
		}
	}
}

func (d *Dialog) validateRepeat(v *ValidationError) {
	if !d.Repeat {
		return
	}
	switch d.RepeatOn {
	case "":
		v.Missing = append(v.Missing, "repeat_on")
		return
	case models.RepeatDaily, models.RepeatMonthly, models.RepeatYearly:
	case models.RepeatWeekly:
		if len(d.Weekdays) == 0 {
			v.Problems = append(v.Problems, "weekly repeat needs at least one weekday")
		}
		for _, day := range d.Weekdays {
			if !slices.Contains(models.Weekdays, strings.ToLower(day)) {
				v.Problems = append(v.Problems, fmt.Sprintf("unknown weekday %q", day))
			}
		}
	default:
		v.Problems = append(v.Problems, fmt.Sprintf("unknown repeat frequency %q", d.RepeatOn))
	}
	if d.RepeatTill != "" {
		if _, err := time.Parse(time.DateOnly, d.RepeatTill); err != nil {
			v.Problems = append(v.Problems, fmt.Sprintf("repeat_till %q is not a date", d.RepeatTill))
		}
	}
}

// SlotDoc builds the create_slot document.
func (d *Dialog) SlotDoc() (models.SlotDoc, error) {
	doc := models.SlotDoc{
		EmailTemplate:   d.EmailTemplate,
		Subject:         d.Subject,
		Description:     d.Description,
		OutlookCalendar: d.OutlookCalendar,
		Organiser:       d.Organiser,
		AddTeamsMeet:    models.Check(d.AddTeamsMeet),
		EventLocation:   d.Location,
		AllDay:          models.Check(d.AllDay),
		RepeatThisEvent: models.Check(d.Repeat),
		SlotProposals:   slices.Clone(d.Proposals),
		Users:           slices.Clone(d.Users),
		Participants:    nonNil(d.Participants),
	}
	if d.Repeat {
		doc.RepeatOn = d.RepeatOn
		doc.RepeatTill = d.RepeatTill
		if d.RepeatOn == models.RepeatWeekly {
			if err := doc.SetWeekdays(d.Weekdays); err != nil {
				return doc, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
			}
		}
	}
	return doc, nil
}

// RescheduleRequest builds the reschedule_event_slots arguments.
func (d *Dialog) RescheduleRequest() models.RescheduleRequest {
	return models.RescheduleRequest{
		EventType: d.Event.Doctype(),
		EventName: d.Event.Name,
		NewSlots:  slices.Clone(d.Proposals),
		Reason:    d.Reason,
	}
}

// CancelRequest builds the cancel_event arguments.
func (d *Dialog) CancelRequest() models.CancelRequest {
	return models.CancelRequest{
		EventType: d.Event.Doctype(),
		EventName: d.Event.Name,
		Reason:    d.Reason,
	}
}

// EditRequest builds the edit_event arguments.
func (d *Dialog) EditRequest() models.EditRequest {
	return models.EditRequest{
		EventType:    d.Event.Doctype(),
		EventName:    d.Event.Name,
		Subject:      d.Subject,
		Description:  d.Description,
		AddTeamsMeet: models.Check(d.AddTeamsMeet),
		Location:     d.Location,
		Participants: nonNil(d.Participants),
		Users:        nonNil(d.Users),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

// clone copies d without sharing its slices.
func (d *Dialog) clone() Dialog {
	out := *d
	out.Weekdays = slices.Clone(d.Weekdays)
	out.Proposals = slices.Clone(d.Proposals)
	out.Users = slices.Clone(d.Users)
	out.Participants = slices.Clone(d.Participants)
	if d.Event != nil {
		ev := *d.Event
		out.Event = &ev
	}
	return out
}
