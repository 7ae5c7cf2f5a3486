package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// EventKind distinguishes slot proposals from confirmed events.
type EventKind string

const (
	EventKindSlot  EventKind = "slot"
	EventKindEvent EventKind = "event"
)

// Doctype returns the CRM doctype backing the kind.
func (k EventKind) Doctype() string {
	switch k {
	case EventKindSlot:
		return "Outlook Event Slot"
	case EventKindEvent:
		return "Event"
	default:
		return ""
	}
}

// Statuses reported by the CRM for events and slot proposals.
const (
	StatusOpen        = "Open"
	StatusClosed      = "Closed"
	StatusCancelled   = "Cancelled"
	StatusUnconfirmed = "Unconfirmed"
	StatusConfirmed   = "Confirmed"
)

// Repeat frequencies accepted by repeat_on.
const (
	RepeatDaily   = "Daily"
	RepeatWeekly  = "Weekly"
	RepeatMonthly = "Monthly"
	RepeatYearly  = "Yearly"
)

// Weekdays lists the weekday check fields in the order the CRM declares them.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// SlotProposal is one candidate time range. Idx is 1-based and follows insertion order.
type SlotProposal struct {
	Name     string    `json:"name,omitempty"`
	Idx      int       `json:"idx"`
	StartsOn Timestamp `json:"starts_on"`
	EndsOn   Timestamp `json:"ends_on"`
}

// Validate checks that the proposal covers a non-empty range.
func (p SlotProposal) Validate() error {
	if p.StartsOn.IsZero() || p.EndsOn.IsZero() {
		return fmt.Errorf("slot %d: start and end are required", p.Idx)
	}
	if !p.EndsOn.After(p.StartsOn.Time) {
		return fmt.Errorf("slot %d: end must be after start", p.Idx)
	}
	return nil
}

// Duration returns EndsOn - StartsOn.
func (p SlotProposal) Duration() time.Duration {
	return p.EndsOn.Sub(p.StartsOn.Time)
}

// EventParticipant is an attendee reference attached to an event.
type EventParticipant struct {
	ReferenceDoctype string `json:"reference_doctype"`
	ReferenceDocname string `json:"reference_docname"`
	Email            string `json:"email,omitempty"`
	Name             string `json:"custom_participant_name,omitempty"`
	Required         Check  `json:"custom_required"`
	Response         string `json:"custom_response,omitempty"`
}

// IsUser reports whether the participant is a CRM user.
func (p EventParticipant) IsUser() bool {
	return p.ReferenceDoctype == "User"
}

// Label returns the display name, falling back to the email and then the docname.
func (p EventParticipant) Label() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Email != "":
		return p.Email
	default:
		return p.ReferenceDocname
	}
}

// ScheduledEvent is an entry of a record's event list.
//
// A slot carries one or more proposals and no confirmed time; an event carries exactly one start/end pair.
type ScheduledEvent struct {
	Kind         EventKind          `json:"type"`
	Name         string             `json:"name"`
	Subject      string             `json:"subject"`
	Description  string             `json:"description,omitempty"`
	Category     string             `json:"event_category,omitempty"`
	Status       string             `json:"status,omitempty"`
	StartsOn     Timestamp          `json:"starts_on"`
	EndsOn       Timestamp          `json:"ends_on"`
	MeetingLink  string             `json:"custom_outlook_meeting_link,omitempty"`
	AddTeamsMeet Check              `json:"custom_add_teams_meet"`
	Location     string             `json:"custom_outlook_location,omitempty"`
	Participants []EventParticipant `json:"event_participants,omitempty"`
	Proposals    []SlotProposal     `json:"slot_proposals,omitempty"`
	Creation     Timestamp          `json:"creation"`
}

// Doctype returns the CRM doctype of the entry.
func (e ScheduledEvent) Doctype() string {
	return e.Kind.Doctype()
}

// IsSlot reports whether the entry is an unconfirmed proposal.
func (e ScheduledEvent) IsSlot() bool {
	return e.Kind == EventKindSlot
}

// Cancelled reports whether the entry was cancelled.
func (e ScheduledEvent) Cancelled() bool {
	return strings.EqualFold(e.Status, StatusCancelled)
}

// Validate enforces the slot/event shape invariant.
func (e ScheduledEvent) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("event name is required")
	}

	switch e.Kind {
	case EventKindSlot:
		if len(e.Proposals) == 0 {
			return fmt.Errorf("slot %s: at least one proposal is required", e.Name)
		}
		if !e.StartsOn.IsZero() || !e.EndsOn.IsZero() {
			return fmt.Errorf("slot %s: a proposal has no confirmed time", e.Name)
		}
		for _, p := range e.Proposals {
			if err := p.Validate(); err != nil {
				return fmt.Errorf("slot %s: %w", e.Name, err)
			}
		}
	case EventKindEvent:
		if e.StartsOn.IsZero() || e.EndsOn.IsZero() {
			return fmt.Errorf("event %s: start and end are required", e.Name)
		}
		if e.EndsOn.Before(e.StartsOn.Time) {
			return fmt.Errorf("event %s: end is before start", e.Name)
		}
	default:
		return fmt.Errorf("event %s: unknown type %q", e.Name, e.Kind)
	}
	return nil
}

// SortByCreation orders events by creation time, oldest first, keeping ties stable.
func SortByCreation(events []ScheduledEvent) {
	slices.SortStableFunc(events, func(a, b ScheduledEvent) int {
		return a.Creation.Compare(b.Creation.Time)
	})
}

// UserRow is a Table MultiSelect row. Schedule dialogs key users by Microsoft User, edit dialogs by CRM User.
type UserRow struct {
	User          string `json:"user,omitempty"`
	MicrosoftUser string `json:"microsoft_user,omitempty"`
}

// Key returns the identity compared when de-duplicating rows.
func (u UserRow) Key() string {
	if u.MicrosoftUser != "" {
		return u.MicrosoftUser
	}
	return u.User
}

// ParticipantRow is a row of the Event Participants child table.
type ParticipantRow struct {
	ReferenceDoctype string `json:"reference_doctype"`
	ReferenceDocname string `json:"reference_docname"`
	Email            string `json:"email,omitempty"`
	Name             string `json:"custom_participant_name,omitempty"`
	Required         Check  `json:"custom_required"`
}

// ParticipantRowFrom copies the writable fields of p.
func ParticipantRowFrom(p EventParticipant) ParticipantRow {
	return ParticipantRow{
		ReferenceDoctype: p.ReferenceDoctype,
		ReferenceDocname: p.ReferenceDocname,
		Email:            p.Email,
		Name:             p.Name,
		Required:         p.Required,
	}
}

// CalendarEntry is a busy block returned by the calendar feed.
type CalendarEntry struct {
	Name     string    `json:"name"`
	Title    string    `json:"subject"`
	Start    Timestamp `json:"starts_on"`
	End      Timestamp `json:"ends_on"`
	AllDay   Check     `json:"all_day"`
	Color    string    `json:"color,omitempty"`
	Rendered string    `json:"rendering,omitempty"`
}

// Holiday is a named date range rendered as a background band by the slot picker.
type Holiday struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// Overlaps reports whether the holiday intersects [start, end).
func (h Holiday) Overlaps(start, end time.Time) bool {
	return h.Start.Before(end) && h.End.After(start)
}
