package models

import (
	"fmt"
	"strings"
)

// SlotDoc is the document sent to create_slot.
type SlotDoc struct {
	EmailTemplate   string           `json:"email_template,omitempty"`
	Subject         string           `json:"subject"`
	Description     string           `json:"description"`
	OutlookCalendar string           `json:"outlook_calendar"`
	Organiser       string           `json:"organiser"`
	AddTeamsMeet    Check            `json:"add_teams_meet"`
	EventLocation   string           `json:"event_location"`
	AllDay          Check            `json:"all_day"`
	RepeatThisEvent Check            `json:"repeat_this_event"`
	RepeatOn        string           `json:"repeat_on,omitempty"`
	RepeatTill      string           `json:"repeat_till,omitempty"`
	Monday          Check            `json:"monday"`
	Tuesday         Check            `json:"tuesday"`
	Wednesday       Check            `json:"wednesday"`
	Thursday        Check            `json:"thursday"`
	Friday          Check            `json:"friday"`
	Saturday        Check            `json:"saturday"`
	Sunday          Check            `json:"sunday"`
	SlotProposals   []SlotProposal   `json:"slot_proposals"`
	Users           []UserRow        `json:"users,omitempty"`
	Participants    []ParticipantRow `json:"event_participants"`
}

// SetWeekdays sets the weekday checks from a list of weekday names.
func (d *SlotDoc) SetWeekdays(days []string) error {
	fields := map[string]*Check{
		"monday": &d.Monday, "tuesday": &d.Tuesday, "wednesday": &d.Wednesday,
		"thursday": &d.Thursday, "friday": &d.Friday, "saturday": &d.Saturday, "sunday": &d.Sunday,
	}
	for _, day := range days {
		c, ok := fields[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}
		*c = true
	}
	return nil
}

// RescheduleRequest replaces the proposals of a slot, or turns a confirmed event back into a proposal.
type RescheduleRequest struct {
	EventType string         `json:"event_type"`
	EventName string         `json:"event_name"`
	NewSlots  []SlotProposal `json:"new_slots"`
	Reason    string         `json:"reschedule_reason,omitempty"`
}

// CancelRequest cancels an event or slot.
type CancelRequest struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Reason    string `json:"cancel_reason"`
}

// EditRequest updates the editable fields of a confirmed event.
type EditRequest struct {
	EventType    string           `json:"event_type"`
	EventName    string           `json:"event_name"`
	Subject      string           `json:"subject"`
	Description  string           `json:"description"`
	AddTeamsMeet Check            `json:"add_teams_meet"`
	Location     string           `json:"event_location"`
	Participants []ParticipantRow `json:"event_participants"`
	Users        []UserRow        `json:"users"`
}

// ScheduleDefaults are the pre-filled values of a Schedule dialog.
type ScheduleDefaults struct {
	Organiser       string
	OutlookCalendar string
	EmailTemplate   string
	Subject         string
	Participants    []ParticipantRow
}
