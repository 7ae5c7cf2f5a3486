package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/olx/internal/models"
)

const (
	methodReferenceEvents = "crm_microsoft_integration.microsoft.utils.get_reference_events"
	methodGroupUsers      = "crm_microsoft_integration.microsoft.doctype.microsoft_group.microsoft_group.get_group_users"
	slotModule            = "crm_microsoft_integration.microsoft.doctype.outlook_event_slot.outlook_event_slot."
	methodCreateSlot      = slotModule + "create_slot"
	methodReschedule      = slotModule + "reschedule_event_slots"
	methodCancelEvent     = slotModule + "cancel_event"
	methodEditEvent       = slotModule + "edit_event"
	methodCalendarEvents  = "frappe.desk.calendar.get_events"
	methodGetValue        = "frappe.client.get_value"
	methodSetValue        = "frappe.client.set_value"
	methodLoggedUser      = "frappe.auth.get_logged_user"
)

// CRMService exposes the integration's remote methods as typed calls.
type CRMService struct {
	api *APIService
}

// NewCRMService wraps api.
func NewCRMService(api *APIService) *CRMService {
	return &CRMService{api: api}
}

// API returns the underlying RPC client.
func (s *CRMService) API() *APIService {
	return s.api
}

// StartSync enqueues the server-side job for kind and returns its acknowledgement as sent.
//
// A non-success status is not an error here; the caller decides how to surface it.
func (s *CRMService) StartSync(ctx context.Context, kind models.SyncKind) (models.SyncAck, error) {
	var ack models.SyncAck
	if err := s.api.Call(ctx, kind.Method(), nil, &ack); err != nil {
		return models.SyncAck{}, err
	}
	return ack, nil
}

// ReferenceEvents lists the events (and slots when withSlots) linked to ref, oldest first.
//
// The reply may be a bare list or an object with an "events" list.
func (s *CRMService) ReferenceEvents(ctx context.Context, ref models.Reference, withSlots bool) ([]models.ScheduledEvent, error) {
	args := map[string]any{
		"ref_doctype": ref.Doctype,
		"ref_docname": ref.Docname,
		"with_slots":  withSlots,
	}

	var raw json.RawMessage
	if err := s.api.Call(ctx, methodReferenceEvents, args, &raw); err != nil {
		return nil, err
	}

	events, err := decodeEventList(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", methodReferenceEvents, err)
	}
	models.SortByCreation(events)
	return events, nil
}

func decodeEventList(raw json.RawMessage) ([]models.ScheduledEvent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.ScheduledEvent{}, nil
	}

	var events []models.ScheduledEvent
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, fmt.Errorf("failed to decode events: %w", err)
		}
	} else {
		var wrapped struct {
			Events []models.ScheduledEvent `json:"events"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode events: %w", err)
		}
		events = wrapped.Events
	}

	if events == nil {
		events = []models.ScheduledEvent{}
	}
	return events, nil
}

// CreateSlot creates an Outlook Event Slot from doc.
func (s *CRMService) CreateSlot(ctx context.Context, doc models.SlotDoc) error {
	return s.api.Call(ctx, methodCreateSlot, map[string]any{"doc": doc}, nil)
}

// RescheduleEventSlots replaces the proposals of a slot or moves a confirmed event back to proposals.
func (s *CRMService) RescheduleEventSlots(ctx context.Context, req models.RescheduleRequest) error {
	return s.api.Call(ctx, methodReschedule, req, nil)
}

// CancelEvent cancels an event or slot.
func (s *CRMService) CancelEvent(ctx context.Context, req models.CancelRequest) error {
	return s.api.Call(ctx, methodCancelEvent, req, nil)
}

// EditEvent updates a confirmed event.
func (s *CRMService) EditEvent(ctx context.Context, req models.EditRequest) error {
	return s.api.Call(ctx, methodEditEvent, req, nil)
}

// SetStatus sets the status field of a document, e.g. to mark an event Closed.
func (s *CRMService) SetStatus(ctx context.Context, doctype, name, status string) error {
	args := map[string]any{"doctype": doctype, "name": name, "fieldname": "status", "value": status}
	return s.api.Call(ctx, methodSetValue, args, nil)
}

// GroupUsers returns the Microsoft User names belonging to group.
func (s *CRMService) GroupUsers(ctx context.Context, group string) ([]string, error) {
	var users []string
	if err := s.api.Call(ctx, methodGroupUsers, map[string]any{"group_name": group}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CalendarEntries returns the Event documents overlapping [start, end) for the slot picker.
func (s *CRMService) CalendarEntries(ctx context.Context, start, end time.Time) ([]models.CalendarEntry, error) {
	fieldMap, _ := json.Marshal(map[string]any{
		"id":     "name",
		"start":  "starts_on",
		"end":    "ends_on",
		"title":  "subject",
		"allDay": 0,
	})
	args := map[string]any{
		"doctype":   "Event",
		"start":     start.Format(time.DateOnly),
		"end":       end.Format(time.DateOnly),
		"field_map": string(fieldMap),
	}

	var entries []models.CalendarEntry
	if err := s.api.Call(ctx, methodCalendarEvents, args, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoggedUser returns the user the credentials belong to.
func (s *CRMService) LoggedUser(ctx context.Context) (string, error) {
	var user string
	if err := s.api.Call(ctx, methodLoggedUser, nil, &user); err != nil {
		return "", err
	}
	return user, nil
}

// GetValue reads fieldname of the first doctype document matching filters.
// filters is either a document name or a map of field filters. A missing document yields "".
func (s *CRMService) GetValue(ctx context.Context, doctype string, filters any, fieldname string) (string, error) {
	args := map[string]any{"doctype": doctype, "filters": filters, "fieldname": fieldname}

	var values map[string]any
	if err := s.api.Call(ctx, methodGetValue, args, &values); err != nil {
		return "", err
	}
	if v, ok := values[fieldname]; ok && v != nil {
		return fmt.Sprint(v), nil
	}
	return "", nil
}

// TemplateSubject returns the subject of an Email Template.
func (s *CRMService) TemplateSubject(ctx context.Context, template string) (string, error) {
	if template == "" {
		return "", nil
	}
	return s.GetValue(ctx, "Email Template", template, "subject")
}

// ScheduleDefaults resolves the organiser and default calendar of the logged-in user.
//
// Lookups that find nothing leave the field empty; only transport failures are errors.
func (s *CRMService) ScheduleDefaults(ctx context.Context) (models.ScheduleDefaults, error) {
	var d models.ScheduleDefaults

	user, err := s.LoggedUser(ctx)
	if err != nil {
		return d, err
	}

	d.Organiser, err = s.GetValue(ctx, "Microsoft User", map[string]any{"mail": user}, "name")
	if err != nil {
		return d, err
	}
	if d.Organiser == "" {
		if d.Organiser, err = s.GetValue(ctx, "Microsoft User", map[string]any{"principal_name": user}, "name"); err != nil {
			return d, err
		}
	}
	if d.Organiser == "" {
		return d, nil
	}

	d.OutlookCalendar, err = s.GetValue(ctx, "Outlook Calendar",
		map[string]any{"microsoft_user": d.Organiser, "is_default_calendar": 1}, "name")
	return d, err
}
