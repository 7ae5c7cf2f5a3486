package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/olx/internal/models"
	tu "github.com/desertthunder/olx/internal/testing"
)

func newTestCRM(t *testing.T) (*CRMService, *tu.CRMServer) {
	t.Helper()
	server := tu.NewCRMServer(t)
	return NewCRMService(NewAPIService(server.URL, nil)), server
}

func TestCRMService(t *testing.T) {
	ctx := context.Background()

	t.Run("StartSync", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(models.SyncUsers.Method(), map[string]string{
			"status":   "success",
			"msg":      "Microsoft Users syncing started in background.",
			"track_on": "sync_microsoft_users_progress",
		})

		ack, err := crm.StartSync(ctx, models.SyncUsers)
		if err != nil {
			t.Fatalf("StartSync() error = %v", err)
		}
		if !ack.OK() || ack.TrackOn != "sync_microsoft_users_progress" {
			t.Errorf("unexpected ack %+v", ack)
		}
	})

	t.Run("ReferenceEvents", func(t *testing.T) {
		rows := []map[string]any{
			{"name": "SLOT-2", "type": "slot", "subject": "Later", "creation": "2025-03-02 10:00:00"},
			{"name": "EV-1", "type": "event", "subject": "Earlier", "starts_on": "2025-03-04 09:00:00", "ends_on": "2025-03-04 09:30:00", "creation": "2025-03-01 10:00:00"},
		}

		t.Run("Bare List", func(t *testing.T) {
			crm, server := newTestCRM(t)
			server.Reply(methodReferenceEvents, rows)

			events, err := crm.ReferenceEvents(ctx, models.Reference{Doctype: "Lead", Docname: "LEAD-0001"}, true)
			if err != nil {
				t.Fatalf("ReferenceEvents() error = %v", err)
			}
			if len(events) != 2 || events[0].Name != "EV-1" {
				t.Fatalf("expected events sorted by creation, got %+v", events)
			}

			args := server.Calls(methodReferenceEvents)[0].Args
			if args["ref_doctype"] != "Lead" || args["ref_docname"] != "LEAD-0001" || args["with_slots"] != true {
				t.Errorf("unexpected args %v", args)
			}
		})

		t.Run("Wrapped List", func(t *testing.T) {
			crm, server := newTestCRM(t)
			server.Reply(methodReferenceEvents, map[string]any{"events": rows})

			events, err := crm.ReferenceEvents(ctx, models.Reference{Doctype: "Lead", Docname: "LEAD-0001"}, true)
			if err != nil {
				t.Fatalf("ReferenceEvents() error = %v", err)
			}
			if len(events) != 2 {
				t.Errorf("expected 2 events, got %d", len(events))
			}
		})

		t.Run("Empty", func(t *testing.T) {
			crm, server := newTestCRM(t)
			server.Reply(methodReferenceEvents, nil)

			events, err := crm.ReferenceEvents(ctx, models.Reference{Doctype: "Lead", Docname: "LEAD-0001"}, true)
			if err != nil {
				t.Fatalf("ReferenceEvents() error = %v", err)
			}
			if events == nil || len(events) != 0 {
				t.Errorf("expected empty non-nil list, got %#v", events)
			}
		})
	})

	t.Run("CreateSlot", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodCreateSlot, "success")

		start, _ := models.ParseTimestamp("2025-03-04 09:00:00")
		end, _ := models.ParseTimestamp("2025-03-04 09:30:00")
		doc := models.SlotDoc{
			Subject:         "Intro call",
			OutlookCalendar: "CAL-1",
			Organiser:       "MSU-1",
			SlotProposals:   []models.SlotProposal{{Idx: 1, StartsOn: start, EndsOn: end}},
			Users:           []models.UserRow{{MicrosoftUser: "MSU-2"}},
		}
		if err := crm.CreateSlot(ctx, doc); err != nil {
			t.Fatalf("CreateSlot() error = %v", err)
		}

		sent, _ := json.Marshal(server.Calls(methodCreateSlot)[0].Args["doc"])
		var got models.SlotDoc
		if err := json.Unmarshal(sent, &got); err != nil {
			t.Fatalf("failed to decode sent doc: %v", err)
		}
		if got.Subject != "Intro call" || len(got.SlotProposals) != 1 || got.SlotProposals[0].StartsOn.String() != "2025-03-04 09:00:00" {
			t.Errorf("unexpected doc %+v", got)
		}
	})

	t.Run("RescheduleEventSlots", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodReschedule, nil)

		req := models.RescheduleRequest{EventType: "Event", EventName: "EV-1", Reason: "Conflict"}
		if err := crm.RescheduleEventSlots(ctx, req); err != nil {
			t.Fatalf("RescheduleEventSlots() error = %v", err)
		}
		args := server.Calls(methodReschedule)[0].Args
		if args["event_type"] != "Event" || args["reschedule_reason"] != "Conflict" {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("CancelEvent Failure", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Fail(methodCancelEvent, http.StatusExpectationFailed, "Event is already cancelled")

		err := crm.CancelEvent(ctx, models.CancelRequest{EventType: "Event", EventName: "EV-1", Reason: "x"})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("EditEvent", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodEditEvent, nil)

		req := models.EditRequest{EventType: "Event", EventName: "EV-1", Subject: "Renamed", Users: []models.UserRow{{User: "a@example.com"}}}
		if err := crm.EditEvent(ctx, req); err != nil {
			t.Fatalf("EditEvent() error = %v", err)
		}
		users := server.Calls(methodEditEvent)[0].Args["users"].([]any)
		if users[0].(map[string]any)["user"] != "a@example.com" {
			t.Errorf("unexpected users %v", users)
		}
	})

	t.Run("EditEvent Sends Cleared Fields", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodEditEvent, nil)

		req := models.EditRequest{EventType: "Event", EventName: "EV-1", Subject: "Renamed"}
		if err := crm.EditEvent(ctx, req); err != nil {
			t.Fatalf("EditEvent() error = %v", err)
		}
		args := server.Calls(methodEditEvent)[0].Args
		for _, key := range []string{"description", "event_location"} {
			v, ok := args[key]
			if !ok || v != "" {
				t.Errorf("expected %s sent as an empty string, got %v (present=%v)", key, v, ok)
			}
		}
	})

	t.Run("SetStatus", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodSetValue, map[string]any{"name": "EV-1"})

		if err := crm.SetStatus(ctx, "Event", "EV-1", models.StatusClosed); err != nil {
			t.Fatalf("SetStatus() error = %v", err)
		}
		args := server.Calls(methodSetValue)[0].Args
		if args["fieldname"] != "status" || args["value"] != "Closed" {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("GroupUsers", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodGroupUsers, []string{"MSU-1", "MSU-2"})

		users, err := crm.GroupUsers(ctx, "Sales")
		if err != nil {
			t.Fatalf("GroupUsers() error = %v", err)
		}
		if len(users) != 2 || users[1] != "MSU-2" {
			t.Errorf("unexpected users %v", users)
		}
	})

	t.Run("CalendarEntries", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodCalendarEvents, []map[string]any{
			{"name": "EV-9", "subject": "Busy", "starts_on": "2025-03-04 11:00:00", "ends_on": "2025-03-04 12:00:00", "all_day": 0},
		})

		start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
		entries, err := crm.CalendarEntries(ctx, start, start.AddDate(0, 0, 7))
		if err != nil {
			t.Fatalf("CalendarEntries() error = %v", err)
		}
		if len(entries) != 1 || entries[0].Title != "Busy" {
			t.Errorf("unexpected entries %+v", entries)
		}

		args := server.Calls(methodCalendarEvents)[0].Args
		if args["doctype"] != "Event" || args["start"] != "2025-03-03" || args["end"] != "2025-03-10" {
			t.Errorf("unexpected args %v", args)
		}
	})

	t.Run("ScheduleDefaults", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodLoggedUser, "jane@example.com")
		server.Handle(methodGetValue, func(args map[string]any) (any, int) {
			switch args["doctype"] {
			case "Microsoft User":
				filters := args["filters"].(map[string]any)
				if filters["mail"] == "jane@example.com" {
					return map[string]any{"name": "MSU-JANE"}, http.StatusOK
				}
			case "Outlook Calendar":
				filters := args["filters"].(map[string]any)
				if filters["microsoft_user"] == "MSU-JANE" {
					return map[string]any{"name": "CAL-JANE"}, http.StatusOK
				}
			}
			return nil, http.StatusOK
		})

		d, err := crm.ScheduleDefaults(ctx)
		if err != nil {
			t.Fatalf("ScheduleDefaults() error = %v", err)
		}
		if d.Organiser != "MSU-JANE" || d.OutlookCalendar != "CAL-JANE" {
			t.Errorf("unexpected defaults %+v", d)
		}
	})

	t.Run("ScheduleDefaults Unlinked User", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodLoggedUser, "guest@example.com")
		server.Reply(methodGetValue, nil)

		d, err := crm.ScheduleDefaults(ctx)
		if err != nil {
			t.Fatalf("ScheduleDefaults() error = %v", err)
		}
		if d.Organiser != "" || d.OutlookCalendar != "" {
			t.Errorf("expected empty defaults, got %+v", d)
		}
		if n := len(server.Calls(methodGetValue)); n != 2 {
			t.Errorf("expected mail and principal_name lookups, got %d calls", n)
		}
	})

	t.Run("TemplateSubject", func(t *testing.T) {
		crm, server := newTestCRM(t)
		server.Reply(methodGetValue, map[string]any{"subject": "Welcome aboard"})

		subject, err := crm.TemplateSubject(ctx, "Onboarding")
		if err != nil || subject != "Welcome aboard" {
			t.Errorf("TemplateSubject() = %q, %v", subject, err)
		}

		subject, err = crm.TemplateSubject(ctx, "")
		if err != nil || subject != "" {
			t.Errorf("empty template should not call the server, got %q, %v", subject, err)
		}
		if n := len(server.Calls(methodGetValue)); n != 1 {
			t.Errorf("expected 1 lookup, got %d", n)
		}
	})
}
