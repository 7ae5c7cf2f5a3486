package models

import (
	"encoding/json"
	"testing"
)

func mustTimestamp(t *testing.T, s string) Timestamp {
	t.Helper()
	ts, err := ParseTimestamp(s)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", s, err)
	}
	return ts
}

func TestScheduledEvent(t *testing.T) {
	t.Run("Decode Reference Events Row", func(t *testing.T) {
		row := `{
			"name": "EV00012",
			"subject": "Demo",
			"event_category": "Meeting",
			"starts_on": "2025-03-04 09:30:00",
			"ends_on": "2025-03-04 10:00:00",
			"status": "Open",
			"custom_outlook_meeting_link": "https://teams.microsoft.com/l/x",
			"description": null,
			"creation": "2025-03-01 12:00:00.000001",
			"type": "event"
		}`

		var ev ScheduledEvent
		if err := json.Unmarshal([]byte(row), &ev); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if ev.Kind != EventKindEvent || ev.Doctype() != "Event" {
			t.Errorf("unexpected kind %q", ev.Kind)
		}
		if err := ev.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("Slot Invariant", func(t *testing.T) {
		slot := ScheduledEvent{Kind: EventKindSlot, Name: "SLOT-0001"}
		if err := slot.Validate(); err == nil {
			t.Error("slot without proposals should be invalid")
		}

		slot.Proposals = []SlotProposal{{
			Idx:      1,
			StartsOn: mustTimestamp(t, "2025-03-04 09:00:00"),
			EndsOn:   mustTimestamp(t, "2025-03-04 09:30:00"),
		}}
		if err := slot.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}

		slot.StartsOn = mustTimestamp(t, "2025-03-04 09:00:00")
		if err := slot.Validate(); err == nil {
			t.Error("slot with a confirmed time should be invalid")
		}
	})

	t.Run("Event Invariant", func(t *testing.T) {
		ev := ScheduledEvent{Kind: EventKindEvent, Name: "EV1", StartsOn: mustTimestamp(t, "2025-03-04 09:00:00")}
		if err := ev.Validate(); err == nil {
			t.Error("event without end should be invalid")
		}
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		if err := (ScheduledEvent{Name: "x", Kind: "meeting"}).Validate(); err == nil {
			t.Error("unknown kind should be invalid")
		}
	})

	t.Run("SortByCreation", func(t *testing.T) {
		events := []ScheduledEvent{
			{Name: "c", Creation: mustTimestamp(t, "2025-03-03 00:00:00")},
			{Name: "a", Creation: mustTimestamp(t, "2025-03-01 00:00:00")},
			{Name: "b", Creation: mustTimestamp(t, "2025-03-02 00:00:00")},
		}
		SortByCreation(events)
		if events[0].Name != "a" || events[1].Name != "b" || events[2].Name != "c" {
			t.Errorf("unexpected order %v", []string{events[0].Name, events[1].Name, events[2].Name})
		}
	})
}

func TestSlotProposal(t *testing.T) {
	p := SlotProposal{Idx: 1, StartsOn: mustTimestamp(t, "2025-03-04 10:00:00"), EndsOn: mustTimestamp(t, "2025-03-04 09:00:00")}
	if err := p.Validate(); err == nil {
		t.Error("proposal ending before it starts should be invalid")
	}

	data, err := json.Marshal(SlotProposal{Idx: 2, StartsOn: mustTimestamp(t, "2025-03-04 09:00:00"), EndsOn: mustTimestamp(t, "2025-03-04 09:30:00")})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != `{"idx":2,"starts_on":"2025-03-04 09:00:00","ends_on":"2025-03-04 09:30:00"}` {
		t.Errorf("got %s", data)
	}
}

func TestUserRow(t *testing.T) {
	t.Run("Key", func(t *testing.T) {
		if (UserRow{MicrosoftUser: "ms-1"}).Key() != "ms-1" {
			t.Error("microsoft user should be the key")
		}
		if (UserRow{User: "jane@example.com"}).Key() != "jane@example.com" {
			t.Error("user should be the key")
		}
	})

	t.Run("Marshal Omits Empty Identity", func(t *testing.T) {
		data, _ := json.Marshal(UserRow{MicrosoftUser: "ms-1"})
		if string(data) != `{"microsoft_user":"ms-1"}` {
			t.Errorf("got %s", data)
		}
	})
}

func TestSlotDoc(t *testing.T) {
	var doc SlotDoc
	if err := doc.SetWeekdays([]string{"Monday", " friday"}); err != nil {
		t.Fatalf("SetWeekdays() error = %v", err)
	}
	if !doc.Monday || !doc.Friday || doc.Tuesday {
		t.Errorf("unexpected weekdays %+v", doc)
	}
	if err := doc.SetWeekdays([]string{"caturday"}); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestEventParticipant(t *testing.T) {
	p := EventParticipant{ReferenceDoctype: "Contact", ReferenceDocname: "CONT-1"}
	if p.Label() != "CONT-1" {
		t.Errorf("Label() = %q", p.Label())
	}
	p.Email = "c@example.com"
	if p.Label() != "c@example.com" {
		t.Errorf("Label() = %q", p.Label())
	}
	if p.IsUser() {
		t.Error("contact is not a user")
	}
}
