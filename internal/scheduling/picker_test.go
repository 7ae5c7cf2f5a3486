package scheduling

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
)

type staticFeed []models.CalendarEntry

func (f staticFeed) CalendarEntries(ctx context.Context, start, end time.Time) ([]models.CalendarEntry, error) {
	return f, nil
}

type staticHolidays []models.Holiday

func (h staticHolidays) Holidays(ctx context.Context, start, end time.Time) ([]models.Holiday, error) {
	return h, nil
}

type failingFeed struct{}

func (failingFeed) CalendarEntries(ctx context.Context, start, end time.Time) ([]models.CalendarEntry, error) {
	return nil, shared.ErrServiceUnavailable
}

func fixedNow() time.Time { return time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC) }

func TestParseView(t *testing.T) {
	for in, want := range map[string]View{"": ViewWeek, "month": ViewMonth, "week": ViewWeek, "day": ViewDay} {
		if got, err := ParseView(in); err != nil || got != want {
			t.Errorf("ParseView(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseView("agenda"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPicker_Window(t *testing.T) {
	t.Run("Week Starts Monday", func(t *testing.T) {
		p := NewPicker(PickerConfig{Now: fixedNow})
		start, end := p.Window()
		if start.Format(time.DateOnly) != "2025-03-10" || end.Format(time.DateOnly) != "2025-03-17" {
			t.Errorf("unexpected week %s - %s", start, end)
		}
	})

	t.Run("Month", func(t *testing.T) {
		p := NewPicker(PickerConfig{Now: fixedNow, View: ViewMonth})
		p.Step(1)
		start, end := p.Window()
		if start.Format(time.DateOnly) != "2025-04-01" || end.Format(time.DateOnly) != "2025-05-01" {
			t.Errorf("unexpected month %s - %s", start, end)
		}
	})

	t.Run("Day", func(t *testing.T) {
		p := NewPicker(PickerConfig{Now: fixedNow, View: ViewDay})
		p.Step(-2)
		start, end := p.Window()
		if start.Format(time.DateOnly) != "2025-03-10" || end.Sub(start) != 24*time.Hour {
			t.Errorf("unexpected day %s - %s", start, end)
		}
	})
}

func TestPicker_Entries(t *testing.T) {
	ctx := context.Background()
	zone := time.FixedZone("CET", 3600)
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, zone)
	end := start.AddDate(0, 0, 7)

	t.Run("Merges Busy Events And Holidays", func(t *testing.T) {
		p := NewPicker(PickerConfig{
			Events: staticFeed{
				{Name: "EV-2", Title: "Later", Start: ts("2025-03-12 09:00:00"), End: ts("2025-03-12 10:00:00")},
				{Name: "EV-1", Title: "Earlier", Start: ts("2025-03-11 09:00:00"), End: ts("2025-03-11 10:00:00")},
			},
			Holidays: staticHolidays{
				{Summary: "Bank Holiday", Start: time.Date(2025, 3, 10, 0, 0, 0, 0, zone), End: time.Date(2025, 3, 11, 0, 0, 0, 0, zone)},
				{Summary: "Out Of Range", Start: time.Date(2025, 4, 1, 0, 0, 0, 0, zone), End: time.Date(2025, 4, 2, 0, 0, 0, 0, zone)},
			},
			HolidayColor: "#ffe0e0",
			SystemZone:   zone,
		})

		entries, err := p.Entries(ctx, start, end)
		if err != nil {
			t.Fatalf("Entries() error = %v", err)
		}
		titles := make([]string, len(entries))
		for i, e := range entries {
			titles[i] = e.Title
		}
		if !slices.Equal(titles, []string{"Bank Holiday", "Earlier", "Later"}) {
			t.Fatalf("unexpected entries %v", titles)
		}
		if !entries[0].Background || entries[0].Color != "#ffe0e0" || !entries[0].AllDay {
			t.Errorf("holiday should be an all-day background band, got %+v", entries[0])
		}
		if entries[1].Start.Location() != zone || entries[1].Start.Hour() != 9 {
			t.Errorf("busy entry should keep its wall clock in the system zone, got %s", entries[1].Start)
		}
	})

	t.Run("Feed Failure", func(t *testing.T) {
		p := NewPicker(PickerConfig{Events: failingFeed{}, Holidays: staticHolidays{}})
		if _, err := p.Entries(ctx, start, end); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("No Sources", func(t *testing.T) {
		p := NewPicker(PickerConfig{})
		entries, err := p.Entries(ctx, start, end)
		if err != nil || len(entries) != 0 {
			t.Errorf("expected no entries, got %v, %v", entries, err)
		}
	})
}

func TestPicker_Select(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Calls Back And Closes", func(t *testing.T) {
		var got []time.Time
		p := NewPicker(PickerConfig{OnSlotSelect: func(s, e time.Time) { got = append(got, s, e) }})

		ok, err := p.Select(day.Add(9*time.Hour), day.Add(10*time.Hour))
		if !ok || err != nil || len(got) != 2 {
			t.Fatalf("Select() = %v, %v with %v", ok, err, got)
		}
		if _, err := p.Select(day.Add(11*time.Hour), day.Add(12*time.Hour)); !errors.Is(err, shared.ErrNoDialog) {
			t.Errorf("closed picker should reject selections, got %v", err)
		}
	})

	t.Run("Month View Single Day Is Ignored", func(t *testing.T) {
		called := false
		p := NewPicker(PickerConfig{View: ViewMonth, OnSlotSelect: func(time.Time, time.Time) { called = true }})

		if ok, err := p.Select(day, day.AddDate(0, 0, 1)); ok || err != nil || called {
			t.Errorf("expected no-op, got %v, %v (called %v)", ok, err, called)
		}
		if ok, _ := p.Select(day, day.AddDate(0, 0, 2)); !ok || !called {
			t.Error("multi-day selection in month view should be accepted")
		}
	})

	t.Run("Month View Single Day Across DST Change Is Ignored", func(t *testing.T) {
		london, err := time.LoadLocation("Europe/London")
		if err != nil {
			t.Skipf("zone data unavailable: %v", err)
		}

		for _, start := range []time.Time{
			time.Date(2025, 3, 30, 0, 0, 0, 0, london),
			time.Date(2025, 10, 26, 0, 0, 0, 0, london),
		} {
			end := start.AddDate(0, 0, 1)
			if end.Sub(start) == 24*time.Hour {
				t.Fatalf("%s is not a DST day", start)
			}

			called := false
			p := NewPicker(PickerConfig{View: ViewMonth, OnSlotSelect: func(time.Time, time.Time) { called = true }})
			if ok, err := p.Select(start, end); ok || err != nil || called {
				t.Errorf("%s: expected no-op, got %v, %v (called %v)", start.Format(time.DateOnly), ok, err, called)
			}
		}
	})

	t.Run("Week View Full Day Is Accepted", func(t *testing.T) {
		p := NewPicker(PickerConfig{View: ViewWeek})
		if ok, err := p.Select(day, day.AddDate(0, 0, 1)); !ok || err != nil {
			t.Errorf("Select() = %v, %v", ok, err)
		}
	})

	t.Run("Empty Range", func(t *testing.T) {
		p := NewPicker(PickerConfig{})
		if _, err := p.Select(day, day); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if p.Closed() {
			t.Error("rejected selection should leave the picker open")
		}
	})
}

func TestPicker_DayClick(t *testing.T) {
	t.Run("Second Click Opens Day View", func(t *testing.T) {
		p := NewPicker(PickerConfig{View: ViewMonth, Now: fixedNow})
		day := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

		if p.DayClick(day) {
			t.Error("first click should not change the view")
		}
		if !p.DayClick(day.Add(3 * time.Hour)) {
			t.Fatal("second click on the same date should switch views")
		}
		if p.View() != ViewDay || !p.Date().Equal(day) {
			t.Errorf("expected day view on %s, got %s on %s", day, p.View(), p.Date())
		}
	})

	t.Run("Different Dates", func(t *testing.T) {
		p := NewPicker(PickerConfig{View: ViewMonth})
		p.DayClick(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
		if p.DayClick(time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)) {
			t.Error("clicks on different dates should not switch views")
		}
	})

	t.Run("Ignored Outside Month View", func(t *testing.T) {
		p := NewPicker(PickerConfig{View: ViewWeek})
		day := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
		p.DayClick(day)
		if p.DayClick(day) || p.View() != ViewWeek {
			t.Error("day clicks only apply in month view")
		}
	})
}

func TestRequiredLibs(t *testing.T) {
	if libs := RequiredLibs("en"); len(libs) != 2 {
		t.Errorf("expected css and js only, got %v", libs)
	}
	libs := RequiredLibs("de")
	if len(libs) != 3 || libs[2] != "assets/frappe/js/lib/fullcalendar/locale-all.js" {
		t.Errorf("expected locale bundle, got %v", libs)
	}
}
