package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const holidayICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//olx//holidays//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holi-2025\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250314\r\n" +
	"DTEND;VALUE=DATE:20250315\r\n" +
	"SUMMARY:Holi\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:new-year-2025\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250101\r\n" +
	"SUMMARY:New Year\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestHolidayFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("File Source", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "holidays.ics")
		if err := os.WriteFile(path, []byte(holidayICS), 0644); err != nil {
			t.Fatalf("failed to write feed: %v", err)
		}

		feed := NewHolidayFeed(path, nil, time.UTC)
		week := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		holidays, err := feed.Holidays(ctx, week, week.AddDate(0, 0, 7))
		if err != nil {
			t.Fatalf("Holidays() error = %v", err)
		}
		if len(holidays) != 1 || holidays[0].Summary != "Holi" {
			t.Fatalf("expected Holi only, got %+v", holidays)
		}
		if holidays[0].End.Sub(holidays[0].Start) != 24*time.Hour {
			t.Errorf("expected one-day band, got %v", holidays[0].End.Sub(holidays[0].Start))
		}
	})

	t.Run("Missing DTEND Lasts One Day", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "holidays.ics")
		os.WriteFile(path, []byte(holidayICS), 0644)

		feed := NewHolidayFeed(path, nil, time.UTC)
		day := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		holidays, err := feed.Holidays(ctx, day, day.Add(time.Hour))
		if err != nil {
			t.Fatalf("Holidays() error = %v", err)
		}
		if len(holidays) != 1 || holidays[0].Summary != "New Year" {
			t.Errorf("expected New Year, got %+v", holidays)
		}
	})

	t.Run("URL Source Is Cached", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "text/calendar")
			w.Write([]byte(holidayICS))
		}))
		defer server.Close()

		feed := NewHolidayFeed(server.URL, nil, time.UTC)
		for range 3 {
			if err := feed.Load(ctx); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
		}
		if hits.Load() != 1 {
			t.Errorf("expected a single fetch, got %d", hits.Load())
		}
		if !feed.Loaded() {
			t.Error("feed should report loaded")
		}
	})

	t.Run("Failure Is Retried", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(holidayICS))
		}))
		defer server.Close()

		feed := NewHolidayFeed(server.URL, nil, time.UTC)
		if err := feed.Load(ctx); err == nil {
			t.Fatal("expected first load to fail")
		}
		if feed.Loaded() {
			t.Error("failed load should not be cached")
		}
		if err := feed.Load(ctx); err != nil {
			t.Fatalf("second Load() error = %v", err)
		}
	})

	t.Run("Empty Source", func(t *testing.T) {
		feed := NewHolidayFeed("", nil, nil)
		holidays, err := feed.Holidays(ctx, time.Now(), time.Now().Add(time.Hour))
		if err != nil || len(holidays) != 0 {
			t.Errorf("expected no holidays, got %v, %v", holidays, err)
		}
	})

	t.Run("Invalid Feed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.ics")
		os.WriteFile(path, []byte("BEGIN:VCALENDAR\r\nnot ical"), 0644)

		if err := NewHolidayFeed(path, nil, time.UTC).Load(ctx); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Yearly Rule Expands Into Window", func(t *testing.T) {
		ics := "BEGIN:VCALENDAR\r\n" +
			"VERSION:2.0\r\n" +
			"PRODID:-//olx//holidays//EN\r\n" +
			"BEGIN:VEVENT\r\n" +
			"UID:founders-day\r\n" +
			"DTSTAMP:20200101T000000Z\r\n" +
			"DTSTART;VALUE=DATE:20200704\r\n" +
			"DTEND;VALUE=DATE:20200705\r\n" +
			"RRULE:FREQ=YEARLY\r\n" +
			"SUMMARY:Founders Day\r\n" +
			"END:VEVENT\r\n" +
			"END:VCALENDAR\r\n"
		path := filepath.Join(t.TempDir(), "recurring.ics")
		os.WriteFile(path, []byte(ics), 0644)

		feed := NewHolidayFeed(path, nil, time.UTC)
		month := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		holidays, err := feed.Holidays(ctx, month, month.AddDate(0, 1, 0))
		if err != nil {
			t.Fatalf("Holidays() error = %v", err)
		}
		if len(holidays) != 1 {
			t.Fatalf("expected one occurrence, got %+v", holidays)
		}
		want := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
		if !holidays[0].Start.Equal(want) || holidays[0].End.Sub(holidays[0].Start) != 24*time.Hour {
			t.Errorf("unexpected occurrence %+v", holidays[0])
		}
	})
}
