package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// holiday is a parsed VEVENT. Recurring entries expand through rule.
type holiday struct {
	models.Holiday
	rule *rrule.Set
}

// occurrences returns the instances of h intersecting [start, end).
func (h holiday) occurrences(start, end time.Time) []models.Holiday {
	if h.rule == nil {
		if h.Overlaps(start, end) {
			return []models.Holiday{h.Holiday}
		}
		return nil
	}

	length := h.End.Sub(h.Start)
	var out []models.Holiday
	for _, at := range h.rule.Between(start.Add(-length), end, true) {
		occ := models.Holiday{Summary: h.Summary, Start: at, End: at.Add(length)}
		if occ.Overlaps(start, end) {
			out = append(out, occ)
		}
	}
	return out
}

// HolidayFeed loads holidays from an iCalendar file or URL.
//
// The feed is fetched once; a failed load is retried on the next call.
type HolidayFeed struct {
	source string
	client *http.Client
	loc    *time.Location

	mu       sync.Mutex
	loaded   bool
	holidays []holiday
}

// NewHolidayFeed creates a feed for source, an http(s) URL or a file path.
// An empty source yields an empty feed. Floating dates are read in loc.
func NewHolidayFeed(source string, client *http.Client, loc *time.Location) *HolidayFeed {
	if client == nil {
		client = http.DefaultClient
	}
	if loc == nil {
		loc = time.Local
	}
	return &HolidayFeed{source: source, client: client, loc: loc}
}

// Load fetches and parses the feed unless it is already cached.
func (f *HolidayFeed) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.loaded {
		return nil
	}
	if f.source == "" {
		f.loaded = true
		return nil
	}

	body, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	holidays, err := parseHolidays(body, f.loc)
	if err != nil {
		return fmt.Errorf("failed to parse holiday feed %s: %w", f.source, err)
	}

	f.holidays = holidays
	f.loaded = true
	return nil
}

// Loaded reports whether the feed is cached.
func (f *HolidayFeed) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *HolidayFeed) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(f.source, "http://") && !strings.HasPrefix(f.source, "https://") {
		file, err := os.Open(f.source)
		if err != nil {
			return nil, fmt.Errorf("failed to open holiday feed: %w", err)
		}
		return file, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("holiday feed request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("holiday feed returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Holidays returns the holidays intersecting [start, end), loading the feed first if needed.
func (f *HolidayFeed) Holidays(ctx context.Context, start, end time.Time) ([]models.Holiday, error) {
	if err := f.Load(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Holiday
	for _, h := range f.holidays {
		out = append(out, h.occurrences(start, end)...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func parseHolidays(r io.Reader, loc *time.Location) ([]holiday, error) {
	dec := ical.NewDecoder(r)

	var holidays []holiday
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			h, ok := parseHoliday(comp, loc)
			if ok {
				holidays = append(holidays, h)
			}
		}
	}

	sort.Slice(holidays, func(i, j int) bool {
		return holidays[i].Start.Before(holidays[j].Start)
	})
	return holidays, nil
}

// parseHoliday reads one VEVENT. All-day events without DTEND last one day.
// Events with an RRULE keep their recurrence set for expansion per window.
func parseHoliday(comp *ical.Component, loc *time.Location) (holiday, bool) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return holiday{}, false
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return holiday{}, false
	}

	end := start.AddDate(0, 0, 1)
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if t, err := endProp.DateTime(loc); err == nil && t.After(start) {
			end = t
		}
	}

	var summary string
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		summary = p.Value
	}

	h := holiday{Holiday: models.Holiday{Summary: summary, Start: start, End: end}}
	if comp.Props.Get(ical.PropRecurrenceRule) != nil {
		set, err := comp.RecurrenceSet(loc)
		if err != nil {
			return holiday{}, false
		}
		h.rule = set
	}
	return h, true
}
