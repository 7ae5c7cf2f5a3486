package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/teambition/rrule-go"
)

var frequencies = map[string]rrule.Frequency{
	models.RepeatDaily:   rrule.DAILY,
	models.RepeatWeekly:  rrule.WEEKLY,
	models.RepeatMonthly: rrule.MONTHLY,
	models.RepeatYearly:  rrule.YEARLY,
}

var weekdays = map[string]rrule.Weekday{
	"monday": rrule.MO, "tuesday": rrule.TU, "wednesday": rrule.WE, "thursday": rrule.TH,
	"friday": rrule.FR, "saturday": rrule.SA, "sunday": rrule.SU,
}

// Occurrence is one expanded instance of a repeating proposal.
type Occurrence struct {
	Proposal int // Idx of the source proposal
	Start    time.Time
	End      time.Time
}

// Rule returns the recurrence rule the dialog's repeat settings describe for a proposal starting at start.
func (d *Dialog) Rule(start time.Time, limit int) (*rrule.RRule, error) {
	if !d.Repeat {
		return nil, fmt.Errorf("%w: dialog does not repeat", shared.ErrInvalidInput)
	}
	freq, ok := frequencies[d.RepeatOn]
	if !ok {
		return nil, fmt.Errorf("%w: unknown repeat frequency %q", shared.ErrInvalidInput, d.RepeatOn)
	}

	opt := rrule.ROption{Freq: freq, Dtstart: start, Count: limit}
	if freq == rrule.WEEKLY {
		for _, day := range d.Weekdays {
			wd, ok := weekdays[strings.ToLower(day)]
			if !ok {
				return nil, fmt.Errorf("%w: unknown weekday %q", shared.ErrInvalidInput, day)
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	}
	if d.RepeatTill != "" {
		till, err := time.ParseInLocation(time.DateOnly, d.RepeatTill, start.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: repeat_till %q is not a date", shared.ErrInvalidInput, d.RepeatTill)
		}
		opt.Until = till.AddDate(0, 0, 1).Add(-time.Second)
	}
	return rrule.NewRRule(opt)
}

// Occurrences expands every proposal with the repeat settings and returns up to limit instances per proposal,
// ordered by start. A dialog that does not repeat yields its proposals as-is.
func (d *Dialog) Occurrences(limit int) ([]Occurrence, error) {
	if limit <= 0 {
		limit = 10
	}

	var out []Occurrence
	for _, p := range d.Proposals {
		if !d.Repeat {
			out = append(out, Occurrence{Proposal: p.Idx, Start: p.StartsOn.Time, End: p.EndsOn.Time})
			continue
		}

		rule, err := d.Rule(p.StartsOn.Time, limit)
		if err != nil {
			return nil, err
		}
		length := p.Duration()
		for _, at := range rule.All() {
			out = append(out, Occurrence{Proposal: p.Idx, Start: at, End: at.Add(length)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
