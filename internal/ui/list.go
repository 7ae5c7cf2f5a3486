package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/olx/internal/formatter"
	"github.com/desertthunder/olx/internal/models"
)

var (
	_ list.Item = eventItem{}
)

// eventItem wraps [models.ScheduledEvent] to implement [list.Item].
type eventItem struct {
	event models.ScheduledEvent
	zones formatter.Zones
}

func (i eventItem) FilterValue() string { return i.event.Subject }
func (i eventItem) Title() string {
	if i.event.IsSlot() {
		return fmt.Sprintf("%s (%d proposed)", i.event.Subject, len(i.event.Proposals))
	}
	return i.event.Subject
}
func (i eventItem) Description() string {
	var when string
	if i.event.IsSlot() && len(i.event.Proposals) > 0 {
		p := i.event.Proposals[0]
		when = i.zones.Range(p.StartsOn, p.EndsOn)
	} else {
		when = i.zones.Range(i.event.StartsOn, i.event.EndsOn)
	}

	parts := []string{when}
	if i.event.Status != "" {
		parts = append(parts, i.event.Status)
	}
	if i.event.Location != "" {
		parts = append(parts, i.event.Location)
	}
	return strings.Join(parts, " • ")
}
