package models

import (
	"fmt"
	"strings"
	"time"
)

// SyncKind identifies one of the server-side sync jobs.
type SyncKind string

const (
	SyncGroups         SyncKind = "groups"
	SyncUsers          SyncKind = "users"
	SyncCalendars      SyncKind = "calendars"
	SyncCalendarGroups SyncKind = "calendar-groups"
	SyncEvents         SyncKind = "events"
)

const methodPrefix = "crm_microsoft_integration.microsoft."

type syncSpec struct {
	method  string
	title   string
	noun    string
	success string
}

var syncSpecs = map[SyncKind]syncSpec{
	SyncGroups: {
		method:  methodPrefix + "doctype.microsoft_group.microsoft_group.sync_ms_groups",
		title:   "Syncing Microsoft Groups",
		noun:    "Microsoft Groups",
		success: "Microsoft Groups synced successfully.",
	},
	SyncUsers: {
		method:  methodPrefix + "doctype.microsoft_user.microsoft_user.sync_ms_users",
		title:   "Syncing Microsoft Users",
		noun:    "Microsoft Users",
		success: "Microsoft Users synced successfully.",
	},
	SyncCalendars: {
		method:  methodPrefix + "doctype.outlook_calendar.outlook_calendar.sync_outlook_calendars",
		title:   "Syncing Outlook Calendars",
		noun:    "Outlook Calendar",
		success: "Outlook Calendar synced successfully.",
	},
	SyncCalendarGroups: {
		method:  methodPrefix + "doctype.outlook_calendar_group.outlook_calendar_group.sync_outlook_calendar_groups",
		title:   "Syncing Outlook Calendar Groups",
		noun:    "Outlook Calendar Groups",
		success: "Outlook Calendar Groups synced successfully.",
	},
	SyncEvents: {
		method:  methodPrefix + "customizations.event.sync_outlook_events",
		title:   "Syncing Outlook Events",
		noun:    "Outlook Event",
		success: "Outlook Event synced successfully.",
	},
}

// SyncKinds returns every kind in a stable order.
func SyncKinds() []SyncKind {
	return []SyncKind{SyncGroups, SyncUsers, SyncCalendars, SyncCalendarGroups, SyncEvents}
}

// ParseSyncKind accepts the kind name with either dashes or underscores.
func ParseSyncKind(s string) (SyncKind, error) {
	k := SyncKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := syncSpecs[k]; !ok {
		return "", fmt.Errorf("unknown sync kind %q", s)
	}
	return k, nil
}

// Method returns the remote method that starts the job.
func (k SyncKind) Method() string { return syncSpecs[k].method }

// Title is the progress title used when an event carries none.
func (k SyncKind) Title() string { return syncSpecs[k].title }

// StartedMessage is the fallback alert when the acknowledgement has no message.
func (k SyncKind) StartedMessage() string { return syncSpecs[k].noun + " syncing started." }

// SuccessMessage is the alert shown once progress reaches total.
func (k SyncKind) SuccessMessage() string { return syncSpecs[k].success }

// SyncAck is the start acknowledgement: {status, msg, track_on}.
type SyncAck struct {
	Status  string `json:"status"`
	Msg     string `json:"msg"`
	TrackOn string `json:"track_on"`
}

// OK reports whether the job was accepted.
func (a SyncAck) OK() bool {
	return a.Status == "success"
}

// ProgressEvent is a realtime progress payload.
type ProgressEvent struct {
	Title    string `json:"title,omitempty"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Error    string `json:"error,omitempty"`
}

// Done reports whether the job has finished. A job with nothing to sync reports 0/0.
func (e ProgressEvent) Done() bool {
	return e.Progress >= e.Total
}

// Failed reports whether the server signalled a terminal failure.
func (e ProgressEvent) Failed() bool {
	return e.Error != ""
}

// Validate enforces 0 <= progress <= total.
func (e ProgressEvent) Validate() error {
	if e.Progress < 0 || e.Total < 0 {
		return fmt.Errorf("progress %d/%d is negative", e.Progress, e.Total)
	}
	if e.Progress > e.Total {
		return fmt.Errorf("progress %d exceeds total %d", e.Progress, e.Total)
	}
	return nil
}

// Percent returns progress as a fraction in [0, 1].
func (e ProgressEvent) Percent() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Progress) / float64(e.Total)
}

// SyncStatus is the lifecycle state of a [SyncJob].
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
	SyncStatusStalled   SyncStatus = "stalled"
	SyncStatusCancelled SyncStatus = "cancelled"
)

// Terminal reports whether no further updates are expected.
func (s SyncStatus) Terminal() bool {
	return s != SyncStatusRunning
}

// SyncJob is the persisted record of a tracked sync run.
type SyncJob struct {
	ID         string     `db:"id" json:"id"`
	Sequence   int        `db:"sequence" json:"sequence"`
	Kind       SyncKind   `db:"kind" json:"kind"`
	Channel    string     `db:"channel" json:"channel"`
	Title      string     `db:"title" json:"title"`
	Status     SyncStatus `db:"status" json:"status"`
	Progress   int        `db:"progress" json:"progress"`
	Total      int        `db:"total" json:"total"`
	Message    string     `db:"message" json:"message,omitempty"`
	Error      string     `db:"error" json:"error,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// NewSyncJob creates a running job for kind. The ID and sequence are assigned on insert.
func NewSyncJob(kind SyncKind, ack SyncAck) *SyncJob {
	return &SyncJob{
		Kind:      kind,
		Channel:   ack.TrackOn,
		Title:     kind.Title(),
		Status:    SyncStatusRunning,
		Message:   ack.Msg,
		StartedAt: time.Now().UTC(),
	}
}

// Validate checks the fields required for persistence.
func (j *SyncJob) Validate() error {
	if _, ok := syncSpecs[j.Kind]; !ok {
		return fmt.Errorf("unknown sync kind %q", j.Kind)
	}
	if j.Progress < 0 || j.Total < 0 || (j.Total > 0 && j.Progress > j.Total) {
		return fmt.Errorf("invalid progress %d/%d", j.Progress, j.Total)
	}
	return nil
}

// Duration returns how long the job ran, or has been running.
func (j *SyncJob) Duration() time.Duration {
	if j.FinishedAt == nil {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
