package tasks

import (
	"fmt"

	"github.com/desertthunder/olx/internal/models"
)

// ProgressUpdate represents a progress event during a tracked sync.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Kind    models.SyncKind // Job being tracked
	Phase   Phase           // Lifecycle phase
	Step    int             // Items processed so far
	Total   int             // Total items reported by the server
	Message string          // Human-readable message for display
	Data    any             // Optional phase-specific data for advanced UIs
}

// Percent returns Step/Total in [0, 1].
func (u ProgressUpdate) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	return float64(u.Step) / float64(u.Total)
}

// Operation phase enumeration
type Phase int

const (
	SyncStarted Phase = iota
	SyncProgress
	SyncCompleted
	SyncFailed
)

func (p Phase) String() string {
	switch p {
	case SyncStarted:
		return "sync_started"
	case SyncProgress:
		return "sync_progress"
	case SyncCompleted:
		return "sync_completed"
	case SyncFailed:
		return "sync_failed"
	default:
		return ""
	}
}

// Terminal reports whether no further updates follow.
func (p Phase) Terminal() bool {
	return p == SyncCompleted || p == SyncFailed
}

func startedUpdate(kind models.SyncKind, ack models.SyncAck) ProgressUpdate {
	msg := ack.Msg
	if msg == "" {
		msg = kind.StartedMessage()
	}
	return ProgressUpdate{
		Kind:    kind,
		Phase:   SyncStarted,
		Message: msg,
		Data:    ack,
	}
}

func progressUpdate(kind models.SyncKind, ev models.ProgressEvent) ProgressUpdate {
	title := ev.Title
	if title == "" {
		title = kind.Title()
	}
	return ProgressUpdate{
		Kind:    kind,
		Phase:   SyncProgress,
		Step:    ev.Progress,
		Total:   ev.Total,
		Message: fmt.Sprintf("%s [%d/%d]", title, ev.Progress, ev.Total),
		Data:    ev,
	}
}

func completedUpdate(kind models.SyncKind, result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Kind:    kind,
		Phase:   SyncCompleted,
		Step:    result.Progress,
		Total:   result.Total,
		Message: kind.SuccessMessage(),
		Data:    result,
	}
}

func failedUpdate(kind models.SyncKind, step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Kind:    kind,
		Phase:   SyncFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✗ %s: %v", kind.Title(), err),
	}
}
