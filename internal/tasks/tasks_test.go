package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/realtime"
	"github.com/desertthunder/olx/internal/shared"
)

type mockStarter struct {
	ack   models.SyncAck
	err   error
	calls []models.SyncKind
}

func (m *mockStarter) StartSync(ctx context.Context, kind models.SyncKind) (models.SyncAck, error) {
	m.calls = append(m.calls, kind)
	return m.ack, m.err
}

type failingSubscriber struct{ err error }

func (f failingSubscriber) On(string, realtime.Handler) (*realtime.Subscription, error) {
	return nil, f.err
}

type mockRecorder struct {
	mu       sync.Mutex
	started  int
	progress []models.ProgressEvent
	status   models.SyncStatus
	cause    error
	startErr error
}

func (m *mockRecorder) Start(ctx context.Context, kind models.SyncKind, ack models.SyncAck) (*models.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started++
	job := models.NewSyncJob(kind, ack)
	job.ID = "job-1"
	return job, nil
}

func (m *mockRecorder) Progress(ctx context.Context, job *models.SyncJob, ev models.ProgressEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, ev)
	return nil
}

func (m *mockRecorder) Finish(ctx context.Context, job *models.SyncJob, status models.SyncStatus, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status, m.cause = status, cause
	return nil
}

func ack(channel string) models.SyncAck {
	return models.SyncAck{Status: "success", Msg: "Sync queued.", TrackOn: channel}
}

// publishOnSubscribe pushes frames to channel once the tracker subscribes.
func publishOnSubscribe(hub *realtime.Hub, frames ...string) {
	hub.OnOpen(func(channel string) {
		go func() {
			for _, f := range frames {
				hub.Publish(channel, json.RawMessage(f))
			}
		}()
	})
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestSyncTracker_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Completes When Progress Reaches Total", func(t *testing.T) {
		hub := realtime.NewHub()
		starter := &mockStarter{ack: ack("ms-users-1")}
		publishOnSubscribe(hub,
			`{"title":"Syncing Users","progress":1,"total":3}`,
			`{"title":"Syncing Users","progress":3,"total":3}`,
		)

		progress := make(chan ProgressUpdate, 16)
		result, err := NewSyncTracker(starter, hub, nil).Run(ctx, models.SyncUsers, progress)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if result.Progress != 3 || result.Total != 3 || result.Events != 2 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.Channel != "ms-users-1" || result.Title != "Syncing Users" {
			t.Errorf("unexpected channel or title %+v", result)
		}
		if hub.Subscribers("ms-users-1") != 0 {
			t.Error("handler should be removed after completion")
		}
		if n := hub.Publish("ms-users-1", json.RawMessage(`{"progress":3,"total":3}`)); n != 0 {
			t.Errorf("expected no deliveries after completion, got %d", n)
		}

		updates := drain(progress)
		var phases []string
		for _, u := range updates {
			phases = append(phases, u.Phase.String())
		}
		want := "sync_started,sync_progress,sync_progress,sync_completed"
		if strings.Join(phases, ",") != want {
			t.Fatalf("expected phases %s, got %s", want, strings.Join(phases, ","))
		}
		if updates[0].Message != "Sync queued." {
			t.Errorf("expected ack message, got %q", updates[0].Message)
		}
		if updates[1].Message != "Syncing Users [1/3]" {
			t.Errorf("unexpected progress message %q", updates[1].Message)
		}
		if updates[3].Message != "Microsoft Users synced successfully." {
			t.Errorf("unexpected completion message %q", updates[3].Message)
		}
	})

	t.Run("Rejected Acknowledgement Does Not Subscribe", func(t *testing.T) {
		hub := realtime.NewHub()
		opened := false
		hub.OnOpen(func(string) { opened = true })
		starter := &mockStarter{ack: models.SyncAck{Status: "error", Msg: "Microsoft settings are disabled"}}

		progress := make(chan ProgressUpdate, 4)
		_, err := NewSyncTracker(starter, hub, nil).Run(ctx, models.SyncGroups, progress)
		if !errors.Is(err, shared.ErrSyncRejected) {
			t.Fatalf("expected ErrSyncRejected, got %v", err)
		}
		if !strings.Contains(err.Error(), "Microsoft settings are disabled") {
			t.Errorf("expected server message in error, got %v", err)
		}
		if opened {
			t.Error("rejected job should not subscribe")
		}
		if updates := drain(progress); len(updates) != 1 || updates[0].Phase != SyncFailed {
			t.Errorf("expected a single failure update, got %+v", updates)
		}
	})

	t.Run("Missing Channel Is Rejected", func(t *testing.T) {
		starter := &mockStarter{ack: models.SyncAck{Status: "success"}}
		_, err := NewSyncTracker(starter, realtime.NewHub(), nil).Run(ctx, models.SyncGroups, nil)
		if !errors.Is(err, shared.ErrSyncRejected) {
			t.Errorf("expected ErrSyncRejected, got %v", err)
		}
	})

	t.Run("Start Error Is Wrapped", func(t *testing.T) {
		starter := &mockStarter{err: shared.ErrAPIRequest}
		_, err := NewSyncTracker(starter, realtime.NewHub(), nil).Run(ctx, models.SyncEvents, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Fallback Messages", func(t *testing.T) {
		hub := realtime.NewHub()
		starter := &mockStarter{ack: models.SyncAck{Status: "success", TrackOn: "cal-1"}}
		publishOnSubscribe(hub, `{"progress":2,"total":2}`)

		progress := make(chan ProgressUpdate, 8)
		if _, err := NewSyncTracker(starter, hub, nil).Run(ctx, models.SyncCalendars, progress); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		updates := drain(progress)
		if updates[0].Message != "Outlook Calendar syncing started." {
			t.Errorf("unexpected started message %q", updates[0].Message)
		}
		if updates[1].Message != "Syncing Outlook Calendars [2/2]" {
			t.Errorf("unexpected progress message %q", updates[1].Message)
		}
	})

	t.Run("Empty Job Completes", func(t *testing.T) {
		hub := realtime.NewHub()
		publishOnSubscribe(hub, `{"progress":0,"total":0}`)

		result, err := NewSyncTracker(&mockStarter{ack: ack("empty")}, hub, nil).Run(ctx, models.SyncGroups, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Events != 1 {
			t.Errorf("expected 1 event, got %d", result.Events)
		}
	})

	t.Run("Invalid Events Are Skipped", func(t *testing.T) {
		hub := realtime.NewHub()
		publishOnSubscribe(hub, `not json`, `{"progress":5,"total":3}`, `{"progress":3,"total":3}`)

		result, err := NewSyncTracker(&mockStarter{ack: ack("skip")}, hub, nil).Run(ctx, models.SyncGroups, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Progress != 3 || result.Events != 2 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("Reported Error Fails Job", func(t *testing.T) {
		hub := realtime.NewHub()
		publishOnSubscribe(hub, `{"progress":1,"total":4}`, `{"progress":1,"total":4,"error":"token expired"}`)

		result, err := NewSyncTracker(&mockStarter{ack: ack("fail")}, hub, nil).Run(ctx, models.SyncEvents, nil)
		if !errors.Is(err, shared.ErrSyncFailed) {
			t.Fatalf("expected ErrSyncFailed, got %v", err)
		}
		if result == nil || result.Progress != 1 {
			t.Errorf("expected partial result, got %+v", result)
		}
		if hub.Subscribers("fail") != 0 {
			t.Error("handler should be removed after failure")
		}
	})

	t.Run("Stall Timeout", func(t *testing.T) {
		hub := realtime.NewHub()
		tracker := NewSyncTracker(&mockStarter{ack: ack("quiet")}, hub, nil).WithStallTimeout(50 * time.Millisecond)

		_, err := tracker.Run(ctx, models.SyncUsers, nil)
		if !errors.Is(err, shared.ErrSyncStalled) {
			t.Fatalf("expected ErrSyncStalled, got %v", err)
		}
		if hub.Subscribers("quiet") != 0 {
			t.Error("handler should be removed after stall")
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		hub := realtime.NewHub()
		cctx, cancel := context.WithCancel(ctx)
		hub.OnOpen(func(string) { cancel() })

		_, err := NewSyncTracker(&mockStarter{ack: ack("cancel")}, hub, nil).Run(cctx, models.SyncUsers, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if hub.Subscribers("cancel") != 0 {
			t.Error("handler should be removed after cancellation")
		}
	})

	t.Run("Subscribe Error", func(t *testing.T) {
		sub := failingSubscriber{err: fmt.Errorf("%w: relay down", shared.ErrServiceUnavailable)}
		_, err := NewSyncTracker(&mockStarter{ack: ack("x")}, sub, nil).Run(ctx, models.SyncUsers, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Not Initialized", func(t *testing.T) {
		_, err := NewSyncTracker(nil, nil, nil).Run(ctx, models.SyncUsers, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Records Job Lifecycle", func(t *testing.T) {
		hub := realtime.NewHub()
		publishOnSubscribe(hub, `{"progress":1,"total":2}`, `{"progress":2,"total":2}`)
		rec := &mockRecorder{}

		result, err := NewSyncTracker(&mockStarter{ack: ack("rec")}, hub, nil).WithRecorder(rec).Run(ctx, models.SyncUsers, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Job == nil || result.Job.ID != "job-1" {
			t.Errorf("expected recorded job, got %+v", result.Job)
		}
		if rec.started != 1 || len(rec.progress) != 2 || rec.status != models.SyncStatusCompleted {
			t.Errorf("unexpected recorder state %+v", rec)
		}
	})

	t.Run("Recorder Failure Does Not Stop Tracking", func(t *testing.T) {
		hub := realtime.NewHub()
		publishOnSubscribe(hub, `{"progress":1,"total":1}`)
		rec := &mockRecorder{startErr: errors.New("disk full")}

		if _, err := NewSyncTracker(&mockStarter{ack: ack("rec")}, hub, nil).WithRecorder(rec).Run(ctx, models.SyncUsers, nil); err != nil {
			t.Errorf("expected tracking to succeed, got %v", err)
		}
	})

	t.Run("Full Progress Channel Does Not Block", func(t *testing.T) {
		hub := realtime.NewHub()
		publishOnSubscribe(hub, `{"progress":1,"total":3}`, `{"progress":2,"total":3}`, `{"progress":3,"total":3}`)

		progress := make(chan ProgressUpdate)
		if _, err := NewSyncTracker(&mockStarter{ack: ack("full")}, hub, nil).Run(ctx, models.SyncUsers, progress); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
}

func TestProgressUpdate(t *testing.T) {
	t.Run("Percent", func(t *testing.T) {
		if p := (ProgressUpdate{Step: 1, Total: 4}).Percent(); p != 0.25 {
			t.Errorf("expected 0.25, got %v", p)
		}
		if p := (ProgressUpdate{}).Percent(); p != 0 {
			t.Errorf("expected 0 for empty total, got %v", p)
		}
	})

	t.Run("Terminal Phases", func(t *testing.T) {
		if SyncProgress.Terminal() || !SyncCompleted.Terminal() || !SyncFailed.Terminal() {
			t.Error("unexpected terminal phases")
		}
		if Phase(99).String() != "" {
			t.Error("unknown phase should be empty")
		}
	})
}

func TestSyncTracker_RunAll(t *testing.T) {
	t.Run("Runs Every Kind", func(t *testing.T) {
		hub := realtime.NewHub()
		hub.OnOpen(func(channel string) {
			go hub.Publish(channel, json.RawMessage(`{"progress":1,"total":1}`))
		})
		starter := &channelStarter{}

		kinds := []models.SyncKind{models.SyncGroups, models.SyncUsers, models.SyncEvents}
		result := NewSyncTracker(starter, hub, nil).RunAll(context.Background(), kinds, BulkSyncOpts{NumWorkers: 3, StartRate: 100}, nil)

		if result.Total != 3 || result.Succeeded != 3 || result.Failed != 0 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(result.Results) != 3 {
			t.Errorf("expected 3 results, got %d", len(result.Results))
		}
	})

	t.Run("Failures Are Counted", func(t *testing.T) {
		starter := &channelStarter{reject: models.SyncUsers}
		hub := realtime.NewHub()
		hub.OnOpen(func(channel string) {
			go hub.Publish(channel, json.RawMessage(`{"progress":0,"total":0}`))
		})

		kinds := []models.SyncKind{models.SyncGroups, models.SyncUsers}
		result := NewSyncTracker(starter, hub, nil).RunAll(context.Background(), kinds, BulkSyncOpts{StartRate: 100}, nil)
		if result.Succeeded != 1 || result.Failed != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		for _, r := range result.Results {
			if r.Kind == models.SyncUsers && !errors.Is(r.Err, shared.ErrSyncRejected) {
				t.Errorf("expected rejection for users, got %v", r.Err)
			}
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := NewSyncTracker(&channelStarter{}, realtime.NewHub(), nil).RunAll(ctx, models.SyncKinds(), BulkSyncOpts{}, nil)
		if result.Failed != len(models.SyncKinds()) {
			t.Errorf("expected every kind to fail, got %+v", result)
		}
	})
}

// channelStarter acknowledges each kind on its own channel.
type channelStarter struct {
	reject models.SyncKind
}

func (c *channelStarter) StartSync(ctx context.Context, kind models.SyncKind) (models.SyncAck, error) {
	if err := ctx.Err(); err != nil {
		return models.SyncAck{}, err
	}
	if kind == c.reject {
		return models.SyncAck{Status: "error", Msg: "disabled"}, nil
	}
	return models.SyncAck{Status: "success", TrackOn: "track-" + string(kind)}, nil
}
