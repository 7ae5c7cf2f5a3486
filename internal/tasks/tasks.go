package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/realtime"
	"github.com/desertthunder/olx/internal/shared"
)

// Starter starts a server-side sync job.
//
// Implemented by services.CRMService.
type Starter interface {
	StartSync(ctx context.Context, kind models.SyncKind) (models.SyncAck, error)
}

// JobRecorder persists the lifecycle of a tracked job.
//
// Recording is best effort: errors are logged and never stop tracking.
type JobRecorder interface {
	Start(ctx context.Context, kind models.SyncKind, ack models.SyncAck) (*models.SyncJob, error)
	Progress(ctx context.Context, job *models.SyncJob, ev models.ProgressEvent) error
	Finish(ctx context.Context, job *models.SyncJob, status models.SyncStatus, cause error) error
}

// SyncResult summarises one tracked job.
type SyncResult struct {
	Kind     models.SyncKind
	Channel  string          // track_on channel the progress arrived on
	Title    string          // last title seen
	Message  string          // start acknowledgement message
	Progress int             // last progress value
	Total    int             // last total value
	Events   int             // progress events received
	Duration time.Duration   // start call to terminal event
	Job      *models.SyncJob // persisted record, when a recorder is configured
}

// Tracker starts and follows sync jobs.
type Tracker interface {
	// Run starts kind, follows its progress channel until progress reaches total, and unsubscribes.
	Run(ctx context.Context, kind models.SyncKind, progress chan<- ProgressUpdate) (*SyncResult, error)
}

// SyncTracker implements [Tracker] over a [Starter] and a realtime [realtime.Subscriber].
type SyncTracker struct {
	starter    Starter
	subscriber realtime.Subscriber
	recorder   JobRecorder
	stall      time.Duration
	logger     *log.Logger
}

// NewSyncTracker creates a tracker. A nil logger discards output.
func NewSyncTracker(starter Starter, subscriber realtime.Subscriber, logger *log.Logger) *SyncTracker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SyncTracker{starter: starter, subscriber: subscriber, logger: logger}
}

// WithRecorder persists every tracked job through r.
func (t *SyncTracker) WithRecorder(r JobRecorder) *SyncTracker {
	t.recorder = r
	return t
}

// WithStallTimeout fails a job when no event arrives within d. Zero waits indefinitely.
func (t *SyncTracker) WithStallTimeout(d time.Duration) *SyncTracker {
	t.stall = d
	return t
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (t *SyncTracker) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run starts kind and follows it to a terminal state.
//
// A non-success acknowledgement returns [shared.ErrSyncRejected] without subscribing.
// Once running, the partial result is returned alongside [shared.ErrSyncFailed],
// [shared.ErrSyncStalled], or the context error.
func (t *SyncTracker) Run(ctx context.Context, kind models.SyncKind, progress chan<- ProgressUpdate) (*SyncResult, error) {
	if t.starter == nil || t.subscriber == nil {
		return nil, fmt.Errorf("%w: tracker not initialized", shared.ErrServiceUnavailable)
	}

	began := time.Now()
	ack, err := t.starter.StartSync(ctx, kind)
	if err != nil {
		err = fmt.Errorf("failed to start %s sync: %w", kind, err)
		t.sendProgress(progress, failedUpdate(kind, 0, 0, err))
		return nil, err
	}
	if !ack.OK() {
		err = fmt.Errorf("%w: %s", shared.ErrSyncRejected, rejection(ack))
		t.sendProgress(progress, failedUpdate(kind, 0, 0, err))
		return nil, err
	}
	if ack.TrackOn == "" {
		err = fmt.Errorf("%w: acknowledgement has no progress channel", shared.ErrSyncRejected)
		t.sendProgress(progress, failedUpdate(kind, 0, 0, err))
		return nil, err
	}

	result := &SyncResult{Kind: kind, Channel: ack.TrackOn, Title: kind.Title(), Message: ack.Msg}
	t.sendProgress(progress, startedUpdate(kind, ack))
	t.logger.Info("sync started", "kind", kind, "channel", ack.TrackOn)

	if t.recorder != nil {
		job, err := t.recorder.Start(ctx, kind, ack)
		if err != nil {
			t.logger.Warn("failed to record sync job", "kind", kind, "error", err)
		}
		result.Job = job
	}

	events := make(chan models.ProgressEvent, 64)
	done := make(chan struct{})
	handler := func(data json.RawMessage) {
		var ev models.ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.logger.Warn("ignoring undecodable progress event", "channel", ack.TrackOn, "error", err)
			return
		}
		select {
		case events <- ev:
		case <-done:
		}
	}

	sub, err := t.subscriber.On(ack.TrackOn, handler)
	if err != nil {
		err = fmt.Errorf("failed to subscribe to %s: %w", ack.TrackOn, err)
		return result, t.fail(ctx, progress, result, models.SyncStatusFailed, err)
	}
	defer close(done)
	defer sub.Off()

	var stall <-chan time.Time
	var timer *time.Timer
	if t.stall > 0 {
		timer = time.NewTimer(t.stall)
		defer timer.Stop()
		stall = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			sub.Off()
			return result, t.fail(context.WithoutCancel(ctx), progress, result, models.SyncStatusCancelled, ctx.Err())

		case <-stall:
			sub.Off()
			err := fmt.Errorf("%w: no progress for %s", shared.ErrSyncStalled, t.stall)
			return result, t.fail(ctx, progress, result, models.SyncStatusStalled, err)

		case ev := <-events:
			result.Events++
			if ev.Failed() {
				sub.Off()
				err := fmt.Errorf("%w: %s", shared.ErrSyncFailed, ev.Error)
				return result, t.fail(ctx, progress, result, models.SyncStatusFailed, err)
			}
			if err := ev.Validate(); err != nil {
				t.logger.Warn("ignoring invalid progress event", "channel", ack.TrackOn, "error", err)
				continue
			}

			result.Progress, result.Total = ev.Progress, ev.Total
			if ev.Title != "" {
				result.Title = ev.Title
			}
			t.sendProgress(progress, progressUpdate(kind, ev))
			t.record(ctx, result, ev)

			if timer != nil {
				timer.Reset(t.stall)
			}

			if ev.Done() {
				sub.Off()
				result.Duration = time.Since(began)
				t.finish(ctx, result, models.SyncStatusCompleted, nil)
				t.sendProgress(progress, completedUpdate(kind, result))
				t.logger.Info("sync completed", "kind", kind, "total", result.Total, "duration", result.Duration)
				return result, nil
			}
		}
	}
}

func (t *SyncTracker) fail(ctx context.Context, progress chan<- ProgressUpdate, result *SyncResult, status models.SyncStatus, err error) error {
	t.finish(ctx, result, status, err)
	t.sendProgress(progress, failedUpdate(result.Kind, result.Progress, result.Total, err))
	t.logger.Error("sync did not complete", "kind", result.Kind, "status", status, "error", err)
	return err
}

func (t *SyncTracker) record(ctx context.Context, result *SyncResult, ev models.ProgressEvent) {
	if t.recorder == nil || result.Job == nil {
		return
	}
	if err := t.recorder.Progress(ctx, result.Job, ev); err != nil {
		t.logger.Warn("failed to record progress", "job", result.Job.ID, "error", err)
	}
}

func (t *SyncTracker) finish(ctx context.Context, result *SyncResult, status models.SyncStatus, cause error) {
	if t.recorder == nil || result.Job == nil {
		return
	}
	if err := t.recorder.Finish(ctx, result.Job, status, cause); err != nil {
		t.logger.Warn("failed to record job result", "job", result.Job.ID, "error", err)
	}
}

func rejection(ack models.SyncAck) string {
	if ack.Msg != "" {
		return ack.Msg
	}
	if ack.Status != "" {
		return "status " + ack.Status
	}
	return "empty acknowledgement"
}
