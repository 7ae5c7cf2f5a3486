package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/shared"
	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// ScheduledRun describes one cron entry.
type ScheduledRun struct {
	Kind models.SyncKind
	Spec string
	Next time.Time
}

// Scheduler runs sync jobs on cron schedules.
type Scheduler struct {
	tracker  Tracker
	logger   *log.Logger
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	entries  map[models.SyncKind]cron.EntryID
	specs    map[models.SyncKind]string
	OnResult func(kind models.SyncKind, result *SyncResult, err error)
}

// NewScheduler creates a scheduler whose jobs skip a tick while the previous run of the same kind is active.
func NewScheduler(tracker Tracker, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cl := cronLogger{logger}
	return &Scheduler{
		tracker: tracker,
		logger:  logger,
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		entries: make(map[models.SyncKind]cron.EntryID),
		specs:   make(map[models.SyncKind]string),
	}
}

// Schedule replaces every entry with schedules, keyed by sync kind. Empty specs are skipped.
//
// Nothing changes when any key or spec is invalid.
func (s *Scheduler) Schedule(schedules map[string]string) error {
	parsed := make(map[models.SyncKind]string, len(schedules))
	for name, spec := range schedules {
		if spec == "" {
			continue
		}
		kind, err := models.ParseSyncKind(name)
		if err != nil {
			return fmt.Errorf("%w: schedules: %v", shared.ErrInvalidConfig, err)
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%w: schedule for %s: %v", shared.ErrInvalidConfig, kind, err)
		}
		parsed[kind] = spec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for kind, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, kind)
		delete(s.specs, kind)
	}
	for kind, spec := range parsed {
		id, err := s.cron.AddFunc(spec, s.job(kind))
		if err != nil {
			return fmt.Errorf("adding %s schedule: %w", kind, err)
		}
		s.entries[kind] = id
		s.specs[kind] = spec
	}
	return nil
}

func (s *Scheduler) job(kind models.SyncKind) func() {
	return func() {
		s.logger.Info("starting scheduled sync", "kind", kind)
		result, err := s.Trigger(s.runContext(), kind)
		if err != nil {
			s.logger.Error("scheduled sync failed", "kind", kind, "error", err)
		}
		if s.OnResult != nil {
			s.OnResult(kind, result, err)
		}
	}
}

// runContext returns the context of the current cron loop, or Background before Start.
func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return context.Background()
	}
	return s.runCtx
}

// Trigger runs kind immediately, outside the cron chain.
func (s *Scheduler) Trigger(ctx context.Context, kind models.SyncKind) (*SyncResult, error) {
	return s.tracker.Run(ctx, kind, nil)
}

// Entries lists the scheduled runs ordered by kind.
func (s *Scheduler) Entries() []ScheduledRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]ScheduledRun, 0, len(s.entries))
	for kind, id := range s.entries {
		runs = append(runs, ScheduledRun{Kind: kind, Spec: s.specs[kind], Next: s.cron.Entry(id).Next})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Kind < runs[j].Kind })
	return runs
}

// Start starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true
	s.logger.Info("sync scheduler started", "entries", len(s.entries))
	return nil
}

// Stop stops the cron loop, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("stopping sync scheduler")
	cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("sync scheduler stopped")
}

// WatchConfig reschedules whenever the file at path changes, until ctx is done.
//
// The parent directory is watched so editors that replace the file are picked up.
// A reload that fails keeps the previous schedules.
func (s *Scheduler) WatchConfig(ctx context.Context, path string, load func(path string) (map[string]string, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("config watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			schedules, err := load(target)
			if err == nil {
				err = s.Schedule(schedules)
			}
			if err != nil {
				s.logger.Error("keeping previous schedules", "path", target, "error", err)
				continue
			}
			s.logger.Info("schedules reloaded", "path", target, "entries", len(s.Entries()))
		}
	}
}

// cronLogger adapts a charm logger to [cron.Logger].
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if errors.Is(err, context.Canceled) {
		return
	}
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
