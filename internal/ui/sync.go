package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/tasks"
	"github.com/dustin/go-humanize"
)

// BulkRunner runs several sync kinds and streams their progress.
//
// Implemented by [tasks.SyncTracker].
type BulkRunner interface {
	RunAll(ctx context.Context, kinds []models.SyncKind, opts tasks.BulkSyncOpts, progress chan<- tasks.ProgressUpdate) *tasks.BulkSyncResult
}

type syncRow struct {
	update tasks.ProgressUpdate
	bar    progress.Model
}

// SyncModel shows one progress bar per sync kind until every job finishes.
type SyncModel struct {
	ctx          context.Context
	runner       BulkRunner
	kinds        []models.SyncKind
	opts         tasks.BulkSyncOpts
	rows         map[models.SyncKind]*syncRow
	progressChan chan tasks.ProgressUpdate
	resultChan   chan *tasks.BulkSyncResult
	result       *tasks.BulkSyncResult
	width        int
}

// NewSyncModel creates a progress view for kinds.
func NewSyncModel(ctx context.Context, runner BulkRunner, kinds []models.SyncKind, opts tasks.BulkSyncOpts) *SyncModel {
	rows := make(map[models.SyncKind]*syncRow, len(kinds))
	for _, k := range kinds {
		rows[k] = &syncRow{
			update: tasks.ProgressUpdate{Kind: k, Message: "Waiting..."},
			bar:    progress.New(progress.WithDefaultGradient()),
		}
	}
	return &SyncModel{ctx: ctx, runner: runner, kinds: kinds, opts: opts, rows: rows}
}

// Result returns the bulk result once every job finished.
func (m *SyncModel) Result() *tasks.BulkSyncResult {
	return m.result
}

// Init starts the jobs.
func (m *SyncModel) Init() tea.Cmd {
	return m.startSync()
}

// Update handles incoming messages and updates the model state.
func (m *SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for _, row := range m.rows {
			row.bar.Width = max(msg.Width-40, 10)
		}
		return m, nil

	case tea.KeyMsg:
		if m.result != nil || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			if row, ok := m.rows[update.Kind]; ok {
				row.update = update
			}
			return m, m.waitForProgress()
		case MsgSyncComplete:
			m.result = msg.data.(*tasks.BulkSyncResult)
			return m, nil
		}
	}
	return m, nil
}

// View renders a bar per kind, then the summary once finished.
func (m *SyncModel) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Syncing Microsoft data") + "\n")

	for _, k := range m.kinds {
		row := m.rows[k]
		status := row.update.Message
		switch row.update.Phase {
		case tasks.SyncCompleted:
			status = styles.ok.Render(status)
		case tasks.SyncFailed:
			status = styles.err.Render(status)
		}
		counts := ""
		if row.update.Total > 0 {
			counts = fmt.Sprintf(" %s/%s", humanize.Comma(int64(row.update.Step)), humanize.Comma(int64(row.update.Total)))
		}
		fmt.Fprintf(&b, "%-16s %s%s\n  %s\n", k.Title(), row.bar.ViewAs(row.update.Percent()), counts, status)
	}

	if m.result != nil {
		summary := fmt.Sprintf("\n%d/%d succeeded in %s", m.result.Succeeded, m.result.Total, m.result.Duration.Round(time.Millisecond))
		if m.result.Failed > 0 {
			b.WriteString(styles.err.Render(summary+fmt.Sprintf(", %d failed", m.result.Failed)) + "\n")
		} else {
			b.WriteString(styles.ok.Render(summary) + "\n")
		}
		b.WriteString(styles.help.Render("Press any key to exit") + "\n")
	}
	return b.String()
}

func (m *SyncModel) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.resultChan = make(chan *tasks.BulkSyncResult, 1)
	ch, done := m.progressChan, m.resultChan

	go func() {
		done <- m.runner.RunAll(m.ctx, m.kinds, m.opts, ch)
		close(ch)
	}()

	return m.waitForProgress()
}

func (m *SyncModel) waitForProgress() tea.Cmd {
	ch, done := m.progressChan, m.resultChan
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return syncCompleteMsg(<-done)
		}
		return progressUpdateMsg(update)
	}
}
