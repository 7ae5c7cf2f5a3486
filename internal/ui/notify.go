package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/scheduling"
)

var (
	_ scheduling.Notifier = (*Notifier)(nil)
	_ scheduling.Trigger  = (*actionTrigger)(nil)
)

type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeSuccess
	noticeError
)

type notice struct {
	level noticeLevel
	text  string
}

func (n notice) render() string {
	switch n.level {
	case noticeSuccess:
		return styles.ok.Render(n.text)
	case noticeError:
		return styles.err.Render(n.text)
	default:
		return styles.help.Render(n.text)
	}
}

// Notifier delivers controller toasts to the TUI as [MsgNotice] messages.
//
// Pass it as [scheduling.Options.Notifier]. Toasts sent while the buffer is full are dropped.
type Notifier struct {
	ch chan notice
}

// NewNotifier creates a notifier buffering up to size toasts.
func NewNotifier(size int) *Notifier {
	if size <= 0 {
		size = 16
	}
	return &Notifier{ch: make(chan notice, size)}
}

func (n *Notifier) Success(msg string) { n.send(notice{level: noticeSuccess, text: msg}) }
func (n *Notifier) Info(msg string)    { n.send(notice{level: noticeInfo, text: msg}) }
func (n *Notifier) Error(err error)    { n.send(notice{level: noticeError, text: err.Error()}) }

func (n *Notifier) send(v notice) {
	select {
	case n.ch <- v:
	default:
	}
}

// wait blocks for the next toast.
func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-n.ch)
	}
}

// actionTrigger is the key binding that opened a dialog.
type actionTrigger struct {
	disabled atomic.Bool
}

func (t *actionTrigger) SetDisabled(disabled bool) { t.disabled.Store(disabled) }
func (t *actionTrigger) Disabled() bool            { return t.disabled.Load() }
