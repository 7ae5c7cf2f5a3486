package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/olx/internal/models"
	"github.com/desertthunder/olx/internal/scheduling"
	"github.com/desertthunder/olx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
	err  error
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgEventsLoaded MsgKind = iota
	MsgDialogOpened
	MsgDialogChanged
	MsgSubmitted
	MsgEntriesLoaded
	MsgNotice
	MsgProgressUpdate
	MsgSyncComplete
)

// eventsLoadedMsg is the constructor for [MsgEventsLoaded]
func eventsLoadedMsg(events []models.ScheduledEvent, err error) Msg {
	return Msg{kind: MsgEventsLoaded, data: events, err: err}
}

// dialogOpenedMsg is the constructor for [MsgDialogOpened]
func dialogOpenedMsg(d *scheduling.Dialog, err error) Msg {
	return Msg{kind: MsgDialogOpened, data: d, err: err}
}

// dialogChangedMsg is the constructor for [MsgDialogChanged], sent after an edit made outside the form
func dialogChangedMsg(d scheduling.Dialog, err error) Msg {
	return Msg{kind: MsgDialogChanged, data: d, err: err}
}

// submittedMsg is the constructor for [MsgSubmitted], carrying the refreshed list on success
func submittedMsg(events []models.ScheduledEvent, err error) Msg {
	return Msg{kind: MsgSubmitted, data: events, err: err}
}

// entriesLoadedMsg is the constructor for [MsgEntriesLoaded]
func entriesLoadedMsg(entries []scheduling.Entry, err error) Msg {
	return Msg{kind: MsgEntriesLoaded, data: entries, err: err}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.BulkSyncResult) Msg {
	return Msg{kind: MsgSyncComplete, data: result}
}
