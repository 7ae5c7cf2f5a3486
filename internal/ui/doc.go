// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The scheduling TUI provides a multi-view workflow over one CRM record:
//  1. [EventsView] : Browse the record's events and slot proposals
//  2. [DialogView] : Fill in a Schedule, Reschedule, Cancel or Edit dialog
//  3. [PickerView] : Pick proposed slots on a calendar of busy events and holidays
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Remote calls run as commands against a [scheduling.Controller]; its toasts arrive through a [Notifier].
//
// [SyncModel] renders one progress bar per Microsoft sync job, fed by a channel of [tasks.ProgressUpdate].
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
