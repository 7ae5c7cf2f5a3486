// Package scheduling runs the event dialogs of a CRM record.
//
// A [Controller] caches the record's events and moves through Idle, Open and Submitting.
// Only one dialog is open at a time: opening another returns [shared.ErrDialogOpen].
//
//   - Schedule: new event with slot proposals, organiser, calendar and participants
//   - Reschedule: new slot proposals for an existing entry, with a reason
//   - Cancel: cancels an entry, with a reason
//   - Edit: subject, description, meeting flag, location and participants of a confirmed event
//
// Proposals are added through a [Picker], which shows busy events and holiday bands for the visible window.
package scheduling
