// Package models defines the domain types exchanged with the CRM's Microsoft integration.
//
// The package contains three categories of types:
//
// 1. Wire primitives that follow the CRM's JSON conventions
//   - [Timestamp] : naive "2006-01-02 15:04:05" datetimes in the site's system zone
//   - [Check] : booleans sent as 0/1
//
// 2. Scheduling entities
//   - [ScheduledEvent] : a confirmed event or a slot proposal linked to a CRM record
//   - [SlotProposal] : one candidate time range of a proposal
//   - [EventParticipant], [UserRow], [ParticipantRow] : participant rows of the dialogs
//   - [CalendarEntry], [Holiday] : busy events and holiday bands shown by the slot picker
//
// 3. Sync entities
//   - [SyncKind] : the five server-side sync jobs
//   - [SyncAck], [ProgressEvent] : start acknowledgement and realtime progress payloads
//   - [SyncJob] : persisted history of a tracked run
//
// Types that carry invariants implement [Model] and expose Validate.
package models
