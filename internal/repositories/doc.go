// Package repositories implements SQLite persistence for sync history and cached event lists.
//
// Key Implementations:
//   - [SyncJobRepository] : one row per tracked sync run, with status and progress
//   - [SyncJobRecorder] : adapts [SyncJobRepository] to the tracker's job recorder
//   - [EventCacheRepository] : the last refreshed event list of each CRM record
//
// Sequence numbers provide stable, human-readable ordering (e.g. sync run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
