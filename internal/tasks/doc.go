// Package tasks starts server-side Outlook sync jobs and follows their realtime progress.
//
// # Core Operations
//
//  1. [Tracker.Run] : Start and follow one job
//     - Calls the job's start method and checks the acknowledgement
//     - Subscribes to the acknowledged track_on channel
//     - Unsubscribes once progress reaches total, on a reported error, on stall, or on cancellation
//
//  2. [Scheduler] : Run jobs on cron schedules
//     - One entry per configured kind
//     - A tick is skipped while the previous run of the same kind is still going
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Job History
//
// The optional [JobRecorder] interface persists each job (repositories.SyncJobRecorder).
// Recording errors are logged and do not interrupt tracking.
package tasks
