// Package realtime delivers server-pushed progress events to subscribers.
//
// A [Hub] fans events out in-process. A [Client] attaches to the relay's event stream
// (GET /realtime/<channel>) and feeds frames into its own hub, so a [Subscription]
// behaves the same whichever side it was created on.
package realtime
