// Package server provides HTTP routing, middleware and the realtime relay.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] records method, path, status, bytes written and duration of every request.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Realtime Relay
//
// [RelayHandler] fans progress events out to subscribers over Server-Sent Events:
//
//	GET  /realtime/<channel>  streams "data: <json>" frames until the client disconnects
//	POST /realtime/<channel>  publishes a JSON body to every subscriber of the channel
//
// Delivery is in publish order per subscriber. A subscriber that falls too far behind is disconnected and is
// expected to reconnect, which realtime.Client does with backoff.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
