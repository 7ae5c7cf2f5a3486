// Package services talks to the CRM site running the Microsoft integration app.
//
// # RPC
//
// [APIService] posts JSON to /api/method/<dotted.path> and unwraps the {"message": ...} envelope.
// Non-2xx replies become a [*RemoteError] that unwraps to [shared.ErrAPIRequest] and, where the
// status maps to one, a more specific sentinel (401 [shared.ErrNotAuthenticated], 5xx
// [shared.ErrServiceUnavailable], ...). Requests are paced by a [RateLimiter].
//
// # Remote methods
//
// [CRMService] wraps the integration's whitelisted methods: starting the five sync jobs, listing a
// record's events and slot proposals, creating/rescheduling/cancelling/editing them, expanding
// Microsoft groups, and the generic lookups used to pre-fill dialogs.
//
// # Authentication
//
// [NewHTTPClient] picks OAuth2 client credentials, an API key pair, or a browser session captured
// with "Copy as cURL", in that order.
//
// # Holidays
//
// [HolidayFeed] parses an iCalendar feed once and answers window queries for the slot picker.
package services
