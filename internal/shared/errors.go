package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrEventNotFound      = fmt.Errorf("event not found")
	ErrSyncJobNotFound    = fmt.Errorf("sync job not found")

	// Sync tracking errors
	ErrSyncRejected = fmt.Errorf("sync was not started")
	ErrSyncFailed   = fmt.Errorf("sync failed")
	ErrSyncStalled  = fmt.Errorf("sync stalled")

	// Scheduling state errors
	ErrDialogOpen     = fmt.Errorf("a dialog is already open")
	ErrNoDialog       = fmt.Errorf("no dialog is open")
	ErrWrongDialog    = fmt.Errorf("operation not supported by this dialog")
	ErrSubmitInFlight = fmt.Errorf("submit already in progress")
	ErrNotLoaded      = fmt.Errorf("events have not been loaded")
	ErrEventIndex     = fmt.Errorf("event index out of range")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
