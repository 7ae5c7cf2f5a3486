package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/olx/internal/shared"
)

// RemoteError is a failed remote method call.
type RemoteError struct {
	Method     string
	StatusCode int
	ExcType    string
	Messages   []string
}

func newRemoteError(method string, status int, body []byte) *RemoteError {
	e := &RemoteError{Method: method, StatusCode: status}

	var payload struct {
		ExcType        string `json:"exc_type"`
		Exception      string `json:"exception"`
		Message        any    `json:"message"`
		ServerMessages string `json:"_server_messages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
			e.Messages = []string{text}
		}
		return e
	}

	e.ExcType = payload.ExcType
	e.Messages = serverMessages(payload.ServerMessages)
	if len(e.Messages) == 0 {
		if msg, ok := payload.Message.(string); ok && msg != "" {
			e.Messages = []string{msg}
		} else if payload.Exception != "" {
			e.Messages = []string{payload.Exception}
		}
	}
	return e
}

// serverMessages decodes the doubly encoded _server_messages field.
func serverMessages(raw string) []string {
	if raw == "" {
		return nil
	}

	var encoded []string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return nil
	}

	messages := make([]string, 0, len(encoded))
	for _, item := range encoded {
		var m struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(item), &m); err == nil && m.Message != "" {
			messages = append(messages, m.Message)
		} else if item != "" {
			messages = append(messages, item)
		}
	}
	return messages
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s: %s returned %d", shared.ErrAPIRequest, e.Method, e.StatusCode)
	if e.ExcType != "" {
		msg += " " + e.ExcType
	}
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

// Message returns the server's user-facing message, or a generic one.
func (e *RemoteError) Message() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "\n")
	}
	return http.StatusText(e.StatusCode)
}

// Unwrap exposes [shared.ErrAPIRequest] plus a status-specific sentinel.
func (e *RemoteError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	if s := statusError(e.StatusCode); s != nil {
		errs = append(errs, s)
	}
	return errs
}

func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case http.StatusForbidden:
		return shared.ErrAuthFailed
	case http.StatusNotFound:
		return shared.ErrNotFound
	case http.StatusTooManyRequests:
		return shared.ErrServiceUnavailable
	case http.StatusExpectationFailed, http.StatusUnprocessableEntity:
		return shared.ErrInvalidInput
	default:
		if status >= 500 {
			return shared.ErrServiceUnavailable
		}
		return nil
	}
}
