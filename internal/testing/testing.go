// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MethodHandler answers one remote method. It returns the "message" payload, or an HTTP status and error body.
type MethodHandler func(args map[string]any) (message any, status int)

// CRMCall is a recorded remote method call.
type CRMCall struct {
	Method string
	Args   map[string]any
	Header http.Header
}

// CRMServer fakes the CRM's /api/method endpoint.
type CRMServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]MethodHandler
	calls    []CRMCall
}

// NewCRMServer starts a fake CRM. Unregistered methods answer 404. The server is closed with t.
func NewCRMServer(t *testing.T) *CRMServer {
	t.Helper()
	s := &CRMServer{handlers: make(map[string]MethodHandler)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for method.
func (s *CRMServer) Handle(method string, h MethodHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Reply registers a method that always answers with message.
func (s *CRMServer) Reply(method string, message any) {
	s.Handle(method, func(map[string]any) (any, int) { return message, http.StatusOK })
}

// Fail registers a method that always answers with status and a server message.
func (s *CRMServer) Fail(method string, status int, msg string) {
	s.Handle(method, func(map[string]any) (any, int) { return msg, status })
}

// Calls returns the recorded calls, optionally filtered to method.
func (s *CRMServer) Calls(method string) []CRMCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []CRMCall
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *CRMServer) serve(w http.ResponseWriter, r *http.Request) {
	method, ok := strings.CutPrefix(r.URL.Path, "/api/method/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	args := map[string]any{}
	if body, _ := io.ReadAll(r.Body); len(body) > 0 {
		_ = json.Unmarshal(body, &args)
	}

	s.mu.Lock()
	s.calls = append(s.calls, CRMCall{Method: method, Args: args, Header: r.Header.Clone()})
	h, ok := s.handlers[method]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"exc_type": "DoesNotExistError"})
		return
	}

	message, status := h(args)
	if status == 0 {
		status = http.StatusOK
	}
	if status >= 400 {
		w.WriteHeader(status)
		encoded, _ := json.Marshal(map[string]any{"message": message})
		json.NewEncoder(w).Encode(map[string]any{
			"exc_type":         "ValidationError",
			"_server_messages": mustJSON([]string{string(encoded)}),
		})
		return
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"message": message})
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
