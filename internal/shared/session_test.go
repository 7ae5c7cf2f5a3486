package shared

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseBrowserSession(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantHeaders map[string]string
		wantCookie  string
		wantErr     bool
	}{
		{
			name:        "csrf header with single quotes",
			curlCmd:     `curl -H 'X-Frappe-CSRF-Token: abc123' https://crm.example.com`,
			wantHeaders: map[string]string{"X-Frappe-Csrf-Token": "abc123"},
		},
		{
			name:        "authorization with double quotes",
			curlCmd:     `curl -H "Authorization: token key:secret" https://crm.example.com`,
			wantHeaders: map[string]string{"Authorization": "token key:secret"},
		},
		{
			name:        "noise headers are dropped",
			curlCmd:     `curl -H 'accept-language: en-US' -H 'sec-ch-ua: "Chromium"' -H 'x-frappe-csrf-token: t' https://crm.example.com`,
			wantHeaders: map[string]string{"X-Frappe-Csrf-Token": "t"},
		},
		{
			name:        "cookie in -b flag",
			curlCmd:     `curl -b 'sid=abc; system_user=yes' https://crm.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "sid=abc; system_user=yes",
		},
		{
			name:        "cookie in header",
			curlCmd:     `curl -H 'cookie: sid=abc' https://crm.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "sid=abc",
		},
		{
			name:        "-b cookie takes precedence over header cookie",
			curlCmd:     `curl -H 'Cookie: sid=old' --cookie "sid=new" https://crm.example.com`,
			wantHeaders: map[string]string{},
			wantCookie:  "sid=new",
		},
		{
			name: "multiline with backslashes",
			curlCmd: `curl 'https://crm.example.com/api/method/frappe.auth.get_logged_user' \
  -H 'accept: application/json' \
  -H 'cookie: sid=abc; full_name=Jane' \
  -H 'x-frappe-csrf-token: tok'`,
			wantHeaders: map[string]string{"X-Frappe-Csrf-Token": "tok"},
			wantCookie:  "sid=abc; full_name=Jane",
		},
		{
			name:    "no headers or cookies",
			curlCmd: `curl https://crm.example.com`,
			wantErr: true,
		},
		{
			name:    "only noise headers",
			curlCmd: `curl -H 'accept: */*' https://crm.example.com`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBrowserSession(tc.curlCmd)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseBrowserSession() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				if !errors.Is(err, ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
				return
			}

			if len(got.Headers) != len(tc.wantHeaders) {
				t.Errorf("headers = %v, want %v", got.Headers, tc.wantHeaders)
			}
			for key, want := range tc.wantHeaders {
				if got.Headers[key] != want {
					t.Errorf("header[%s] = %q, want %q", key, got.Headers[key], want)
				}
			}
			if got.Cookie != tc.wantCookie {
				t.Errorf("cookie = %q, want %q", got.Cookie, tc.wantCookie)
			}
		})
	}
}

func TestBrowserSession(t *testing.T) {
	t.Run("SID", func(t *testing.T) {
		s := &BrowserSession{Cookie: "full_name=Jane; sid=abc123; user_id=jane"}
		if s.SID() != "abc123" {
			t.Errorf("SID() = %q, want abc123", s.SID())
		}
		if s.Guest() {
			t.Error("session with sid should not be a guest")
		}
	})

	t.Run("Guest", func(t *testing.T) {
		for _, cookie := range []string{"", "sid=Guest", "user_id=Guest"} {
			s := &BrowserSession{Cookie: cookie}
			if !s.Guest() {
				t.Errorf("cookie %q should be a guest session", cookie)
			}
		}
	})

	t.Run("Apply", func(t *testing.T) {
		s := &BrowserSession{
			Headers: map[string]string{"X-Frappe-Csrf-Token": "tok", "Authorization": "token a:b"},
			Cookie:  "sid=abc",
		}
		req, _ := http.NewRequest(http.MethodGet, "http://crm.example.com", nil)
		req.Header.Set("Authorization", "Bearer kept")

		s.Apply(req)

		if req.Header.Get("Authorization") != "Bearer kept" {
			t.Errorf("existing header overwritten: %q", req.Header.Get("Authorization"))
		}
		if req.Header.Get("X-Frappe-CSRF-Token") != "tok" {
			t.Errorf("csrf header not applied")
		}
		if req.Header.Get("Cookie") != "sid=abc" {
			t.Errorf("cookie not applied")
		}
	})

	t.Run("String", func(t *testing.T) {
		s := &BrowserSession{
			Headers: map[string]string{"X-Frappe-Csrf-Token": "tok", "Authorization": "token a:b"},
			Cookie:  "sid=abc",
		}
		want := "Authorization: token a:b\nX-Frappe-Csrf-Token: tok\nCookie: sid=abc"
		if got := s.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	})
}

func TestLoadBrowserSession(t *testing.T) {
	t.Run("successful file parse", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.sh")
		cmd := `curl -H 'x-frappe-csrf-token: tok' -b 'sid=abc' https://crm.example.com`
		if err := os.WriteFile(path, []byte(cmd), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		s, err := LoadBrowserSession(path)
		if err != nil {
			t.Fatalf("LoadBrowserSession() error = %v", err)
		}
		if s.SID() != "abc" {
			t.Errorf("SID() = %q, want abc", s.SID())
		}
	})

	t.Run("file does not exist", func(t *testing.T) {
		_, err := LoadBrowserSession("/nonexistent/session.sh")
		if err == nil || !strings.Contains(err.Error(), "failed to read session file") {
			t.Errorf("expected read error, got %v", err)
		}
	})
}
