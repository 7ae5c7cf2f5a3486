package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/olx/internal/shared"
)

func TestNewHTTPClient(t *testing.T) {
	ctx := context.Background()

	t.Run("API Token", func(t *testing.T) {
		var auth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
		}))
		defer server.Close()

		client, mode, err := NewHTTPClient(ctx, shared.ServerConfig{APIKey: "key", APISecret: "secret"})
		if err != nil {
			t.Fatalf("NewHTTPClient() error = %v", err)
		}
		if mode != AuthToken {
			t.Errorf("expected token mode, got %q", mode)
		}

		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if auth != "token key:secret" {
			t.Errorf("expected token auth header, got %q", auth)
		}
	})

	t.Run("Half Token", func(t *testing.T) {
		_, _, err := NewHTTPClient(ctx, shared.ServerConfig{APIKey: "key"})
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("OAuth Client Credentials", func(t *testing.T) {
		var auth string
		mux := http.NewServeMux()
		mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"access_token": "abc", "token_type": "Bearer", "expires_in": 3600})
		})
		mux.HandleFunc("/api/method/ping", func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		cfg := shared.ServerConfig{
			APIKey:    "ignored",
			APISecret: "ignored",
			OAuth:     shared.OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL + "/token"},
		}
		client, mode, err := NewHTTPClient(ctx, cfg)
		if err != nil {
			t.Fatalf("NewHTTPClient() error = %v", err)
		}
		if mode != AuthOAuth {
			t.Errorf("oauth should win over api keys, got %q", mode)
		}

		resp, err := client.Get(server.URL + "/api/method/ping")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if auth != "Bearer abc" {
			t.Errorf("expected bearer token, got %q", auth)
		}
	})

	t.Run("Browser Session", func(t *testing.T) {
		var cookie, csrf string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie = r.Header.Get("Cookie")
			csrf = r.Header.Get("X-Frappe-CSRF-Token")
		}))
		defer server.Close()

		path := filepath.Join(t.TempDir(), "session.sh")
		os.WriteFile(path, []byte(`curl -H 'x-frappe-csrf-token: tok' -b 'sid=abc' https://crm.example.com`), 0644)

		client, mode, err := NewHTTPClient(ctx, shared.ServerConfig{SessionFile: path})
		if err != nil {
			t.Fatalf("NewHTTPClient() error = %v", err)
		}
		if mode != AuthSession {
			t.Errorf("expected session mode, got %q", mode)
		}

		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if cookie != "sid=abc" || csrf != "tok" {
			t.Errorf("session not replayed: cookie=%q csrf=%q", cookie, csrf)
		}
	})

	t.Run("Guest Session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "session.sh")
		os.WriteFile(path, []byte(`curl -b 'sid=Guest' https://crm.example.com`), 0644)

		_, _, err := NewHTTPClient(ctx, shared.ServerConfig{SessionFile: path})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("No Credentials", func(t *testing.T) {
		_, _, err := NewHTTPClient(ctx, shared.ServerConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
