package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./olx.db" {
			t.Errorf("expected database path ./olx.db, got %s", config.Database.Path)
		}

		if config.Server.BaseURL != "http://localhost:8000" {
			t.Errorf("expected base url http://localhost:8000, got %s", config.Server.BaseURL)
		}

		if config.Realtime.RelayURL != "http://127.0.0.1:9010" {
			t.Errorf("expected relay url http://127.0.0.1:9010, got %s", config.Realtime.RelayURL)
		}

		if config.Sync.Stall() != 0 {
			t.Errorf("expected stall timeout to be disabled, got %v", config.Sync.Stall())
		}

		if config.Sync.Schedules["events"] != "*/15 * * * *" {
			t.Errorf("expected events schedule */15 * * * *, got %q", config.Sync.Schedules["events"])
		}

		if config.Server.OAuth.Enabled() {
			t.Error("oauth should be disabled without client credentials")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
base_url = "https://crm.example.com"
api_key = "key"
api_secret = "secret"

[server.oauth]
client_id = "olx"
client_secret = "shh"

[sync]
stall_timeout = 90

[display]
system_timezone = "Asia/Kolkata"
timezone = "UTC"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.BaseURL != "https://crm.example.com" {
			t.Errorf("expected base url https://crm.example.com, got %s", config.Server.BaseURL)
		}

		if config.Sync.Stall() != 90*time.Second {
			t.Errorf("expected stall timeout 90s, got %v", config.Sync.Stall())
		}

		if !config.Server.OAuth.Enabled() {
			t.Error("oauth should be enabled: token_url falls back to the default")
		}

		if config.Database.Path != "./olx.db" {
			t.Errorf("unset keys should keep defaults, got database path %s", config.Database.Path)
		}

		system, display, err := config.Display.Locations()
		if err != nil {
			t.Fatalf("failed to resolve locations: %v", err)
		}
		if system.String() != "Asia/Kolkata" || display != time.UTC {
			t.Errorf("unexpected locations %v, %v", system, display)
		}
	})

	t.Run("LoadConfig Invalid", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nbase_url ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Locations Unknown Zone", func(t *testing.T) {
		d := DisplayConfig{SystemTimezone: "Mars/Olympus_Mons"}
		if _, _, err := d.Locations(); err == nil {
			t.Error("expected error for unknown zone")
		}
	})
}
