package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Realtime RealtimeConfig `toml:"realtime"`
	Sync     SyncConfig     `toml:"sync"`
	Display  DisplayConfig  `toml:"display"`
	Calendar CalendarConfig `toml:"calendar"`
	Database DatabaseConfig `toml:"database"`
}

// ServerConfig contains CRM site settings and credentials.
type ServerConfig struct {
	BaseURL           string      `toml:"base_url"`
	APIKey            string      `toml:"api_key"`
	APISecret         string      `toml:"api_secret"`
	SessionFile       string      `toml:"session_file"`
	RequestsPerSecond float64     `toml:"requests_per_second"`
	Burst             int         `toml:"burst"`
	OAuth             OAuthConfig `toml:"oauth"`
}

// OAuthConfig contains client credentials for the CRM's OAuth provider.
type OAuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// Enabled reports whether client credentials are configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.TokenURL != ""
}

// RealtimeConfig contains the progress relay settings.
type RealtimeConfig struct {
	RelayURL   string `toml:"relay_url"`
	ListenAddr string `toml:"listen_addr"`
}

// SyncConfig contains sync tracking settings and cron specs keyed by sync kind.
type SyncConfig struct {
	StallTimeout int               `toml:"stall_timeout"`
	Schedules    map[string]string `toml:"schedules"`
}

// Stall returns the stall timeout as a [time.Duration]. Zero disables it.
func (s SyncConfig) Stall() time.Duration {
	if s.StallTimeout <= 0 {
		return 0
	}
	return time.Duration(s.StallTimeout) * time.Second
}

// DisplayConfig controls how CRM timestamps are rendered.
type DisplayConfig struct {
	SystemTimezone string `toml:"system_timezone"`
	Timezone       string `toml:"timezone"`
}

// Locations resolves the system and display time zones.
func (d DisplayConfig) Locations() (system, display *time.Location, err error) {
	system, err = loadLocation(d.SystemTimezone)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: system_timezone: %v", ErrInvalidConfig, err)
	}
	display, err = loadLocation(d.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: timezone: %v", ErrInvalidConfig, err)
	}
	return system, display, nil
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// CalendarConfig contains slot picker settings.
type CalendarConfig struct {
	HolidayFeed  string `toml:"holiday_feed"`
	HolidayColor string `toml:"holiday_color"`
	DefaultView  string `toml:"default_view"`
	Language     string `toml:"language"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
