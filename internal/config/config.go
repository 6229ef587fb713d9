// Package config handles reperage configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tOgg1/reperage/internal/models"
)

// Config is the root configuration structure for reperage.
type Config struct {
	// API settings for the message store client.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Chat settings for the polling panel.
	Chat ChatConfig `yaml:"chat" mapstructure:"chat"`

	// Identity settings for client-side storage.
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Server settings for reperaged.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// APIConfig contains message store client settings.
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds every HTTP request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ChatConfig contains chat polling settings.
type ChatConfig struct {
	// ForegroundInterval is the full fetch cadence while the panel is open.
	ForegroundInterval time.Duration `yaml:"foreground_interval" mapstructure:"foreground_interval"`

	// BackgroundInterval is the unread-badge cadence while the panel is closed.
	BackgroundInterval time.Duration `yaml:"background_interval" mapstructure:"background_interval"`

	// Perspective is the participant this client speaks for (fixer, production).
	Perspective string `yaml:"perspective" mapstructure:"perspective"`

	// AuthorName is the fallback display name used when sending.
	AuthorName string `yaml:"author_name" mapstructure:"author_name"`

	// Language selects the placeholder and notice strings (FR, EN).
	Language string `yaml:"language" mapstructure:"language"`

	// TimeZone is an IANA zone for time-of-day rendering; empty means local.
	TimeZone string `yaml:"time_zone" mapstructure:"time_zone"`
}

// IdentityConfig locates the client-side identity file.
type IdentityConfig struct {
	// StateFile stores the active report id, language and fixer name.
	StateFile string `yaml:"state_file" mapstructure:"state_file"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The chat panel logs here.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// ServerConfig contains reperaged settings.
type ServerConfig struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr" mapstructure:"addr"`

	// DatabasePath is the SQLite database file path.
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// TUIConfig contains chat panel display settings.
type TUIConfig struct {
	// Theme is the color theme name (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		Chat: ChatConfig{
			ForegroundInterval: 5 * time.Second,
			BackgroundInterval: 10 * time.Second,
			Perspective:        string(models.AuthorFixer),
			AuthorName:         "Fixer",
			Language:           "FR",
		},
		Identity: IdentityConfig{
			StateFile: filepath.Join(homeDir, ".config", "reperage", "state.json"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:          ":8080",
			DatabasePath:  filepath.Join(homeDir, ".local", "share", "reperage", "reperage.db"),
			BusyTimeoutMs: 5000,
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if c.Chat.ForegroundInterval < 100*time.Millisecond {
		return fmt.Errorf("chat.foreground_interval must be at least 100ms")
	}
	if c.Chat.BackgroundInterval < 100*time.Millisecond {
		return fmt.Errorf("chat.background_interval must be at least 100ms")
	}
	if _, err := models.ParseAuthorType(c.Chat.Perspective); err != nil {
		return fmt.Errorf("chat.perspective must be one of fixer, production")
	}
	if c.Chat.TimeZone != "" {
		if _, err := time.LoadLocation(c.Chat.TimeZone); err != nil {
			return fmt.Errorf("chat.time_zone: %w", err)
		}
	}

	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		return fmt.Errorf("tui.theme must be one of default, high-contrast")
	}

	if c.Server.BusyTimeoutMs < 0 {
		return fmt.Errorf("server.busy_timeout_ms must not be negative")
	}
	return nil
}

// Perspective returns the parsed chat perspective.
func (c *Config) Perspective() models.Perspective {
	p, err := models.ParseAuthorType(c.Chat.Perspective)
	if err != nil {
		return models.AuthorFixer
	}
	return p
}

// Location returns the configured time zone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Chat.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Chat.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// EnsureDirectories creates the directories the configured files live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Identity.StateFile),
		filepath.Dir(c.Server.DatabasePath),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
