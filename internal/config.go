package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/treesync/internal/snapshot"
	pkgconfig "github.com/starford/treesync/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the configuration shared by the seeder, the reporter
// and the stub tracker.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Tracker TrackerConfig     `yaml:"tracker"`
	Seed    SeedConfig        `yaml:"seed"`
	Report  ReportConfig      `yaml:"report"`
	Stub    StubConfig        `yaml:"stub"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Tracker.Validate(); err != nil {
		return err
	}
	if err := c.Seed.Validate(); err != nil {
		return err
	}
	if err := c.Report.Validate(); err != nil {
		return err
	}
	return c.Stub.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// TrackerConfig describes how the CLIs reach the task tracker.
type TrackerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the tracker configuration.
func (c *TrackerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// SeedConfig holds seeder configuration. An empty Plan seeds the built-in
// sample hierarchy.
type SeedConfig struct {
	Plan        string `yaml:"plan"`
	Concurrency int    `yaml:"concurrency"`
}

// Validate validates the seed configuration.
func (c *SeedConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(16)),
	)
}

// ReportConfig holds reporter configuration.
type ReportConfig struct {
	Snapshot string `yaml:"snapshot"`
	Domain   string `yaml:"domain"`
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Snapshot, validation.Required),
	)
}

// StubConfig holds the stub tracker server configuration.
type StubConfig struct {
	HTTP          HTTPConfig    `yaml:"http"`
	SQLite        SQLiteConfig  `yaml:"sqlite"`
	Auth          AuthConfig    `yaml:"auth"`
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Validate validates the stub configuration.
func (c *StubConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled": no authentication required. An empty mode means disabled.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values. The
// defaults let every command run without a config file against a local
// stub tracker.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
		},
		Tracker: TrackerConfig{
			BaseURL: "http://localhost:3210/api/v1",
			Token:   "dev-token",
			Timeout: 10 * time.Second,
		},
		Seed: SeedConfig{
			Concurrency: 1,
		},
		Report: ReportConfig{
			Snapshot: snapshot.DefaultPath,
		},
		Stub: StubConfig{
			HTTP: HTTPConfig{
				Port: 3210,
			},
			SQLite: SQLiteConfig{
				Path: "./treesync.db",
			},
			Auth: AuthConfig{
				Mode:  AuthModeToken,
				Token: "dev-token",
			},
			EventThrottle: 2 * time.Second,
		},
	}
}

// LoadConfig returns the defaults overlaid with the YAML file at path. A
// missing file keeps the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
