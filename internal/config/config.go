// ABOUTME: Configuration loading and parsing for notetaker-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete notetaker-gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Provider  ProviderConfig  `yaml:"provider"`
	Recording RecordingConfig `yaml:"recording"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig holds the recording-bot provider credentials and endpoint
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	BotName string `yaml:"bot_name"`
}

// RecordingConfig holds scheduling and polling knobs
type RecordingConfig struct {
	DefaultLeadMinutes int    `yaml:"default_lead_minutes"`
	VideoLayout        string `yaml:"video_layout"`
	Announcement       string `yaml:"announcement"`

	PollInterval       time.Duration `yaml:"-"`
	JoinAheadThreshold time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	PollIntervalRaw       string `yaml:"poll_interval"`
	JoinAheadThresholdRaw string `yaml:"join_ahead_threshold"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the file omits a value
const (
	DefaultBotName            = "Notetaker"
	DefaultLeadMinutes        = 10
	DefaultPollInterval       = 30 * time.Second
	DefaultJoinAheadThreshold = 5 * time.Minute
	DefaultAnnouncement       = "This meeting is being recorded."
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Provider.BotName == "" {
		c.Provider.BotName = DefaultBotName
	}
	if c.Recording.DefaultLeadMinutes == 0 {
		c.Recording.DefaultLeadMinutes = DefaultLeadMinutes
	}
	if c.Recording.PollInterval == 0 {
		c.Recording.PollInterval = DefaultPollInterval
	}
	if c.Recording.JoinAheadThreshold == 0 {
		c.Recording.JoinAheadThreshold = DefaultJoinAheadThreshold
	}
	if c.Recording.Announcement == "" {
		c.Recording.Announcement = DefaultAnnouncement
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Recording.DefaultLeadMinutes < 0 {
		return fmt.Errorf("recording.default_lead_minutes must not be negative")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Recording.PollIntervalRaw != "" {
		cfg.Recording.PollInterval, err = time.ParseDuration(cfg.Recording.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Recording.PollIntervalRaw, err)
		}
	}

	if cfg.Recording.JoinAheadThresholdRaw != "" {
		cfg.Recording.JoinAheadThreshold, err = time.ParseDuration(cfg.Recording.JoinAheadThresholdRaw)
		if err != nil {
			return fmt.Errorf("parsing join_ahead_threshold %q: %w", cfg.Recording.JoinAheadThresholdRaw, err)
		}
	}

	return nil
}
