package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values load from a YAML file,
// then environment variables prefixed CONVOFLOW_ override individual
// fields. A .env file in the working directory is honored when present.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Flows   FlowsConfig   `yaml:"flows"`
	Bot     BotConfig     `yaml:"bot"`
	Ignore  IgnoreConfig  `yaml:"ignore"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	Output string `yaml:"output" envconfig:"LOG_OUTPUT"`
}

// HTTPConfig tunes the outbound client used by http_request nodes.
type HTTPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"HTTP_TIMEOUT_SECONDS"`
	UserAgent      string `yaml:"user_agent" envconfig:"HTTP_USER_AGENT"`
}

// Timeout returns the request timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// StorageConfig selects the session store backend.
type StorageConfig struct {
	Backend    string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	RedisURL   string `yaml:"redis_url" envconfig:"REDIS_URL"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// FlowsConfig points at the directory of flow documents.
type FlowsConfig struct {
	Dir string `yaml:"dir" envconfig:"FLOWS_DIR"`
}

// BotConfig identifies the bot so it can skip its own events.
type BotConfig struct {
	UserID string `yaml:"user_id" envconfig:"BOT_USER_ID"`
}

// IgnoreConfig lists regex patterns for users and rooms whose events are
// dropped before reaching any flow.
type IgnoreConfig struct {
	UserIDs []string `yaml:"user_ids"`
	RoomIDs []string `yaml:"room_ids"`

	userPatterns []*regexp.Regexp
	roomPatterns []*regexp.Regexp
}

// Default returns a configuration with working defaults for local use.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console", Output: "stderr"},
		HTTP:    HTTPConfig{TimeoutSeconds: 10, UserAgent: "convoflow"},
		Storage: StorageConfig{Backend: "memory", SQLitePath: "convoflow.db"},
		Flows:   FlowsConfig{Dir: "flows"},
	}
}

// Load reads configuration from the given YAML file (skipped when path is
// empty), applies .env, then environment overrides, then compiles ignore
// patterns. The returned config is ready to use.
func Load(path string) (*Config, error) {
	// Missing .env is not an error, only a malformed one is.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("CONVOFLOW", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ignore.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage backend %q requires redis_url", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http timeout must be positive, got %d", c.HTTP.TimeoutSeconds)
	}
	return nil
}

func (i *IgnoreConfig) compile() error {
	i.userPatterns = make([]*regexp.Regexp, 0, len(i.UserIDs))
	for _, p := range i.UserIDs {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid ignore user pattern %q: %w", p, err)
		}
		i.userPatterns = append(i.userPatterns, re)
	}
	i.roomPatterns = make([]*regexp.Regexp, 0, len(i.RoomIDs))
	for _, p := range i.RoomIDs {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid ignore room pattern %q: %w", p, err)
		}
		i.roomPatterns = append(i.roomPatterns, re)
	}
	return nil
}

// IgnoreUser reports whether events from the given user ID are dropped.
// The bot always ignores itself.
func (c *Config) IgnoreUser(userID string) bool {
	if userID != "" && userID == c.Bot.UserID {
		return true
	}
	for _, re := range c.Ignore.userPatterns {
		if re.MatchString(userID) {
			return true
		}
	}
	return false
}

// IgnoreRoom reports whether events in the given room ID are dropped.
func (c *Config) IgnoreRoom(roomID string) bool {
	for _, re := range c.Ignore.roomPatterns {
		if re.MatchString(roomID) {
			return true
		}
	}
	return false
}
