// Package config handles reading and writing ~/.emolyzer/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for config.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Oracle   OracleConfig   `yaml:"oracle"`
	History  HistoryConfig  `yaml:"history"`
	Policy   PolicyConfig   `yaml:"policy"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig locates the sqlite file.
type DatabaseConfig struct {
	Path    string `yaml:"path"`
	Timeout string `yaml:"timeout"` // per store call
}

// OracleConfig configures the reasoning oracle.
type OracleConfig struct {
	Provider    string  `yaml:"provider"` // gemini
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"` // per oracle call
}

// HistoryConfig sets the lookback windows used when aggregating history.
type HistoryConfig struct {
	MoodDays   int `yaml:"mood_days"`
	RewardDays int `yaml:"reward_days"`
	LeaveDays  int `yaml:"leave_days"`
}

// PolicyConfig controls when conversations open and how long they run.
type PolicyConfig struct {
	LowScoreThreshold     int `yaml:"low_score_threshold"` // single reading at/below triggers
	NegativeThreshold     int `yaml:"negative_threshold"`  // reading at/below counts as negative
	TrailingWindow        int `yaml:"trailing_window"`
	MaxFollowupsPerReason int `yaml:"max_followups_per_reason"`
	TranscriptWindow      int `yaml:"transcript_window"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty means stderr
}

const (
	configDir  = ".emolyzer"
	configFile = "config.yaml"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dbPath := "emolyzer.db"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "emolyzer.db")
	}

	return &Config{
		Database: DatabaseConfig{
			Path:    dbPath,
			Timeout: "5s",
		},
		Oracle: OracleConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
			Timeout:     "30s",
		},
		History: HistoryConfig{
			MoodDays:   10,
			RewardDays: 365,
			LeaveDays:  60,
		},
		Policy: PolicyConfig{
			LowScoreThreshold:     1,
			NegativeThreshold:     2,
			TrailingWindow:        3,
			MaxFollowupsPerReason: 3,
			TranscriptWindow:      20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Dir returns ~/.emolyzer
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}

// DefaultPath returns ~/.emolyzer/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillZeroes()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over the GOOGLE_API_KEY name used by older deployments
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Oracle.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Oracle.APIKey = key
	}
	if path := os.Getenv("EMOLYZER_DB"); path != "" {
		c.Database.Path = path
	}
	if level := os.Getenv("EMOLYZER_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// fillZeroes restores defaults for numeric policy values a partial file left at zero.
func (c *Config) fillZeroes() {
	def := DefaultConfig()
	if c.History.MoodDays <= 0 {
		c.History.MoodDays = def.History.MoodDays
	}
	if c.History.RewardDays <= 0 {
		c.History.RewardDays = def.History.RewardDays
	}
	if c.History.LeaveDays <= 0 {
		c.History.LeaveDays = def.History.LeaveDays
	}
	if c.Policy.TrailingWindow <= 0 {
		c.Policy.TrailingWindow = def.Policy.TrailingWindow
	}
	if c.Policy.MaxFollowupsPerReason <= 0 {
		c.Policy.MaxFollowupsPerReason = def.Policy.MaxFollowupsPerReason
	}
	if c.Policy.TranscriptWindow <= 0 {
		c.Policy.TranscriptWindow = def.Policy.TranscriptWindow
	}
}

// GetOracleTimeout returns the oracle timeout as a duration.
func (c *Config) GetOracleTimeout() time.Duration {
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetStoreTimeout returns the per-call store timeout as a duration.
func (c *Config) GetStoreTimeout() time.Duration {
	d, err := time.ParseDuration(c.Database.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// MoodWindow returns the mood lookback.
func (h HistoryConfig) MoodWindow() time.Duration {
	return time.Duration(h.MoodDays) * 24 * time.Hour
}

// RewardWindow returns the reward lookback.
func (h HistoryConfig) RewardWindow() time.Duration {
	return time.Duration(h.RewardDays) * 24 * time.Hour
}

// LeaveWindow returns the leave lookback.
func (h HistoryConfig) LeaveWindow() time.Duration {
	return time.Duration(h.LeaveDays) * 24 * time.Hour
}
