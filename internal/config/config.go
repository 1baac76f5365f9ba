// Package config handles configuration loading, validation, and management for kanatype.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/riffluv/manaby-typing-sub000/internal/logging"
	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
	"github.com/riffluv/manaby-typing-sub000/internal/score"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete kanatype configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Romaji table customization.
	Romaji RomajiConfig `toml:"romaji" json:"romaji" yaml:"romaji"`

	// Scoring configuration for speed and rank.
	Scoring ScoringConfig `toml:"scoring" json:"scoring" yaml:"scoring"`

	// Phrases configuration for the phrase source.
	Phrases PhrasesConfig `toml:"phrases" json:"phrases" yaml:"phrases"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination: "stdout", "stderr", "file", "both", "discard".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is the maximum age of rotated log files.
	MaxAgeDays int `toml:"max_age_days" json:"max_age_days" yaml:"max_age_days"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// RomajiConfig customizes the kana to romaji table.
type RomajiConfig struct {
	// Overrides replaces the spellings of a kana unit, preferred first.
	// An empty list removes the unit from the table.
	Overrides map[string][]string `toml:"overrides" json:"overrides" yaml:"overrides"`
}

// ScoringConfig holds speed and rank configuration.
type ScoringConfig struct {
	// Policy combines phrase speeds: "aggregate" or "averaged".
	Policy string `toml:"policy" json:"policy" yaml:"policy"`

	// Ranks is the ascending threshold table mapping KPM to a label.
	Ranks []score.Threshold `toml:"ranks" json:"ranks" yaml:"ranks"`
}

// PhrasesConfig selects the phrases to type.
type PhrasesConfig struct {
	// Path is a TOML, YAML or JSON phrase set. Empty uses the built-in set.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Loop restarts the list after the last phrase.
	Loop bool `toml:"loop" json:"loop" yaml:"loop"`

	// Shuffle randomizes the phrase order.
	Shuffle bool `toml:"shuffle" json:"shuffle" yaml:"shuffle"`

	// Seed fixes the shuffle order. Zero picks a random seed.
	Seed uint64 `toml:"seed" json:"seed" yaml:"seed"`

	// Watch reloads the phrase set when its file changes.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   logging.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Romaji: RomajiConfig{
			Overrides: map[string][]string{},
		},
		Scoring: ScoringConfig{
			Policy: score.PolicyAggregate.String(),
			Ranks:  score.DefaultRankTable(),
		},
	}
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Parse decodes configuration data in the format named by ext (".toml",
// ".json", ".yaml", ".yml"). Fields missing from data keep their defaults.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode config (unknown format): %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with KANATYPE_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Logging overrides
	if v := os.Getenv("KANATYPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KANATYPE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("KANATYPE_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
	if v := os.Getenv("KANATYPE_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	// Scoring overrides
	if v := os.Getenv("KANATYPE_SCORING_POLICY"); v != "" {
		c.Scoring.Policy = v
	}

	// Phrase overrides
	if v := os.Getenv("KANATYPE_PHRASES_PATH"); v != "" {
		c.Phrases.Path = v
	}
	if v := os.Getenv("KANATYPE_PHRASES_LOOP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Phrases.Loop = b
		}
	}
	if v := os.Getenv("KANATYPE_PHRASES_SHUFFLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Phrases.Shuffle = b
		}
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version: c.Version,
		Logging: c.Logging,
		Scoring: ScoringConfig{
			Policy: c.Scoring.Policy,
			Ranks:  append([]score.Threshold(nil), c.Scoring.Ranks...),
		},
		Phrases: c.Phrases,
	}
	clone.Romaji.Overrides = make(map[string][]string, len(c.Romaji.Overrides))
	for k, v := range c.Romaji.Overrides {
		clone.Romaji.Overrides[k] = append([]string(nil), v...)
	}
	return clone
}

// Table returns the default romaji table with the configured overrides
// applied.
func (c *Config) Table() romaji.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return romaji.DefaultTable().With(c.Romaji.Overrides)
}

// RankTable returns the configured ranks, or the default table when none
// are configured.
func (c *Config) RankTable() score.RankTable {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Scoring.Ranks) == 0 {
		return score.DefaultRankTable()
	}
	return append(score.RankTable(nil), c.Scoring.Ranks...)
}

// ScorePolicy parses the configured scoring policy.
func (c *Config) ScorePolicy() (score.Policy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return score.ParsePolicy(c.Scoring.Policy)
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() (*logging.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}

	return &logging.Config{
		Level:      level,
		Format:     format,
		Output:     c.Logging.Output,
		FilePath:   expandPath(c.Logging.FilePath),
		MaxSize:    int64(c.Logging.MaxSizeMB),
		MaxAge:     c.Logging.MaxAgeDays,
		MaxBackups: c.Logging.MaxBackups,
		Compress:   c.Logging.Compress,
		Component:  "kanatype",
	}, nil
}

// PhrasesPath returns the configured phrase set path with ~ expanded.
func (c *Config) PhrasesPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandPath(c.Phrases.Path)
}
