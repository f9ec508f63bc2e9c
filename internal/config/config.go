package config

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Placement modes
const (
	ModeCopy = "copy"
	ModeMove = "move"
)

// Missing-tag policies
const (
	OnMissingAbort   = "abort"
	OnMissingSkip    = "skip"
	OnMissingCollect = "collect"
)

// DefaultMaxPathLength is the classic Windows MAX_PATH limit.
const DefaultMaxPathLength = 260

// HistoryConfig represents job history configuration
type HistoryConfig struct {
	// Enabled records every sort job in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database (relative paths are relative to home)
	DBPath string `yaml:"db_path"`
}

// SortConfig holds defaults for the sort command
type SortConfig struct {
	// Mode is how files are placed: copy or move
	Mode string `yaml:"mode"`

	// OnMissingTag decides what happens when a record lacks a tag: abort, skip or collect
	OnMissingTag string `yaml:"on_missing_tag"`

	// MaxPathLength rejects jobs producing longer destination paths (0 = no limit)
	MaxPathLength int `yaml:"max_path_length"`

	// Substitute replaces characters in tag values that are not allowed in paths
	Substitute string `yaml:"substitute"`

	// Extensions limits the files considered (empty = every file)
	Extensions []string `yaml:"extensions"`
}

// Config represents dicomsort configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where job logs are written (empty = no log files)
	LogDir string `yaml:"log_dir"`

	// PatternsFile is the pattern registry file
	PatternsFile string `yaml:"patterns_file"`

	// History contains job history configuration
	History HistoryConfig `yaml:"history"`

	// Sort contains sort defaults
	Sort SortConfig `yaml:"sort"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		LogDir:       "logs",
		PatternsFile: "patterns.yaml",
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "history.db",
		},
		Sort: SortConfig{
			Mode:          ModeCopy,
			OnMissingTag:  OnMissingAbort,
			MaxPathLength: DefaultMaxPathLength,
			Substitute:    "_",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
// Keys present in the file override defaults; absent keys keep them.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfigFromHome loads config.yaml from home and resolves relative paths against it
func LoadConfigFromHome(home string) (*Config, error) {
	cfg, err := LoadConfig(ConfigPath(home))
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(home)
	return cfg, nil
}

// ResolvePaths makes relative file locations absolute under base
func (c *Config) ResolvePaths(base string) {
	c.LogDir = resolveIn(base, c.LogDir)
	c.PatternsFile = resolveIn(base, c.PatternsFile)
	c.History.DBPath = resolveIn(base, c.History.DBPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, mode *string, onMissingTag *string, noHistory *bool) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if mode != nil {
		c.Sort.Mode = *mode
	}
	if onMissingTag != nil {
		c.Sort.OnMissingTag = *onMissingTag
	}
	if noHistory != nil && *noHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	switch c.Sort.Mode {
	case ModeCopy, ModeMove:
	default:
		return fmt.Errorf("invalid sort.mode %q, must be one of: copy, move", c.Sort.Mode)
	}

	switch c.Sort.OnMissingTag {
	case OnMissingAbort, OnMissingSkip, OnMissingCollect:
	default:
		return fmt.Errorf("invalid sort.on_missing_tag %q, must be one of: abort, skip, collect", c.Sort.OnMissingTag)
	}

	if c.Sort.MaxPathLength < 0 {
		return fmt.Errorf("sort.max_path_length must be >= 0, got %d", c.Sort.MaxPathLength)
	}

	if utf8.RuneCountInString(c.Sort.Substitute) != 1 {
		return fmt.Errorf("sort.substitute must be exactly one character, got %q", c.Sort.Substitute)
	}
	if strings.ContainsAny(c.Sort.Substitute, `<>:"/\|?* .`) {
		return fmt.Errorf("sort.substitute %q is not allowed in file names", c.Sort.Substitute)
	}

	if c.PatternsFile == "" {
		return fmt.Errorf("patterns_file cannot be empty")
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}

// SubstituteRune returns the substitute character as a rune
func (c *Config) SubstituteRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Sort.Substitute)
	return r
}
