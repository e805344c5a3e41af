// Package config loads and validates engine configuration. Configuration is
// TOML on disk with defaults applied first, then file values, then
// environment overrides (VIBE_DRY_RUN, VIBE_AUDIT). Policy rule tables are a
// fixed, compiled set and are deliberately not configurable here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Error definitions
var (
	// ErrInvalidTimeout is returned for non-positive timeout values
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidRetryCount is returned for negative retry counts
	ErrInvalidRetryCount = errors.New("retry count cannot be negative")
)

// Environment variable names honored by the engine.
const (
	// EnvDryRun enables dry-run mode when set to a truthy value
	EnvDryRun = "VIBE_DRY_RUN"

	// EnvAudit disables audit logging when set to a falsy value
	EnvAudit = "VIBE_AUDIT"
)

// StateDirName is the workspace state directory holding the audit log.
const StateDirName = ".vibe"

// Config is the engine configuration.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Executor  ExecutorConfig  `toml:"executor"`
	Audit     AuditConfig     `toml:"audit"`
	Logging   LoggingConfig   `toml:"logging"`
}

// WorkspaceConfig locates the workspace the engine operates in.
type WorkspaceConfig struct {
	Root   string `toml:"root"`
	DryRun bool   `toml:"dry_run"`
}

// ExecutorConfig holds process execution defaults.
type ExecutorConfig struct {
	// TimeoutSeconds bounds one execution attempt.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// MaxOutputBytes caps captured stdout/stderr per stream.
	MaxOutputBytes int `toml:"max_output_bytes"`

	// RetryCount is the default number of additional attempts on failure.
	RetryCount int `toml:"retry_count"`

	// RetryDelayMS seeds the exponential backoff between attempts.
	RetryDelayMS int `toml:"retry_delay_ms"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled bool `toml:"enabled"`

	// Path overrides the default <workspace>/.vibe/audit.log location.
	Path string `toml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Root: "."},
		Executor: ExecutorConfig{
			TimeoutSeconds: 120,
			MaxOutputBytes: 1 << 20,
			RetryCount:     0,
			RetryDelayMS:   500,
		},
		Audit:   AuditConfig{Enabled: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads TOML configuration from path on top of the defaults, then
// applies environment overrides. A missing file is not an error: defaults
// plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(content, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Defaults apply.
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies VIBE_* environment overrides.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDryRun); ok {
		c.Workspace.DryRun = parseBool(v, c.Workspace.DryRun)
	}
	if v, ok := os.LookupEnv(EnvAudit); ok {
		c.Audit.Enabled = parseBool(v, c.Audit.Enabled)
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Executor.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: executor.timeout_seconds = %d", ErrInvalidTimeout, c.Executor.TimeoutSeconds)
	}
	if c.Executor.RetryCount < 0 {
		return fmt.Errorf("%w: executor.retry_count = %d", ErrInvalidRetryCount, c.Executor.RetryCount)
	}
	return nil
}

// Timeout returns the executor default timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Executor.TimeoutSeconds) * time.Second
}

// RetryDelay returns the backoff seed as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Executor.RetryDelayMS) * time.Millisecond
}

// AuditPath returns the audit log path, defaulting to
// <workspace>/.vibe/audit.log.
func (c *Config) AuditPath() string {
	if c.Audit.Path != "" {
		return c.Audit.Path
	}
	return filepath.Join(c.Workspace.Root, StateDirName, "audit.log")
}

func parseBool(s string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}
