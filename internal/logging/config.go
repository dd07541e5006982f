// Package logging provides a unified logging system for aish.
// It supports console output, file logging, and structured event tracing.
package logging

import (
	"os"
	"path/filepath"
	"strings"
)

// Level represents log severity levels.
type Level int

const (
	// LevelDebug logs everything, including verbose debugging information.
	LevelDebug Level = iota
	// LevelInfo logs informational messages and above.
	LevelInfo
	// LevelWarn logs warnings and errors only.
	LevelWarn
	// LevelError logs only error messages.
	LevelError
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level.
// Unknown strings map to LevelWarn, the shell's default.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelWarn
	}
}

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level for console output.
	Level Level

	// DebugMode enables full debug tracing to JSONL files.
	DebugMode bool

	// DebugLLM enables logging of full LLM request/response payloads.
	DebugLLM bool

	// DebugDir is the directory for debug trace files.
	DebugDir string

	// LogDir is the directory for session log files.
	// An empty LogDir disables the session log.
	LogDir string

	// Verbose enables debug-level console output without full tracing.
	Verbose bool
}

// DefaultDebugDir is the default directory for debug traces.
const DefaultDebugDir = "/tmp/aish-debug"

// DefaultLogDir returns ~/.aish/logs, or "" when the home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aish", "logs")
}

// ConfigFromEnv creates a Config from environment variables.
//
// Environment variables:
//   - AISH_DEBUG: Set to "1" to enable debug tracing
//   - AISH_DEBUG_LLM: Set to "1" to log full LLM payloads
//   - AISH_DEBUG_DIR: Override debug trace directory
//   - AISH_LOG_LEVEL: Console log level (debug, info, warn, error)
func ConfigFromEnv() Config {
	cfg := Config{
		Level:    LevelWarn,
		DebugDir: DefaultDebugDir,
		LogDir:   DefaultLogDir(),
	}

	if os.Getenv("AISH_DEBUG") == "1" {
		cfg.DebugMode = true
		cfg.Level = LevelDebug
	}

	if os.Getenv("AISH_DEBUG_LLM") == "1" {
		cfg.DebugLLM = true
	}

	if dir := os.Getenv("AISH_DEBUG_DIR"); dir != "" {
		cfg.DebugDir = dir
	}

	if level := os.Getenv("AISH_LOG_LEVEL"); level != "" {
		cfg.Level = ParseLevel(level)
	}

	return cfg
}

// WithVerbose returns a copy of the config with verbose mode enabled.
func (c Config) WithVerbose(enabled bool) Config {
	c.Verbose = enabled
	if enabled {
		c.Level = LevelDebug
	}
	return c
}

// WithLevel returns a copy of the config with the specified level.
func (c Config) WithLevel(level Level) Config {
	c.Level = level
	return c
}
