package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var levelStyles = map[Level]lipgloss.Style{
	LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// ConsoleWriter writes human-readable log messages to stderr.
// It respects log level filtering.
type ConsoleWriter struct {
	mu       sync.Mutex
	output   io.Writer
	color    bool
	minLevel Level
	prefix   string
}

// NewConsoleWriter creates a new console writer with the given minimum level.
// Levels are colored only when stderr is a terminal.
func NewConsoleWriter(minLevel Level) *ConsoleWriter {
	return &ConsoleWriter{
		output:   os.Stderr,
		color:    term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "",
		minLevel: minLevel,
	}
}

// SetOutput sets the output destination (mainly for testing).
// Color is turned off for anything that is not the original stderr.
func (c *ConsoleWriter) SetOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = w
	c.color = false
}

// SetLevel sets the minimum log level.
func (c *ConsoleWriter) SetLevel(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minLevel = level
}

// GetLevel returns the current minimum log level.
func (c *ConsoleWriter) GetLevel() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minLevel
}

// Write writes a log message if the level meets the minimum.
// Format: "15:04:05 LEVEL [prefix] message key=value key=value"
func (c *ConsoleWriter) Write(level Level, prefix, msg string, fields ...Field) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < c.minLevel {
		return
	}

	levelStr := fmt.Sprintf("%-5s", level.String())
	if c.color {
		levelStr = levelStyles[level].Render(levelStr)
	}

	line := formatLine(time.Now(), levelStr, prefix, msg, fields)
	_, _ = io.WriteString(c.output, line)
}

// formatLine renders one log line shared by the console and file writers.
func formatLine(ts time.Time, levelStr, prefix, msg string, fields []Field) string {
	var sb strings.Builder
	sb.WriteString(ts.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(levelStr)
	sb.WriteString(" ")

	if prefix != "" {
		sb.WriteString("[")
		sb.WriteString(prefix)
		sb.WriteString("] ")
	}

	sb.WriteString(msg)

	for _, f := range fields {
		sb.WriteString(" ")
		sb.WriteString(f.Key)
		sb.WriteString("=")
		sb.WriteString(formatValue(f.Value))
	}

	sb.WriteString("\n")
	return sb.String()
}

// formatValue formats a value for log output.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		// Quote strings that contain spaces
		if strings.ContainsAny(val, " \t\n") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case error:
		if val == nil {
			return "<nil>"
		}
		return fmt.Sprintf("%q", val.Error())
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Enabled returns true if the given level would be logged.
func (c *ConsoleWriter) Enabled(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return level >= c.minLevel
}
