package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileWriter writes log messages to a session log file.
// It always logs all levels regardless of console settings.
type FileWriter struct {
	mu       sync.Mutex
	file     *os.File
	logDir   string
	logPath  string
	initOnce sync.Once
	initErr  error
}

// NewFileWriter creates a new file writer.
// Initialization is lazy: the directory and file are only created on first
// write, so a shell that never logs leaves nothing behind.
func NewFileWriter(logDir string) *FileWriter {
	return &FileWriter{
		logDir: logDir,
	}
}

func (f *FileWriter) init() error {
	f.initOnce.Do(func() {
		f.initErr = f.doInit()
	})
	return f.initErr
}

func (f *FileWriter) doInit() error {
	if f.logDir == "" {
		return nil
	}

	if err := os.MkdirAll(f.logDir, 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	// Concurrent shells each get their own file.
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(f.logDir, fmt.Sprintf("session_%s_%d.log", timestamp, os.Getpid()))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}

	f.file = file
	f.logPath = logPath

	cwd, _ := os.Getwd()
	_, _ = fmt.Fprintf(file, "=== Session started at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(file, "Working directory: %s\n", cwd)
	_, _ = fmt.Fprintf(file, "Shell pid: %d\n", os.Getpid())
	_, _ = fmt.Fprintf(file, "---\n")

	latestPath := filepath.Join(f.logDir, "latest.log")
	_ = os.Remove(latestPath)
	_ = os.Symlink(filepath.Base(logPath), latestPath)

	return nil
}

// Write writes a log message to the file.
// All levels are written regardless of any level settings.
func (f *FileWriter) Write(level Level, prefix, msg string, fields ...Field) error {
	if err := f.init(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	line := formatLine(time.Now(), fmt.Sprintf("%-5s", level.String()), prefix, msg, fields)
	_, err := f.file.WriteString(line)
	return err
}

// GetPath returns the path to the current log file.
// Returns empty string if not initialized.
func (f *FileWriter) GetPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logPath
}

// Close closes the file writer.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file != nil {
		_, _ = fmt.Fprintf(f.file, "---\n=== Session ended at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
		err := f.file.Close()
		f.file = nil
		return err
	}
	return nil
}
