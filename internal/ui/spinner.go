package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SpinnerConfig holds configuration for a countdown display
type SpinnerConfig struct {
	Message     string        // Main message (e.g., "Rate limited")
	Reason      string        // Reason for waiting (e.g., "API returned 429")
	Duration    time.Duration // Total wait duration
	Attempt     int           // Current attempt number (1-based)
	MaxAttempts int           // Maximum number of attempts
}

// Spinner provides animated terminal feedback on stderr
type Spinner struct {
	output   *Output
	frames   []string
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a new spinner attached to an output
func NewSpinner(output *Output) *Spinner {
	dot := spinner.Dot
	frames := make([]string, len(dot.Frames))
	for i, f := range dot.Frames {
		frames[i] = strings.TrimSpace(f)
	}
	return &Spinner{
		output:   output,
		frames:   frames,
		interval: dot.FPS,
	}
}

// Begin animates "frame message..." until End is called. It does nothing
// when output is not a terminal or an animation is already running.
func (s *Spinner) Begin(message string) {
	if !s.output.IsTTY() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(message, s.stop, s.done)
}

// End stops the animation started by Begin and clears its line.
func (s *Spinner) End() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Spinner) animate(message string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer s.cleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(s.frames) {
		line := s.output.style(toolStyle, s.frames[i]) + " " + s.output.style(dimStyle, message+"...")
		s.write(ClearLine + CursorStart + line)
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}

// Start displays a spinner with countdown until duration elapses or context is cancelled.
// It blocks until complete.
func (s *Spinner) Start(ctx context.Context, cfg SpinnerConfig) error {
	// Skip spinner for very short waits to avoid flicker
	if cfg.Duration < 500*time.Millisecond {
		select {
		case <-time.After(cfg.Duration):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if !s.output.IsTTY() {
		return s.staticWait(ctx, cfg)
	}
	return s.animatedWait(ctx, cfg)
}

// staticWait displays a single line and waits (for non-TTY/piped output)
func (s *Spinner) staticWait(ctx context.Context, cfg SpinnerConfig) error {
	// Format: [SYS] Rate limited: waiting 45s (retry 2/5, API returned 429)
	msg := fmt.Sprintf("%s %s: waiting %s", MarkerSys, cfg.Message, formatDuration(cfg.Duration))
	if cfg.MaxAttempts > 0 {
		msg += fmt.Sprintf(" (retry %d/%d", cfg.Attempt, cfg.MaxAttempts)
		if cfg.Reason != "" {
			msg += ", " + cfg.Reason
		}
		msg += ")"
	} else if cfg.Reason != "" {
		msg += fmt.Sprintf(" (%s)", cfg.Reason)
	}
	s.write(msg + "\n")

	select {
	case <-time.After(cfg.Duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// animatedWait displays an animated spinner with countdown (for TTY mode)
func (s *Spinner) animatedWait(ctx context.Context, cfg SpinnerConfig) error {
	startTime := time.Now()
	frameIndex := 0
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.cleanup()

	for {
		remaining := max(cfg.Duration-time.Since(startTime), 0)

		line := s.buildStatusLine(s.frames[frameIndex], cfg.Message, cfg.Reason, remaining, cfg.Attempt, cfg.MaxAttempts)
		s.write(ClearLine + CursorStart + line)

		if remaining == 0 {
			return nil
		}

		select {
		case <-ticker.C:
			frameIndex = (frameIndex + 1) % len(s.frames)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// buildStatusLine constructs the animated status line
func (s *Spinner) buildStatusLine(frame, message, reason string, remaining time.Duration, attempt, maxAttempts int) string {
	// Format: ⣾ Rate limited | Retry 2/5 | API returned 429 | 45s remaining
	o := s.output
	sep := " " + o.style(dimStyle, "|") + " "

	line := o.style(toolStyle, frame) + " " + o.style(warnStyle, message)
	if maxAttempts > 0 {
		line += sep + fmt.Sprintf("Retry %d/%d", attempt, maxAttempts)
	}
	if reason != "" {
		line += sep + reason
	}
	line += sep + o.style(sysStyle, formatDuration(remaining)+" remaining")
	return line
}

func (s *Spinner) write(text string) {
	s.output.mu.Lock()
	defer s.output.mu.Unlock()
	fmt.Fprint(s.output.errOut, text)
}

// cleanup clears the spinner line completely
func (s *Spinner) cleanup() {
	if s.output.IsTTY() {
		s.write(ClearLine + CursorStart)
	}
}

// formatDuration formats a duration for display (45s, 1m30s, 5m00s)
func formatDuration(d time.Duration) string {
	d = max(d.Round(time.Second), 0)

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}
