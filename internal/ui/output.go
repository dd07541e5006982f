// Package ui renders the shell's own output: status markers, echoed script
// lines, documentation, agent progress and confirmation prompts.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
	"github.com/abdul-hamid-achik/aish/internal/ui/highlight"
)

// Markers prefix every line the shell prints on its own behalf.
const (
	MarkerSys  = "[SYS]"
	MarkerCmd  = "[CMD]"
	MarkerLLM  = "[LLM]"
	MarkerTool = "[TOOL]"
)

// ANSI cursor control codes
const (
	CursorStart = "\r"      // Move cursor to start of line
	ClearLine   = "\033[2K" // Clear entire line
)

// maxResultLines caps how much of a tool result is echoed.
const maxResultLines = 10

var (
	sysStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	cmdStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	llmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	toolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	levelStyle = map[permissions.Level]lipgloss.Style{
		permissions.LevelRead:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		permissions.LevelContext: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		permissions.LevelExecute: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// Output writes styled shell output. Styling, markdown rendering and the
// spinner are only used on a terminal.
type Output struct {
	mu          sync.Mutex
	out         io.Writer
	errOut      io.Writer
	tty         bool
	highlighter *highlight.Highlighter
	markdown    *glamour.TermRenderer
	spinner     *Spinner
}

// NewOutput writes to the process's stdout and stderr.
func NewOutput() *Output {
	tty := term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	return NewOutputTo(os.Stdout, os.Stderr, tty)
}

// NewOutputTo writes to the given streams. tty enables styling.
func NewOutputTo(out, errOut io.Writer, tty bool) *Output {
	o := &Output{
		out:         out,
		errOut:      errOut,
		tty:         tty,
		highlighter: highlight.New(tty),
	}
	if tty {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			o.markdown = r
		}
	}
	o.spinner = NewSpinner(o)
	return o
}

// IsTTY returns true if the output is a terminal (not piped/redirected)
func (o *Output) IsTTY() bool {
	return o.tty
}

// UseColors returns true if colors are enabled
func (o *Output) UseColors() bool {
	return o.tty
}

// Spinner returns the output's spinner.
func (o *Output) Spinner() *Spinner {
	return o.spinner
}

// Stdout returns the stream normal output goes to.
func (o *Output) Stdout() io.Writer {
	return o.out
}

func (o *Output) style(s lipgloss.Style, text string) string {
	if !o.tty {
		return text
	}
	return s.Render(text)
}

func (o *Output) println(w io.Writer, marker string, s lipgloss.Style, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(w, o.style(s, marker)+" "+text)
}

// System prints a status line.
func (o *Output) System(msg string) {
	o.println(o.out, MarkerSys, sysStyle, msg)
}

// Systemf prints a formatted status line.
func (o *Output) Systemf(format string, args ...any) {
	o.System(fmt.Sprintf(format, args...))
}

// Warning prints a warning on stderr.
func (o *Output) Warning(msg string) {
	o.println(o.errOut, MarkerSys, warnStyle, msg)
}

// Error prints err's user-facing message on stderr.
func (o *Output) Error(err error) {
	o.println(o.errOut, MarkerSys, errStyle, "aish: "+aerr.GetUserMessage(err))
}

// Comment renders a documentation block of a script.
func (o *Output) Comment(markdown string) {
	text := markdown
	if o.markdown != nil {
		if rendered, err := o.markdown.Render(markdown); err == nil {
			text = strings.Trim(rendered, "\n")
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, text)
}

// Command echoes a script line before it runs.
func (o *Output) Command(lang, line string) {
	o.println(o.out, MarkerCmd, cmdStyle, o.highlighter.Shell(line, lang))
}

// Thinking shows the spinner while a model exchange is in flight.
func (o *Output) Thinking(active bool) {
	if active {
		o.spinner.Begin("thinking")
		return
	}
	o.spinner.End()
}

// Text shows model text that accompanies tool calls.
func (o *Output) Text(text string) {
	o.println(o.out, MarkerLLM, llmStyle, o.style(dimStyle, strings.TrimSpace(text)))
}

// ToolCall announces a tool invocation.
func (o *Output) ToolCall(name, description string) {
	o.println(o.out, MarkerTool, toolStyle, name+o.style(dimStyle, " - "+description))
}

// ToolResult echoes the head of a tool result.
func (o *Output) ToolResult(name, result string, isError bool) {
	if isError {
		o.println(o.out, MarkerTool, errStyle, name+": "+result)
		return
	}

	display := strings.TrimRight(result, "\n")
	if strings.HasPrefix(display, "{") {
		display = strings.TrimRight(o.highlighter.Highlight(display, "json"), "\n")
	}
	lines := strings.Split(display, "\n")
	if len(lines) > maxResultLines {
		lines = append(lines[:maxResultLines], "... (truncated)")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, o.style(toolStyle, MarkerTool)+" "+name+" ok")
	for _, line := range lines {
		if line == "" {
			continue
		}
		fmt.Fprintln(o.out, o.style(dimStyle, "  | ")+line)
	}
}

// Usage prints the token indicator.
func (o *Output) Usage(b contextstore.Budget) {
	s := dimStyle
	if b.Exhausted() {
		s = warnStyle
	}
	o.println(o.out, MarkerSys, sysStyle, o.style(s, b.Indicator()))
}

// Answer prints the final answer of an instruction.
func (o *Output) Answer(text string) {
	body := strings.TrimSpace(text)
	if o.markdown != nil {
		if rendered, err := o.markdown.Render(body); err == nil {
			body = strings.Trim(rendered, "\n")
		}
	}
	o.println(o.out, MarkerLLM, llmStyle, body)
}

// Failed reports an instruction that ended in Failed.
func (o *Output) Failed(err error) {
	o.println(o.errOut, MarkerSys, errStyle, "instruction failed: "+aerr.GetUserMessage(err))
}

// PermissionPrompt describes a tool call awaiting approval.
func (o *Output) PermissionPrompt(toolName string, level permissions.Level, description string) {
	ls, ok := levelStyle[level]
	if !ok {
		ls = warnStyle
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, o.style(toolStyle, MarkerTool)+" "+o.style(ls.Bold(true), "permission required: "+toolName))
	fmt.Fprintln(o.out, o.style(dimStyle, "  level: ")+o.style(ls, level.String()))
	if description != "" {
		fmt.Fprintln(o.out, o.style(dimStyle, "  action: ")+description)
	}
}
