// Package builtins implements the commands the shell runs itself.
package builtins

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/aish/internal/env"
	"github.com/abdul-hamid-achik/aish/internal/jobs"
)

// Host is the part of the interpreter builtins may drive.
type Host interface {
	// Resume continues job id in the foreground or background and
	// returns the resulting exit status.
	Resume(id int, foreground bool) (int, error)
	// Exit asks the interpreter to stop after the current line.
	Exit(code int)
}

// Context is what a handler sees: the Environment Table, the Job Table
// and the interpreter. Stderr is set per invocation.
type Context struct {
	Env  *env.Table
	Jobs *jobs.Table
	Host Host
	// LookPath resolves external commands for type. Optional.
	LookPath func(name string) (string, error)
	Stderr   io.Writer
}

func (c *Context) errorf(format string, args ...any) {
	if c.Stderr == nil {
		return
	}
	fmt.Fprintf(c.Stderr, "aish: "+format+"\n", args...)
}

// Result is a handler's exit status and standard output.
type Result struct {
	Status int
	Output string
}

// Handler runs one builtin. args excludes the command name.
type Handler func(c *Context, args []string) Result

// Builtin is a registered command.
type Builtin struct {
	Name    string
	Usage   string
	Summary string
	Run     Handler
}

// Table is the builtin command table.
type Table struct {
	ctx      *Context
	builtins map[string]Builtin
	mu       sync.RWMutex
}

// New creates a table with the default builtins bound to ctx.
func New(ctx *Context) *Table {
	if ctx == nil {
		ctx = &Context{}
	}
	if ctx.Env == nil {
		ctx.Env = env.New()
	}
	t := &Table{
		ctx:      ctx,
		builtins: make(map[string]Builtin),
	}

	t.Register(Builtin{Name: "cd", Usage: "cd [dir]", Summary: "Change the working directory (default $HOME)", Run: cd})
	t.Register(Builtin{Name: "pwd", Usage: "pwd", Summary: "Print the working directory", Run: pwd})
	t.Register(Builtin{Name: "echo", Usage: "echo [-neE] [arg ...]", Summary: "Print arguments", Run: echo})
	t.Register(Builtin{Name: "export", Usage: "export [NAME[=value] ...]", Summary: "Set a variable for this shell and its children", Run: export})
	t.Register(Builtin{Name: "unset", Usage: "unset NAME ...", Summary: "Remove variables", Run: unset})
	t.Register(Builtin{Name: "env", Usage: "env", Summary: "Print the environment", Run: printEnv})
	t.Register(Builtin{Name: "type", Usage: "type name ...", Summary: "Describe how a name would be run", Run: t.typeCmd})
	t.Register(Builtin{Name: "exit", Usage: "exit [n]", Summary: "Exit the shell", Run: exit})
	t.Register(Builtin{Name: "help", Usage: "help", Summary: "Show this help", Run: t.help})
	t.Register(Builtin{Name: "jobs", Usage: "jobs", Summary: "List background and stopped jobs", Run: listJobs})
	t.Register(Builtin{Name: "fg", Usage: "fg [%n]", Summary: "Resume a job in the foreground", Run: resume(true)})
	t.Register(Builtin{Name: "bg", Usage: "bg [%n]", Summary: "Resume a stopped job in the background", Run: resume(false)})

	return t
}

// Register adds or replaces a builtin.
func (t *Table) Register(b Builtin) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.builtins[b.Name] = b
}

// Lookup returns the handler for name.
func (t *Table) Lookup(name string) (Handler, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.builtins[name]
	return b.Run, ok
}

// Has reports whether name is a builtin.
func (t *Table) Has(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// List returns the builtins sorted by name.
func (t *Table) List() []Builtin {
	t.mu.RLock()
	defer t.mu.RUnlock()
	list := make([]Builtin, 0, len(t.builtins))
	for _, b := range t.builtins {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Exec runs argv[0] as a builtin with diagnostics sent to stderr.
func (t *Table) Exec(argv []string, stderr io.Writer) (int, string) {
	if len(argv) == 0 {
		return 0, ""
	}
	h, ok := t.Lookup(argv[0])
	if !ok {
		return 127, ""
	}
	c := *t.ctx
	c.Stderr = stderr
	res := h(&c, argv[1:])
	return res.Status, res.Output
}

func (t *Table) help(c *Context, args []string) Result {
	var sb strings.Builder
	sb.WriteString("aish: a shell that can also take instructions in plain language\n\n")
	sb.WriteString("Builtin commands:\n")
	for _, b := range t.List() {
		fmt.Fprintf(&sb, "  %-28s %s\n", b.Usage, b.Summary)
	}
	sb.WriteString("\nShell syntax:\n")
	sb.WriteString("  cmd | cmd        pipelines\n")
	sb.WriteString("  < > >>           redirections\n")
	sb.WriteString("  cmd &            run in the background\n")
	sb.WriteString("  $VAR ${VAR} $?   variable expansion\n")
	sb.WriteString("  !line            force a line to run as a command\n")
	sb.WriteString("\nAny other line is sent to the model as an instruction when an API key is set.\n")
	return Result{Output: sb.String()}
}

func (t *Table) typeCmd(c *Context, args []string) Result {
	if len(args) == 0 {
		c.errorf("type: usage: type name [name ...]")
		return Result{Status: 2}
	}

	var sb strings.Builder
	status := 0
	for _, name := range args {
		if t.Has(name) {
			fmt.Fprintf(&sb, "%s is a shell builtin\n", name)
			continue
		}
		if c.LookPath != nil {
			if path, err := c.LookPath(name); err == nil {
				fmt.Fprintf(&sb, "%s is %s\n", name, path)
				continue
			}
		}
		c.errorf("type: %s: not found", name)
		status = 1
	}
	return Result{Status: status, Output: sb.String()}
}
