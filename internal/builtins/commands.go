package builtins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/aish/internal/jobs"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

func cd(c *Context, args []string) Result {
	if len(args) > 1 {
		c.errorf("cd: too many arguments")
		return Result{Status: 1}
	}

	home := c.Env.Get("HOME")
	target := ""
	if len(args) == 1 {
		target = args[0]
	}

	var output string
	switch {
	case target == "" || target == "~":
		if home == "" {
			c.errorf("cd: HOME not set")
			return Result{Status: 1}
		}
		target = home
	case strings.HasPrefix(target, "~/"):
		target = filepath.Join(home, target[2:])
	case target == "-":
		target = c.Env.Get("OLDPWD")
		if target == "" {
			c.errorf("cd: OLDPWD not set")
			return Result{Status: 1}
		}
		output = target + "\n"
	}

	old, _ := os.Getwd()
	if err := os.Chdir(target); err != nil {
		c.errorf("cd: %s: %v", target, unwrapPathError(err))
		return Result{Status: 1}
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = target
	}
	if old != "" {
		c.Env.Set("OLDPWD", old)
	}
	c.Env.Set("PWD", cwd)
	return Result{Output: output}
}

func pwd(c *Context, args []string) Result {
	dir, err := os.Getwd()
	if err != nil {
		c.errorf("pwd: %v", err)
		return Result{Status: 1}
	}
	return Result{Output: dir + "\n"}
}

func echo(c *Context, args []string) Result {
	newline, escapes := true, false

	i := 0
flags:
	for ; i < len(args); i++ {
		switch args[i] {
		case "-n":
			newline = false
		case "-e":
			escapes = true
		case "-E":
			escapes = false
		default:
			break flags
		}
	}

	words := append([]string(nil), args[i:]...)
	if escapes {
		for j, w := range words {
			words[j] = interpretEscapes(w)
		}
	}
	out := strings.Join(words, " ")
	if newline {
		out += "\n"
	}
	return Result{Output: out}
}

func interpretEscapes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case '\'':
			sb.WriteByte('\'')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func export(c *Context, args []string) Result {
	if len(args) == 0 {
		var sb strings.Builder
		for _, kv := range c.Env.Environ() {
			name, value, _ := strings.Cut(kv, "=")
			fmt.Fprintf(&sb, "export %s=%s\n", name, syntax.Quote(value))
		}
		return Result{Output: sb.String()}
	}

	status := 0
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		if !syntax.IsName(name) {
			c.errorf("export: `%s': not a valid identifier", arg)
			status = 1
			continue
		}
		if hasValue {
			c.Env.Set(name, value)
			continue
		}
		if _, ok := c.Env.Lookup(name); !ok {
			c.errorf("export: %s: not found", name)
			status = 1
		}
	}
	return Result{Status: status}
}

func unset(c *Context, args []string) Result {
	for _, name := range args {
		c.Env.Unset(name)
	}
	return Result{}
}

func printEnv(c *Context, args []string) Result {
	var sb strings.Builder
	for _, kv := range c.Env.Environ() {
		sb.WriteString(kv)
		sb.WriteByte('\n')
	}
	return Result{Output: sb.String()}
}

func exit(c *Context, args []string) Result {
	code := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			c.errorf("exit: %s: numeric argument required", args[0])
			code = 2
		} else {
			code = n & 0xff
		}
	}
	if c.Host != nil {
		c.Host.Exit(code)
	}
	return Result{Status: code}
}

func listJobs(c *Context, args []string) Result {
	if c.Jobs == nil {
		return Result{}
	}

	var sb strings.Builder
	finished := c.Jobs.Reap()
	lines := make(map[int]string)
	for _, tr := range finished {
		if tr.State.Terminal() {
			lines[tr.JobID] = tr.String()
		}
	}
	for _, j := range c.Jobs.List() {
		lines[j.ID] = j.Transition().String()
	}

	ids := make([]int, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		sb.WriteString(lines[id])
		sb.WriteByte('\n')
	}
	return Result{Output: sb.String()}
}

func resume(foreground bool) Handler {
	name := "bg"
	if foreground {
		name = "fg"
	}
	return func(c *Context, args []string) Result {
		if c.Jobs == nil || c.Host == nil {
			c.errorf("%s: no job control", name)
			return Result{Status: 1}
		}
		spec := ""
		if len(args) > 0 {
			spec = args[0]
		}
		id, err := c.Jobs.Resolve(spec)
		if err != nil {
			c.errorf("%s: %v", name, err)
			return Result{Status: 1}
		}
		if !foreground {
			if j, ok := c.Jobs.Get(id); ok && j.State == jobs.Running {
				c.errorf("bg: job %d already in background", id)
				return Result{}
			}
		}
		status, err := c.Host.Resume(id, foreground)
		if err != nil {
			c.errorf("%s: %v", name, err)
			return Result{Status: 1}
		}
		return Result{Status: status}
	}
}

func unwrapPathError(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
