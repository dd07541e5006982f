// Package shell is the top-level interpreter: it owns the Environment
// Table, the Job Table and the Context Store, routes input lines to the
// executor or the agent, and runs interactive sessions and scripts.
package shell

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/spf13/afero"

	"github.com/abdul-hamid-achik/aish/internal/agent"
	"github.com/abdul-hamid-achik/aish/internal/builtins"
	"github.com/abdul-hamid-achik/aish/internal/config"
	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	"github.com/abdul-hamid-achik/aish/internal/env"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/executor"
	"github.com/abdul-hamid-achik/aish/internal/jobs"
	"github.com/abdul-hamid-achik/aish/internal/llm"
	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
	"github.com/abdul-hamid-achik/aish/internal/script"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
	"github.com/abdul-hamid-achik/aish/internal/ui"
)

// Reserved exit statuses of the interpreter itself.
const (
	ExitSyntax      = script.StatusSyntax
	ExitAgentFailed = script.StatusAgentFailed
	ExitNoScript    = 127
	ExitInterrupted = 128 + 2
)

// Options configures an Interpreter.
type Options struct {
	Config *config.Config
	// LLM is the model client. Nil runs every line as a command.
	LLM    llm.LLMClient
	Output *ui.Output
	// Input supplies interactive lines and confirmation answers.
	Input ui.LineReader
	// Stdio defaults to the process's own streams.
	Stdio executor.Stdio
	// Interactive selects session semantics: confirmation prompts, a kept
	// transcript and status 1 rather than 3 for a failed instruction.
	Interactive bool
	// JobControl hands the terminal on stdin to foreground pipelines.
	JobControl bool
	// Environ seeds the Environment Table. Defaults to os.Environ().
	Environ []string
	// Fs backs read_file. Defaults to the OS filesystem.
	Fs afero.Fs
}

// Interpreter runs lines, instructions and scripts against one set of
// tables. It is driven from a single goroutine; only the signal watcher
// touches it concurrently, through cancelInstruction.
type Interpreter struct {
	cfg         *config.Config
	env         *env.Table
	jobs        *jobs.Table
	exec        *executor.Executor
	builtins    *builtins.Table
	store       *contextstore.Store
	agent       *agent.Agent
	out         *ui.Output
	input       ui.LineReader
	stdio       executor.Stdio
	term        *executor.Terminal
	interactive bool
	log         *logging.Logger

	lastStatus int
	exiting    bool
	exitCode   int

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds an interpreter and its tables.
func New(opts Options) *Interpreter {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Output == nil {
		opts.Output = ui.NewOutput()
	}
	if opts.Stdio == (executor.Stdio{}) {
		opts.Stdio = executor.StdStreams()
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ()
	}

	in := &Interpreter{
		cfg:         cfg,
		env:         env.FromEnviron(opts.Environ),
		jobs:        jobs.NewTable(nil),
		out:         opts.Output,
		input:       opts.Input,
		stdio:       opts.Stdio,
		interactive: opts.Interactive,
		log:         logging.Global().WithPrefix("shell"),
	}

	if opts.JobControl {
		in.term = in.takeTerminal()
	}

	in.exec = executor.New(executor.Options{
		Env:      in.env,
		Jobs:     in.jobs,
		Terminal: in.term,
		Notice:   opts.Stdio.Err,
	})
	in.builtins = builtins.New(&builtins.Context{
		Env:      in.env,
		Jobs:     in.jobs,
		Host:     in,
		LookPath: in.exec.LookPath,
	})
	in.exec.SetBuiltins(in.builtins)

	in.store = contextstore.New(contextstore.Options{
		Fs:         opts.Fs,
		TokenLimit: cfg.Agent.SessionTokenLimit,
	})

	if opts.LLM != nil {
		in.agent = agent.New(agent.Config{
			LLM:            opts.LLM,
			Tools:          agent.NewDefaultRegistry(in.store, in.exec, in),
			Policy:         in.policy(),
			Store:          in.store,
			Output:         in.out,
			MaxIterations:  cfg.Agent.MaxIterations,
			KeepTranscript: opts.Interactive && cfg.Agent.SessionTranscript,
		})
	}
	return in
}

// policy asks before execute_command only in an interactive session that
// asked for confirmation.
func (in *Interpreter) policy() *permissions.Policy {
	if in.interactive && in.cfg.Agent.ConfirmCommands && in.input != nil {
		return permissions.NewPolicy(permissions.ModeAsk, ui.NewConfirmer(in.out, in.input))
	}
	return permissions.NewPolicy(permissions.ModeAuto, nil)
}

func (in *Interpreter) takeTerminal() *executor.Terminal {
	t, err := executor.NewTerminal(os.Stdin)
	if err != nil {
		in.log.Debug("job control disabled", logging.Error(err))
		return nil
	}
	if err := t.TakeControl(); err != nil {
		in.out.Warning("job control disabled: " + err.Error())
		return nil
	}
	return t
}

// Env returns the Environment Table.
func (in *Interpreter) Env() *env.Table {
	return in.env
}

// Jobs returns the Job Table.
func (in *Interpreter) Jobs() *jobs.Table {
	return in.jobs
}

// Store returns the Context Store.
func (in *Interpreter) Store() *contextstore.Store {
	return in.store
}

// AgentAvailable reports whether instructions can be run.
func (in *Interpreter) AgentAvailable() bool {
	return in.agent != nil && in.agent.Available()
}

// LastStatus returns $?.
func (in *Interpreter) LastStatus() int {
	return in.lastStatus
}

// Lookup resolves variables for expansion, including $? and $$.
func (in *Interpreter) Lookup(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(in.lastStatus), true
	case "$":
		return strconv.Itoa(os.Getpid()), true
	case "0":
		return "aish", true
	}
	return in.env.Lookup(name)
}

// Resume continues a job for fg and bg.
func (in *Interpreter) Resume(id int, foreground bool) (int, error) {
	return in.exec.Resume(id, foreground, in.stdio.Out)
}

// Exit stops the interpreter after the current line.
func (in *Interpreter) Exit(code int) {
	in.exiting = true
	in.exitCode = code
}

// Exiting reports whether exit was requested.
func (in *Interpreter) Exiting() bool {
	return in.exiting
}

func (in *Interpreter) exitStatus() int {
	if in.exiting {
		return in.exitCode
	}
	return in.lastStatus
}

// ExecLine runs line as a pipeline, exactly as typed at the prompt. A
// syntax error is reported and returned; other failures only set the
// status.
func (in *Interpreter) ExecLine(ctx context.Context, line string) (int, error) {
	p, err := syntax.Parse(line, in)
	if err != nil {
		fmt.Fprintf(in.stdio.Err, "aish: %s\n", aerr.GetUserMessage(err))
		logging.Global().Metrics().RecordSyntaxError()
		in.log.Debug("syntax error", logging.Command(line), logging.Error(err))
		in.lastStatus = ExitSyntax
		return ExitSyntax, err
	}
	if p == nil {
		return in.lastStatus, nil
	}

	res, err := in.exec.Run(ctx, p, in.stdio)
	in.lastStatus = res.Status
	if in.exiting {
		return in.exitCode, script.ErrExit
	}
	return res.Status, err
}

// Instruct runs one natural-language instruction through the agent.
func (in *Interpreter) Instruct(ctx context.Context, instruction string) agent.Outcome {
	if !in.AgentAvailable() {
		err := aerr.LLMUnavailable(nil)
		in.out.Failed(err)
		in.lastStatus = in.failedStatus()
		return agent.Outcome{State: agent.Failed, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	in.mu.Lock()
	in.cancel = cancel
	in.mu.Unlock()
	defer func() {
		in.mu.Lock()
		in.cancel = nil
		in.mu.Unlock()
		cancel()
	}()

	out := in.agent.Run(ctx, instruction)
	if out.State == agent.Done {
		in.lastStatus = 0
	} else {
		in.lastStatus = in.failedStatus()
	}
	return out
}

func (in *Interpreter) failedStatus() int {
	if in.interactive {
		return 1
	}
	return ExitAgentFailed
}

// cancelInstruction aborts the instruction in flight, if any.
func (in *Interpreter) cancelInstruction() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel == nil {
		return false
	}
	in.cancel()
	return true
}

// ReportJobs prints job state changes when a child has signalled since
// the last report. Scripts call it between lines.
func (in *Interpreter) ReportJobs() {
	if in.jobs.Notified() {
		in.reportJobs()
	}
}

// reportJobs prints every job whose state changed since the last call.
func (in *Interpreter) reportJobs() {
	for _, tr := range in.jobs.Reap() {
		fmt.Fprintln(in.stdio.Err, tr.String())
	}
}

// Close hangs up remaining jobs and returns the terminal.
func (in *Interpreter) Close() error {
	in.exec.HangUp()
	if in.input != nil {
		return in.input.Close()
	}
	return nil
}
