package script

import (
	"context"
	"errors"
	"time"

	"github.com/abdul-hamid-achik/aish/internal/agent"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// Reserved exit statuses for a halted script.
const (
	StatusSyntax      = 2
	StatusAgentFailed = 3
)

// LineRunner executes one command line exactly as interactive input.
// A syntax error is returned as an error in the syntax category.
type LineRunner interface {
	ExecLine(ctx context.Context, line string) (int, error)
}

// JobReporter is implemented by a LineRunner that runs background jobs.
// ReportJobs prints the jobs that changed state since the last call.
type JobReporter interface {
	ReportJobs()
}

// ErrExit is returned by a LineRunner after the exit builtin ran. The
// script stops with the line's status.
var ErrExit = errors.New("exit requested")

// InstructionRunner drives one natural-language instruction to a terminal
// state.
type InstructionRunner interface {
	Run(ctx context.Context, instruction string) agent.Outcome
}

// InstructionFunc adapts a function to InstructionRunner.
type InstructionFunc func(ctx context.Context, instruction string) agent.Outcome

// Run calls f(ctx, instruction).
func (f InstructionFunc) Run(ctx context.Context, instruction string) agent.Outcome {
	return f(ctx, instruction)
}

// Display renders the parts of a script that are shown rather than run.
type Display interface {
	Comment(markdown string)
	Command(lang, line string)
}

// Result is the outcome of a whole script.
type Result struct {
	// Status is the last line's status, or a reserved status on halt.
	Status int
	// Halted is set when a block stopped the script early.
	Halted bool
	// Block is the index of the halting block, -1 when not halted.
	Block int
	Err   error
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Echo shows each code line before it runs.
	Echo bool
}

// Dispatcher feeds blocks to the shell or the agent strictly in order.
type Dispatcher struct {
	shell   LineRunner
	agent   InstructionRunner
	display Display
	opts    DispatcherOptions
	log     *logging.Logger
}

// NewDispatcher creates a dispatcher. display may be nil.
func NewDispatcher(shell LineRunner, ag InstructionRunner, display Display, opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		shell:   shell,
		agent:   ag,
		display: display,
		opts:    opts,
		log:     logging.Global().WithPrefix("script"),
	}
}

// Run dispatches blocks in document order. Each block finishes before the
// next one starts. A syntax error in a code line or a failed instruction
// halts the script.
func (d *Dispatcher) Run(ctx context.Context, blocks []Block) Result {
	start := time.Now()
	res := Result{Block: -1}

	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			res.Err = err
			res.Halted = true
			res.Block = i
			break
		}
		d.log.Event(logging.EventScriptBlock, logging.F("index", i), logging.F("kind", b.Kind.String()), logging.F("line", b.Line))

		switch b.Kind {
		case Comment:
			if d.display != nil {
				d.display.Comment(b.Text)
			}

		case Code:
			status, err := d.runCode(ctx, b)
			res.Status = status
			if errors.Is(err, ErrExit) {
				res.Halted = true
				res.Block = i
				d.log.Info("script exited", logging.F("index", i), logging.F("status", status))
				return res
			}
			if err != nil && ctx.Err() != nil {
				d.halt(&res, i, b, status, err)
				return res
			}
			if err != nil {
				d.halt(&res, i, b, StatusSyntax, err)
				return res
			}

		case Instruction:
			d.reportJobs()
			if d.agent == nil {
				d.halt(&res, i, b, StatusAgentFailed, aerr.LLMUnavailable(nil))
				return res
			}
			out := d.agent.Run(ctx, b.Text)
			if out.State == agent.Failed {
				d.halt(&res, i, b, StatusAgentFailed, out.Err)
				return res
			}
			res.Status = 0
		}
	}

	d.log.Info("script finished", logging.Count(len(blocks)), logging.F("status", res.Status), logging.DurationSince(start))
	return res
}

// runCode runs a code block line by line. Only a syntax error, exit or
// cancellation stops it; a failing command leaves its status and the
// block continues.
func (d *Dispatcher) runCode(ctx context.Context, b Block) (int, error) {
	status := 0
	for _, line := range b.Lines() {
		if err := ctx.Err(); err != nil {
			return status, err
		}
		d.reportJobs()
		if d.opts.Echo && d.display != nil {
			d.display.Command(b.Lang, line.Text)
		}
		st, err := d.shell.ExecLine(ctx, line.Text)
		status = st
		if errors.Is(err, ErrExit) {
			return status, err
		}
		if err != nil && aerr.IsCategory(err, aerr.CategorySyntax) {
			d.log.Warn("syntax error in script", logging.F("line", line.Number), logging.Error(err))
			return StatusSyntax, err
		}
	}
	return status, ctx.Err()
}

func (d *Dispatcher) reportJobs() {
	if r, ok := d.shell.(JobReporter); ok {
		r.ReportJobs()
	}
}

func (d *Dispatcher) halt(res *Result, i int, b Block, status int, err error) {
	res.Status = status
	res.Halted = true
	res.Block = i
	res.Err = err
	d.log.Event(logging.EventScriptHalt,
		logging.F("index", i),
		logging.F("kind", b.Kind.String()),
		logging.F("line", b.Line),
		logging.F("status", status),
		logging.Error(err))
}
