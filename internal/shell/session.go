package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/script"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
	"github.com/abdul-hamid-achik/aish/internal/ui"
)

// RunInteractive reads and runs lines until end of input or exit, and
// returns the shell's exit status. Finished jobs are reported before each
// prompt.
func (in *Interpreter) RunInteractive(ctx context.Context) int {
	if in.input == nil {
		in.out.Error(errors.New("no input for an interactive session"))
		return 1
	}
	start := time.Now()
	in.log.Event(logging.EventSessionStart, logging.F("mode", "interactive"), logging.F("agent", in.AgentAvailable()))

	stop := in.watchSignals(nil)
	defer stop()

	if !in.AgentAvailable() {
		in.out.System("ANTHROPIC_API_KEY is not set; every line runs as a command")
	}

	for !in.exiting {
		if ctx.Err() != nil {
			break
		}
		in.reportJobs()
		in.input.SetPrompt(syntax.ExpandString(in.cfg.Shell.Prompt, in))

		line, err := in.input.ReadLine()
		if errors.Is(err, ui.ErrInterrupt) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				in.log.Warn("input failed", logging.Error(err))
			}
			break
		}
		in.Handle(ctx, line)
	}

	in.log.Event(logging.EventSessionEnd, logging.Status(in.exitStatus()), logging.DurationSince(start))
	return in.exitStatus()
}

// RunCommand runs a single line given with -c. The line is routed like
// interactive input; a failed instruction exits with the reserved status.
func (in *Interpreter) RunCommand(ctx context.Context, line string) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := in.watchSignals(cancel)
	defer stop()

	in.log.Event(logging.EventSessionStart, logging.F("mode", "command"))
	in.Handle(ctx, line)
	return in.exitStatus()
}

// RunFile runs a script. Markdown files are literate documents dispatched
// block by block; anything else is a plain script run line by line.
func (in *Interpreter) RunFile(ctx context.Context, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		in.out.Error(err)
		return ExitNoScript
	}
	return in.RunScript(ctx, path, src)
}

// RunScript dispatches src; name decides between literate and plain.
func (in *Interpreter) RunScript(ctx context.Context, name string, src []byte) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := in.watchSignals(cancel)
	defer stop()

	literate := script.IsLiterate(name)
	var blocks []script.Block
	if literate {
		blocks = script.Parse(src, script.Options{
			ShellLanguages:      in.cfg.Script.ShellLanguages,
			MinInstructionWords: in.cfg.Script.MinInstructionWords,
		})
	} else {
		blocks = script.Plain(src)
	}
	in.log.Event(logging.EventSessionStart, logging.F("mode", "script"), logging.Path(name), logging.Count(len(blocks)))

	d := script.NewDispatcher(in, script.InstructionFunc(in.Instruct), in.out, script.DispatcherOptions{
		Echo: literate && in.cfg.Script.EchoCommands,
	})
	res := d.Run(ctx, blocks)
	in.reportJobs()
	if res.Halted && res.Err != nil {
		if errors.Is(res.Err, context.Canceled) {
			res.Status = ExitInterrupted
		}
		if res.Block >= 0 && res.Block < len(blocks) {
			in.out.Warning(fmt.Sprintf("script halted at line %d", blocks[res.Block].Line))
		}
		in.lastStatus = res.Status
		return res.Status
	}
	if in.exiting {
		return in.exitCode
	}
	return res.Status
}
