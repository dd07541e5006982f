// Package executor runs pipelines: one process per stage, N-1 pipes,
// per-stage redirections and one process group per pipeline.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/abdul-hamid-achik/aish/internal/env"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/jobs"
	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

// Reserved exit statuses.
const (
	ExitRedirection   = 1
	ExitCannotExecute = 126
	ExitNotFound      = 127
	exitSignalBase    = 128
)

// Builtins is the builtin command table consulted before PATH.
type Builtins interface {
	Has(name string) bool
	// Exec runs argv. Diagnostics go to stderr; output is written to the
	// stage's stdout by the executor.
	Exec(argv []string, stderr io.Writer) (status int, output string)
}

// Stdio is the set of descriptors a pipeline inherits.
type Stdio struct {
	In  *os.File
	Out *os.File
	Err *os.File
}

// StdStreams returns the process's own standard streams.
func StdStreams() Stdio {
	return Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Result describes one pipeline run.
type Result struct {
	// Status is the last stage's exit status, or a reserved status.
	Status       int
	// JobID is set when the pipeline was registered as a job.
	JobID        int
	Stopped      bool
	PipesCreated int
	StageErrors  []error
}

// Options configures an Executor.
type Options struct {
	Env      *env.Table
	Jobs     *jobs.Table
	Builtins Builtins
	// Terminal enables job control. Nil runs without terminal handoff.
	Terminal *Terminal
	// Notice receives job launch and stop messages. Defaults to stderr.
	Notice io.Writer
}

// Executor runs pipelines against the shell's environment and job table.
type Executor struct {
	env      *env.Table
	jobs     *jobs.Table
	builtins Builtins
	term     *Terminal
	notice   io.Writer
	log      *logging.Logger

	// fg is the foreground process group while a pipeline is waited on.
	fg atomic.Int64
}

// New creates an Executor.
func New(opts Options) *Executor {
	if opts.Env == nil {
		opts.Env = env.New()
	}
	if opts.Jobs == nil {
		opts.Jobs = jobs.NewTable(nil)
	}
	if opts.Notice == nil {
		opts.Notice = os.Stderr
	}
	return &Executor{
		env:      opts.Env,
		jobs:     opts.Jobs,
		builtins: opts.Builtins,
		term:     opts.Terminal,
		notice:   opts.Notice,
		log:      logging.Global().WithPrefix("exec"),
	}
}

// SetBuiltins installs the builtin table after construction, for tables
// that need the executor themselves.
func (e *Executor) SetBuiltins(b Builtins) {
	e.builtins = b
}

// Jobs returns the job table.
func (e *Executor) Jobs() *jobs.Table {
	return e.jobs
}

// LookPath resolves name against the shell's PATH variable.
func (e *Executor) LookPath(name string) (string, error) {
	return LookPath(name, e.env.Get("PATH"))
}

// Run executes p with stdio as the inherited descriptors. Foreground
// pipelines are waited on; background pipelines are registered in the
// job table and Run returns at once.
//
// Diagnostics for failed stages are written to stdio.Err. The returned
// error is non-nil only when the pipeline could not be constructed.
func (e *Executor) Run(ctx context.Context, p *syntax.Pipeline, stdio Stdio) (Result, error) {
	return e.run(ctx, p, stdio, !p.Background, e.term)
}

// Capture is the outcome of RunCapture.
type Capture struct {
	Status int
	Stdout string
	Stderr string
}

// RunCapture runs p in the foreground with stdin from /dev/null and both
// output streams captured. The terminal is never handed over, and a
// trailing & is ignored.
func (e *Executor) RunCapture(ctx context.Context, p *syntax.Pipeline) (Capture, error) {
	devnull, err := os.Open(os.DevNull)
	if err != nil {
		return Capture{Status: ExitCannotExecute}, aerr.SpawnFailed(os.DevNull, err)
	}
	defer devnull.Close()

	outR, outW, err := os.Pipe()
	if err != nil {
		return Capture{Status: ExitCannotExecute}, aerr.SpawnFailed("pipe", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return Capture{Status: ExitCannotExecute}, aerr.SpawnFailed("pipe", err)
	}

	var stdout, stderr safeBuffer
	var drain sync.WaitGroup
	drain.Add(2)
	go func() {
		defer drain.Done()
		_, _ = io.Copy(&stdout, outR)
	}()
	go func() {
		defer drain.Done()
		_, _ = io.Copy(&stderr, errR)
	}()

	res, runErr := e.run(ctx, p, Stdio{In: devnull, Out: outW, Err: errW}, true, nil)

	outW.Close()
	errW.Close()
	drain.Wait()
	outR.Close()
	errR.Close()

	return Capture{Status: res.Status, Stdout: stdout.String(), Stderr: stderr.String()}, runErr
}

// stage is one stage being launched.
type stage struct {
	spec     syntax.Stage
	stdin    *os.File
	stdout   *os.File
	pid      int
	status   int
	external bool
	proc     jobs.Proc
}

func (e *Executor) run(ctx context.Context, p *syntax.Pipeline, stdio Stdio, foreground bool, term *Terminal) (Result, error) {
	start := time.Now()
	n := len(p.Stages)
	var res Result

	e.log.Debug("pipeline start", logging.Command(p.String()), logging.Stages(n), logging.F("background", !foreground))
	e.log.Event(logging.EventPipelineStart, logging.Command(p.String()), logging.Stages(n))

	var fds arena
	defer fds.closeAll()

	stages := make([]*stage, n)
	for i, st := range p.Stages {
		stages[i] = &stage{spec: st, stdin: stdio.In, stdout: stdio.Out}
	}

	// Redirections first: any failure aborts before a process exists.
	for _, s := range stages {
		if err := e.openRedirections(s, &fds); err != nil {
			e.report(stdio.Err, err)
			res.Status = ExitRedirection
			e.finish(p, &res, start)
			return res, err
		}
	}

	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			serr := aerr.SpawnFailed("pipe", err)
			e.report(stdio.Err, serr)
			res.Status = ExitCannotExecute
			e.finish(p, &res, start)
			return res, serr
		}
		fds.add(r)
		fds.add(w)
		res.PipesCreated++

		if _, ok := stages[i].spec.Redirect(syntax.Stdout); !ok {
			stages[i].stdout = w
		}
		if _, ok := stages[i+1].spec.Redirect(syntax.Stdin); !ok {
			stages[i+1].stdin = r
		}
	}

	var (
		pgid        int
		pids        []int
		spawnFailed bool
		builtinOut  sync.WaitGroup
	)
	for _, s := range stages {
		name := s.spec.Name()

		if e.builtins != nil && e.builtins.Has(name) {
			s.status = e.runBuiltin(s, stdio.Err, &fds, &builtinOut)
			continue
		}

		path, err := e.LookPath(name)
		if err != nil {
			serr := aerr.CommandNotFound(name)
			e.stageFailed(stdio.Err, s, serr, &res)
			s.status = ExitNotFound
			continue
		}

		cmd := &exec.Cmd{
			Path: path,
			Args: s.spec.Argv,
			Env:  e.env.Environ(),
		}
		if stdio.Err != nil {
			cmd.Stderr = stdio.Err
		}
		if s.stdin != nil {
			cmd.Stdin = s.stdin
		}
		if s.stdout != nil {
			cmd.Stdout = s.stdout
		}
		attr := &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		if foreground && term != nil && pgid == 0 {
			attr.Foreground = true
			attr.Ctty = term.Fd()
		}
		cmd.SysProcAttr = attr

		if err := cmd.Start(); err != nil {
			serr := aerr.SpawnFailed(name, err)
			if errors.Is(err, fs.ErrNotExist) {
				serr = aerr.CommandNotFound(name)
				s.status = ExitNotFound
			} else {
				s.status = ExitCannotExecute
				spawnFailed = true
			}
			e.stageFailed(stdio.Err, s, serr, &res)
			continue
		}

		s.pid = cmd.Process.Pid
		s.external = true
		s.proc = jobs.Proc{Pid: s.pid}
		_ = cmd.Process.Release()

		if pgid == 0 {
			pgid = s.pid
			if foreground && term != nil {
				if err := term.Give(pgid); err != nil {
					e.log.Debug("terminal handoff failed", logging.Pgid(pgid), logging.Error(err))
				}
			}
		}
		pids = append(pids, s.pid)

		e.log.Debug("stage spawned", logging.Command(name), logging.Pid(s.pid), logging.Pgid(pgid))
		e.log.Event(logging.EventStageSpawn, logging.Command(name), logging.Pid(s.pid), logging.Pgid(pgid))
	}

	// Children hold their own copies now.
	fds.closeAll()

	if !foreground {
		res.Status = stages[n-1].status
		if len(pids) > 0 {
			res.JobID = e.jobs.Register(p, pgid, pids)
			res.Status = 0
			fmt.Fprintf(e.notice, "[%d] %d\n", res.JobID, pgid)
		}
		e.finish(p, &res, start)
		return res, nil
	}

	stop := e.watch(ctx, pgid)
	e.fg.Store(int64(pgid))
	res.Stopped = e.waitStages(stages)
	e.fg.Store(0)
	stop()
	builtinOut.Wait()

	if term != nil && pgid != 0 {
		if err := term.Reclaim(); err != nil {
			e.log.Debug("terminal reclaim failed", logging.Error(err))
		}
	}

	last := stages[n-1]
	res.Status = last.status
	if last.external {
		res.Status = last.proc.Status.ExitCode()
	}
	if spawnFailed {
		res.Status = ExitCannotExecute
	}

	if res.Stopped {
		procs := make([]jobs.Proc, 0, len(pids))
		var sig syscall.Signal = unix.SIGTSTP
		for _, s := range stages {
			if s.external {
				procs = append(procs, s.proc)
				if s.proc.Stopped && s.proc.Status.Signal != 0 {
					sig = s.proc.Status.Signal
				}
			}
		}
		res.JobID = e.jobs.Adopt(p, pgid, procs)
		res.Status = exitSignalBase + int(sig)
		if j, ok := e.jobs.Get(res.JobID); ok {
			fmt.Fprintln(e.notice, j.Transition().String())
		}
	}

	e.finish(p, &res, start)
	return res, nil
}

// waitStages blocks until every external stage exits or stops, and
// reports whether any stopped.
func (e *Executor) waitStages(stages []*stage) bool {
	w := e.jobs.Waiter()
	stopped := false
	for _, s := range stages {
		if !s.external {
			continue
		}
		st, err := w.Wait(s.pid)
		if err != nil {
			e.log.Debug("wait failed", logging.Pid(s.pid), logging.Error(err))
			s.proc.Exited = true
			continue
		}
		if st.Stopped {
			s.proc.Stopped = true
			s.proc.Status = st
			stopped = true
			continue
		}
		s.proc.Exited = true
		s.proc.Status = st
	}
	return stopped
}

func (e *Executor) openRedirections(s *stage, fds *arena) error {
	for _, r := range s.spec.Redirections {
		var (
			f   *os.File
			err error
		)
		switch r.Mode {
		case syntax.ModeRead:
			f, err = os.Open(r.Target)
		case syntax.ModeTruncate:
			f, err = os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		case syntax.ModeAppend:
			f, err = os.OpenFile(r.Target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		}
		if err != nil {
			return aerr.RedirectionFailed(r.Target, err)
		}
		fds.add(f)
		if r.Stream == syntax.Stdin {
			s.stdin = f
		} else {
			s.stdout = f
		}
	}
	return nil
}

// runBuiltin runs a builtin stage inline. Output bound for a pipe or a
// redirection is written by a goroutine that owns and closes the
// descriptor, so a full pipe cannot block the shell.
func (e *Executor) runBuiltin(s *stage, stderr io.Writer, fds *arena, wg *sync.WaitGroup) int {
	status, output := e.builtins.Exec(s.spec.Argv, stderr)
	if output == "" || s.stdout == nil {
		return status
	}

	w := s.stdout
	if fds.take(w) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer w.Close()
			_, _ = io.WriteString(w, output)
		}()
		return status
	}
	_, _ = io.WriteString(w, output)
	return status
}

// watch kills the pipeline's process group when ctx is cancelled.
func (e *Executor) watch(ctx context.Context, pgid int) func() {
	if pgid == 0 || ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.log.Debug("pipeline cancelled", logging.Pgid(pgid), logging.Error(ctx.Err()))
			_ = unix.Kill(-pgid, unix.SIGKILL)
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Interrupt forwards sig to the foreground pipeline. With job control
// the terminal driver already does this, so it is a no-op then.
func (e *Executor) Interrupt(sig syscall.Signal) bool {
	if e.term != nil {
		return false
	}
	pgid := int(e.fg.Load())
	if pgid == 0 {
		return false
	}
	return unix.Kill(-pgid, sig) == nil
}

func (e *Executor) stageFailed(w io.Writer, s *stage, err error, res *Result) {
	res.StageErrors = append(res.StageErrors, err)
	e.report(w, err)
	e.log.Debug("stage failed", logging.Command(s.spec.Name()), logging.Error(err))
	e.log.Event(logging.EventStageError, logging.Command(s.spec.Name()), logging.Error(err))
}

// report writes a diagnostic line in the form "aish: message[: cause]".
func (e *Executor) report(w io.Writer, err error) {
	if w == nil {
		return
	}
	msg := aerr.GetUserMessage(err)
	var ae *aerr.AishError
	if errors.As(err, &ae) && ae.Cause != nil {
		cause := ae.Cause
		var pe *fs.PathError
		if errors.As(cause, &pe) {
			cause = pe.Err
		}
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	fmt.Fprintf(w, "aish: %s\n", msg)
}

func (e *Executor) finish(p *syntax.Pipeline, res *Result, start time.Time) {
	e.log.Debug("pipeline end", logging.Command(p.String()), logging.Status(res.Status), logging.DurationSince(start))
	e.log.Event(logging.EventPipelineEnd, logging.Command(p.String()), logging.Status(res.Status), logging.JobID(res.JobID), logging.DurationSince(start))
	logging.Global().Metrics().RecordPipeline(len(p.Stages), len(res.StageErrors), res.JobID != 0 && !res.Stopped)
}
