package executor

import (
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/abdul-hamid-achik/aish/internal/jobs"
	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// Resume continues a stopped or background job. In the foreground the
// job gets the terminal and Resume waits for it like a fresh pipeline;
// in the background the job is only sent SIGCONT.
func (e *Executor) Resume(id int, foreground bool, out io.Writer) (int, error) {
	if !foreground {
		j, ok := e.jobs.Get(id)
		if !ok {
			return 1, fmt.Errorf("%%%d: no such job", id)
		}
		if err := unix.Kill(-j.Pgid, unix.SIGCONT); err != nil {
			return 1, fmt.Errorf("%%%d: %w", id, err)
		}
		e.jobs.SetState(id, jobs.Running)
		fmt.Fprintf(out, "[%d]+ %s &\n", id, j.Command)
		e.log.Debug("job continued", logging.JobID(id), logging.Pgid(j.Pgid))
		return 0, nil
	}

	j, ok := e.jobs.Take(id)
	if !ok {
		return 1, fmt.Errorf("%%%d: no such job", id)
	}
	fmt.Fprintln(out, j.Command)

	if e.term != nil {
		if err := e.term.Give(j.Pgid); err != nil {
			e.log.Debug("terminal handoff failed", logging.Pgid(j.Pgid), logging.Error(err))
		}
	}
	if err := unix.Kill(-j.Pgid, unix.SIGCONT); err != nil {
		e.log.Debug("SIGCONT failed", logging.Pgid(j.Pgid), logging.Error(err))
	}
	for i := range j.Procs {
		j.Procs[i].Stopped = false
	}

	e.fg.Store(int64(j.Pgid))
	stopped := false
	w := e.jobs.Waiter()
	for _, pid := range j.LivePids() {
		st, err := w.Wait(pid)
		if err != nil {
			j.Apply(pid, jobs.Status{Exited: true})
			continue
		}
		j.Apply(pid, st)
		if st.Stopped {
			stopped = true
		}
	}
	e.fg.Store(0)

	if e.term != nil {
		if err := e.term.Reclaim(); err != nil {
			e.log.Debug("terminal reclaim failed", logging.Error(err))
		}
	}

	if stopped {
		e.jobs.Put(j)
		fmt.Fprintln(e.notice, j.Transition().String())
		return exitSignalBase + int(unix.SIGTSTP), nil
	}
	if len(j.Procs) == 0 {
		return 0, nil
	}
	return j.Procs[len(j.Procs)-1].Status.ExitCode(), nil
}

// HangUp sends SIGHUP then SIGCONT to every remaining job, as the shell
// does when it exits.
func (e *Executor) HangUp() {
	for _, j := range e.jobs.List() {
		e.log.Debug("hanging up job", logging.JobID(j.ID), logging.Pgid(j.Pgid))
		_ = unix.Kill(-j.Pgid, unix.SIGHUP)
		_ = unix.Kill(-j.Pgid, unix.SIGCONT)
	}
}
