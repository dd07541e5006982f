// Package jobs tracks pipelines that run in the background or were
// stopped from the terminal.
package jobs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

// Table is the shell's job table. The SIGCHLD handler calls Notify; the
// shell checks Notified at a safe point, calls Reap and prints the
// returned transitions.
type Table struct {
	mu      sync.Mutex
	jobs    []*Job
	nextID  int
	waiter  Waiter
	pending chan struct{}
	log     *logging.Logger
}

// NewTable creates an empty table. A nil waiter uses wait4(2).
func NewTable(w Waiter) *Table {
	if w == nil {
		w = SysWaiter{}
	}
	return &Table{
		nextID:  1,
		waiter:  w,
		pending: make(chan struct{}, 1),
		log:     logging.Global().WithPrefix("jobs"),
	}
}

// Waiter returns the waiter used to observe processes.
func (t *Table) Waiter() Waiter {
	return t.waiter
}

// Register adds a running pipeline whose processes share pgid and
// returns its job id. Ids start at 1 and are never reused.
func (t *Table) Register(p *syntax.Pipeline, pgid int, pids []int) int {
	procs := make([]Proc, 0, len(pids))
	for _, pid := range pids {
		procs = append(procs, Proc{Pid: pid})
	}
	return t.Adopt(p, pgid, procs)
}

// Adopt registers a pipeline whose processes were already observed, such
// as a foreground pipeline stopped from the terminal. The state is
// derived from procs.
func (t *Table) Adopt(p *syntax.Pipeline, pgid int, procs []Proc) int {
	command := ""
	if p != nil {
		command = p.Source
		if command == "" {
			command = p.String()
		}
	}

	j := &Job{
		Pgid:    pgid,
		Command: displayCommand(command),
		Procs:   procs,
	}
	j.derive()

	t.mu.Lock()
	j.ID = t.nextID
	t.nextID++
	t.jobs = append(t.jobs, j)
	t.mu.Unlock()

	t.log.Debug("job registered", logging.JobID(j.ID), logging.Pgid(pgid), logging.Command(j.Command), logging.F("state", j.State.String()))
	t.log.Event(logging.EventJobRegister, logging.JobID(j.ID), logging.Pgid(pgid), logging.Command(j.Command))
	return j.ID
}

// Put returns a job taken with Take back into the table under its
// original id, with its state recomputed from its processes.
func (t *Table) Put(j *Job) {
	j.derive()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs = append(t.jobs, j)
	sort.Slice(t.jobs, func(a, b int) bool { return t.jobs[a].ID < t.jobs[b].ID })
}

// Take removes job id from the table and hands it to the caller.
func (t *Table) Take(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, j := range t.jobs {
		if j.ID == id {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			return j, true
		}
	}
	return nil, false
}

// Get returns a snapshot of job id.
func (t *Table) Get(id int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.ID == id {
			return snapshot(j), true
		}
	}
	return Job{}, false
}

// SetState overrides the state of job id, as after sending SIGCONT.
func (t *Table) SetState(id int, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.ID != id {
			continue
		}
		j.State = s
		if s == Running {
			for i := range j.Procs {
				j.Procs[i].Stopped = false
			}
		}
		return
	}
}

// List returns snapshots of the active jobs ordered by id.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, snapshot(j))
	}
	return out
}

// Len returns the number of active jobs.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Current returns the most recently registered active job.
func (t *Table) Current() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.jobs) == 0 {
		return 0, false
	}
	return t.jobs[len(t.jobs)-1].ID, true
}

// Resolve parses a job spec as accepted by fg and bg: empty for the
// current job, "%N" or "N".
func (t *Table) Resolve(spec string) (int, error) {
	if spec == "" || spec == "%" || spec == "%+" || spec == "%%" {
		id, ok := t.Current()
		if !ok {
			return 0, fmt.Errorf("no current job")
		}
		return id, nil
	}

	id, err := strconv.Atoi(strings.TrimPrefix(spec, "%"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: no such job", spec)
	}
	if _, ok := t.Get(id); !ok {
		return 0, fmt.Errorf("%s: no such job", spec)
	}
	return id, nil
}

// Notify records that a child changed state. It never blocks and is
// safe to call from the signal-forwarding goroutine.
func (t *Table) Notify() {
	select {
	case t.pending <- struct{}{}:
	default:
	}
}

// Notified reports whether Notify was called since the last Reap or
// Notified, and clears the notification.
func (t *Table) Notified() bool {
	select {
	case <-t.pending:
		return true
	default:
		return false
	}
}

// Reap polls every job's processes and returns the jobs whose state
// changed. Jobs that reached a terminal state are reported once and
// removed.
func (t *Table) Reap() []Transition {
	select {
	case <-t.pending:
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []Transition
	kept := t.jobs[:0]
	for _, j := range t.jobs {
		before := j.State
		t.poll(j)
		j.derive()

		if j.State != before {
			tr := j.Transition()
			changes = append(changes, tr)
			t.log.Debug("job state changed", logging.JobID(j.ID), logging.From(before.String()), logging.To(j.State.String()))
			t.log.Event(logging.EventJobTransition, logging.JobID(j.ID), logging.From(before.String()), logging.To(j.State.String()), logging.Status(j.ExitCode))
		}
		if !j.State.Terminal() {
			kept = append(kept, j)
		}
	}
	for i := len(kept); i < len(t.jobs); i++ {
		t.jobs[i] = nil
	}
	t.jobs = kept
	return changes
}

// poll drains every pending status of j's live processes.
func (t *Table) poll(j *Job) {
	for i := range j.Procs {
		p := &j.Procs[i]
		for !p.Exited {
			st, ok, err := t.waiter.Poll(p.Pid)
			if err != nil {
				// Reaped elsewhere; keep whatever status we last saw.
				t.log.Debug("poll failed", logging.Pid(p.Pid), logging.Error(err))
				p.Exited = true
				break
			}
			if !ok {
				break
			}
			j.Apply(p.Pid, st)
		}
	}
}

func snapshot(j *Job) Job {
	cp := *j
	cp.Procs = append([]Proc(nil), j.Procs...)
	return cp
}
