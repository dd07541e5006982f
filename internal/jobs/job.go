package jobs

import (
	"fmt"
	"strings"
	"syscall"
)

// State is a job's lifecycle state.
type State int

const (
	Running State = iota
	Stopped
	Done
	Signaled
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case Done:
		return "Done"
	case Signaled:
		return "Signaled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no process of the job remains.
func (s State) Terminal() bool {
	return s == Done || s == Signaled
}

// Proc is one process of a job.
type Proc struct {
	Pid     int
	Exited  bool
	Stopped bool
	Status  Status
}

// Job is a pipeline running or stopped outside the foreground.
type Job struct {
	ID       int
	Pgid     int
	Command  string
	State    State
	ExitCode int
	Signal   syscall.Signal
	Procs    []Proc
}

// LivePids returns the pids that have not exited.
func (j *Job) LivePids() []int {
	var pids []int
	for _, p := range j.Procs {
		if !p.Exited {
			pids = append(pids, p.Pid)
		}
	}
	return pids
}

// Apply records a status change for pid.
func (j *Job) Apply(pid int, st Status) {
	for i := range j.Procs {
		p := &j.Procs[i]
		if p.Pid != pid {
			continue
		}
		switch {
		case st.Terminal():
			p.Exited = true
			p.Stopped = false
			p.Status = st
		case st.Stopped:
			p.Stopped = true
		case st.Continued:
			p.Stopped = false
		}
		return
	}
}

// derive recomputes State from the processes. The last process decides
// the terminal state, as the last stage decides a pipeline's status.
func (j *Job) derive() {
	if len(j.Procs) == 0 {
		j.State = Done
		return
	}

	allExited, anyStopped := true, false
	for _, p := range j.Procs {
		if !p.Exited {
			allExited = false
			if p.Stopped {
				anyStopped = true
			}
		}
	}

	switch {
	case allExited:
		last := j.Procs[len(j.Procs)-1].Status
		if last.Signaled {
			j.State = Signaled
			j.Signal = last.Signal
		} else {
			j.State = Done
		}
		j.ExitCode = last.ExitCode()
	case anyStopped:
		j.State = Stopped
	default:
		j.State = Running
	}
}

// Transition is one reported change of a job's state.
type Transition struct {
	JobID    int
	Pgid     int
	Command  string
	State    State
	ExitCode int
	Signal   syscall.Signal
}

// Label is the status word shown to the user: Running, Stopped, Done,
// "Exit N" or the signal description.
func (t Transition) Label() string {
	switch t.State {
	case Done:
		if t.ExitCode != 0 {
			return fmt.Sprintf("Exit %d", t.ExitCode)
		}
		return "Done"
	case Signaled:
		desc := t.Signal.String()
		if desc == "" {
			return "Signaled"
		}
		return strings.ToUpper(desc[:1]) + desc[1:]
	default:
		return t.State.String()
	}
}

// String renders the line printed at the prompt, e.g. "[1]+  Done    sleep 5".
func (t Transition) String() string {
	return fmt.Sprintf("[%d]+  %-10s %s", t.JobID, t.Label(), t.Command)
}

// Transition reports the job's current state.
func (j *Job) Transition() Transition {
	return Transition{
		JobID:    j.ID,
		Pgid:     j.Pgid,
		Command:  j.Command,
		State:    j.State,
		ExitCode: j.ExitCode,
		Signal:   j.Signal,
	}
}

// displayCommand strips the trailing & from a source line.
func displayCommand(source string) string {
	s := strings.TrimSpace(source)
	return strings.TrimSpace(strings.TrimSuffix(s, "&"))
}
