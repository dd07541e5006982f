package jobs

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// Status is one decoded wait status for a single process.
type Status struct {
	Exited    bool
	Code      int
	Signaled  bool
	Signal    syscall.Signal
	Stopped   bool
	Continued bool
}

// ExitCode maps the status to a shell exit status: the exit code, or
// 128+n for a process terminated or stopped by signal n.
func (s Status) ExitCode() int {
	switch {
	case s.Signaled, s.Stopped:
		return 128 + int(s.Signal)
	default:
		return s.Code
	}
}

// Terminal reports whether the process is gone.
func (s Status) Terminal() bool {
	return s.Exited || s.Signaled
}

// Decode converts a raw wait status.
func Decode(ws unix.WaitStatus) Status {
	switch {
	case ws.Exited():
		return Status{Exited: true, Code: ws.ExitStatus()}
	case ws.Signaled():
		return Status{Signaled: true, Signal: syscall.Signal(ws.Signal())}
	case ws.Stopped():
		return Status{Stopped: true, Signal: syscall.Signal(ws.StopSignal())}
	case ws.Continued():
		return Status{Continued: true}
	}
	return Status{}
}

// Waiter observes child processes.
type Waiter interface {
	// Poll reports the next pending state change of pid without blocking.
	// ok is false when nothing changed.
	Poll(pid int) (st Status, ok bool, err error)
	// Wait blocks until pid exits, is killed or stops.
	Wait(pid int) (Status, error)
}

// SysWaiter implements Waiter with wait4(2).
type SysWaiter struct{}

// Poll implements Waiter.
func (SysWaiter) Poll(pid int) (Status, bool, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return Status{}, false, err
		}
		if wpid == 0 {
			return Status{}, false, nil
		}
		return Decode(ws), true, nil
	}
}

// Wait implements Waiter.
func (SysWaiter) Wait(pid int) (Status, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return Status{}, err
		}
		st := Decode(ws)
		if st.Continued {
			continue
		}
		return st, nil
	}
}
