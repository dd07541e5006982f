package executor

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal hands the controlling terminal between the shell and the
// foreground process group.
type Terminal struct {
	fd   int
	pgid int
}

// NewTerminal returns a Terminal for f, or an error when f is not a
// terminal. Job control is only enabled when this succeeds.
func NewTerminal(f *os.File) (*Terminal, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s: not a terminal", f.Name())
	}
	return &Terminal{fd: fd, pgid: unix.Getpgrp()}, nil
}

// Fd returns the terminal descriptor.
func (t *Terminal) Fd() int {
	return t.fd
}

// TakeControl puts the shell in its own process group and makes that
// group the terminal's foreground group.
func (t *Terminal) TakeControl() error {
	pid := os.Getpid()
	if unix.Getpgrp() != pid {
		// EPERM when the shell already leads a session.
		if err := unix.Setpgid(0, 0); err != nil && err != unix.EPERM {
			return fmt.Errorf("setpgid: %w", err)
		}
	}
	t.pgid = unix.Getpgrp()
	return t.Give(t.pgid)
}

// Give makes pgid the foreground process group.
func (t *Terminal) Give(pgid int) error {
	// A background group changing the foreground group gets SIGTTOU.
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)

	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		return fmt.Errorf("tcsetpgrp %d: %w", pgid, err)
	}
	return nil
}

// Reclaim returns the terminal to the shell.
func (t *Terminal) Reclaim() error {
	return t.Give(t.pgid)
}

// Foreground returns the terminal's current foreground group.
func (t *Terminal) Foreground() (int, error) {
	return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
}
