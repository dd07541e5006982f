package shell

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// watchSignals keeps terminal signals from killing the shell. SIGCHLD
// wakes the job table; SIGINT and SIGQUIT go to the foreground pipeline
// when there is no job control, and abort the instruction in flight.
// cancel, when set, is called on SIGINT so a script stops too.
func (in *Interpreter) watchSignals(cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, unix.SIGCHLD, unix.SIGINT, unix.SIGQUIT, unix.SIGTSTP)
	if in.term != nil {
		signal.Ignore(unix.SIGTTIN)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				in.onSignal(sig.(syscall.Signal), cancel)
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

func (in *Interpreter) onSignal(sig syscall.Signal, cancel context.CancelFunc) {
	if sig == unix.SIGCHLD {
		in.jobs.Notify()
		return
	}

	forwarded := in.exec.Interrupt(sig)
	in.log.Debug("signal", logging.F("signal", unix.SignalName(sig)), logging.F("forwarded", forwarded))
	if sig == unix.SIGTSTP {
		return
	}
	if in.cancelInstruction() {
		in.out.System("instruction interrupted")
	}
	if sig == unix.SIGINT && cancel != nil {
		cancel()
	}
}
