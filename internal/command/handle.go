package command

import (
	"errors"
	"syscall"
	"time"
)

// Handle exposes process-group control for a spawned command.
//
// Commands run in their own process group so that shell children are signaled
// together with the shell itself. All signaling is best-effort: a process that
// already exited is not an error.
type Handle struct {
	pid  int
	done <-chan struct{} // closed once the process has been reaped
}

// PID returns the process ID of the group leader.
func (h *Handle) PID() int {
	return h.pid
}

// Terminate sends SIGTERM to the process group.
func (h *Handle) Terminate() error {
	return h.signal(syscall.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func (h *Handle) Kill() error {
	return h.signal(syscall.SIGKILL)
}

// Done returns a channel closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Shutdown terminates the process group gracefully, escalating to SIGKILL if
// it is still alive after the grace period. Process-already-gone errors are
// swallowed.
func (h *Handle) Shutdown(grace time.Duration) {
	if err := h.Terminate(); err != nil {
		return
	}

	select {
	case <-h.done:
	case <-time.After(grace):
		_ = h.Kill()
		<-h.done
	}
}

func (h *Handle) signal(sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(h.pid)
	if err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	if err := syscall.Kill(-pgid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}
