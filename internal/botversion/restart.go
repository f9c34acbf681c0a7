package botversion

import (
	"os"
	"os/signal"
	"syscall"
)

// HotRestarter re-executes the current binary in place when it
// receives SIGHUP, replacing the running process image without
// losing its PID — the same process keeps running, just with freshly
// loaded code. Descriptors Go opened close-on-exec (files, listeners)
// are closed by the exec; only inherited ones such as stdio remain.
//
// Grounded on the gateway command's signal.Notify shutdown handling,
// generalized from SIGINT/SIGTERM-triggers-shutdown to
// SIGHUP-triggers-re-exec, and on the migrate command's use of
// os.Executable to locate the running binary.
type HotRestarter struct {
	exe       func() (string, error)
	execve    func(argv0 string, argv, envv []string) error
	sigCh     chan os.Signal
	onRestart func()
}

// NewHotRestarter constructs a HotRestarter. onRestart, if non-nil, is
// called just before re-exec so the caller can flush logs or save
// state.
func NewHotRestarter(onRestart func()) *HotRestarter {
	return &HotRestarter{
		exe:       os.Executable,
		execve:    syscall.Exec,
		sigCh:     make(chan os.Signal, 1),
		onRestart: onRestart,
	}
}

// Watch installs the SIGHUP handler and blocks until it fires or done
// is closed, at which point it stops watching and returns nil without
// restarting. On SIGHUP it re-execs the binary; if re-exec fails (the
// binary was moved, or exec is unsupported on this platform), it
// returns the error instead of exiting so the caller can log it and
// keep running on the old process image.
func (h *HotRestarter) Watch(done <-chan struct{}) error {
	signal.Notify(h.sigCh, syscall.SIGHUP)
	defer signal.Stop(h.sigCh)

	select {
	case <-h.sigCh:
		return h.restart()
	case <-done:
		return nil
	}
}

func (h *HotRestarter) restart() error {
	path, err := h.exe()
	if err != nil {
		return err
	}
	if h.onRestart != nil {
		h.onRestart()
	}
	return h.execve(path, os.Args, os.Environ())
}
