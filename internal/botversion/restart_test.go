package botversion

import (
	"errors"
	"os"
	"testing"
)

func TestWatchReturnsNilWhenDoneClosedFirst(t *testing.T) {
	h := NewHotRestarter(nil)
	done := make(chan struct{})
	close(done)

	if err := h.Watch(done); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
}

func TestWatchReExecsOnSIGHUP(t *testing.T) {
	called := false
	h := NewHotRestarter(func() { called = true })
	h.exe = func() (string, error) { return "/bin/fake", nil }

	var gotPath string
	h.execve = func(argv0 string, argv, envv []string) error {
		gotPath = argv0
		return nil
	}

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- h.Watch(done) }()

	h.sigCh <- os.Interrupt // stand-in trigger; real signal delivery is OS-driven
	if err := <-errCh; err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if gotPath != "/bin/fake" {
		t.Fatalf("gotPath = %q, want /bin/fake", gotPath)
	}
	if !called {
		t.Fatal("expected onRestart to be called before re-exec")
	}
}

func TestWatchReturnsExeErrorWithoutCallingExecve(t *testing.T) {
	h := NewHotRestarter(nil)
	h.exe = func() (string, error) { return "", errors.New("no executable") }
	execveCalled := false
	h.execve = func(argv0 string, argv, envv []string) error {
		execveCalled = true
		return nil
	}

	done := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- h.Watch(done) }()

	h.sigCh <- os.Interrupt
	if err := <-errCh; err == nil {
		t.Fatal("expected an error when os.Executable fails")
	}
	if execveCalled {
		t.Fatal("expected execve to not be called when resolving the executable path fails")
	}
}
