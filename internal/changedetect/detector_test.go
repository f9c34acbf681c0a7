package changedetect

import (
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
)

func TestDetectIdempotentOnUnchangedCapture(t *testing.T) {
	d := New()
	d.Detect("Running tests...")
	second := d.Detect("Running tests...")
	if second.Significance != model.SignificanceIgnore || second.Type != model.ChangeNone {
		t.Fatalf("expected repeated identical capture to be Ignore, got %+v", second)
	}
}

func TestResetTreatsNextCaptureAsFresh(t *testing.T) {
	d := New()
	d.Detect("hello world")
	d.Reset()
	ev := d.Detect("hello world")
	if ev.Significance == model.SignificanceIgnore {
		t.Fatal("after reset, a non-empty capture must not be Ignore")
	}
}

func TestEmptyCaptureIsIgnore(t *testing.T) {
	d := New()
	ev := d.Detect("")
	if ev.Significance != model.SignificanceIgnore {
		t.Fatalf("expected empty capture to be Ignore, got %+v", ev)
	}
}

func TestCaptureOfOnlyNoiseIsIgnore(t *testing.T) {
	d := New()
	ev := d.Detect("\x1b[2J\x1b[H   \n⠋⠙⠹ spinning\n")
	if ev.Significance != model.SignificanceIgnore {
		t.Fatalf("expected all-noise capture to be Ignore, got %+v", ev)
	}
}

func TestReadyTransitionScenario(t *testing.T) {
	// End-to-end scenario 1 from spec.md §8.
	d := New()
	d.Detect("Running tests...")
	ev := d.Detect("Running tests...\nTask completed successfully!")

	if ev.Type != model.ChangeCompletion {
		t.Errorf("expected ChangeCompletion, got %v", ev.Type)
	}
	if ev.Significance != model.SignificanceHigh {
		t.Errorf("expected High significance, got %v", ev.Significance)
	}
	if got := ev.Summary[:len("Completed: ")]; got != "Completed: " {
		t.Errorf("expected summary to start with 'Completed: ', got %q", ev.Summary)
	}
}

func TestClassifyErrorPattern(t *testing.T) {
	d := New()
	ev := d.Detect("Error: connection refused")
	if ev.Type != model.ChangeError || ev.Significance != model.SignificanceHigh {
		t.Errorf("got %+v", ev)
	}
}

func TestClassifyCriticalOverridesError(t *testing.T) {
	d := New()
	ev := d.Detect("Segmentation fault (core dumped)")
	if ev.Significance != model.SignificanceCritical {
		t.Errorf("expected Critical significance for segfault, got %+v", ev)
	}
}

func TestClassifyWaitingForInput(t *testing.T) {
	d := New()
	ev := d.Detect("Please enter your password:")
	if ev.Type != model.ChangeWaitingForInput {
		t.Errorf("expected WaitingForInput, got %+v", ev)
	}
}

func TestClassifyDefaultsToLowAddition(t *testing.T) {
	d := New()
	ev := d.Detect("some unrelated line of output")
	if ev.Type != model.ChangeAddition || ev.Significance != model.SignificanceLow {
		t.Errorf("expected Addition/Low default, got %+v", ev)
	}
}

func TestSummaryTruncatesLongLines(t *testing.T) {
	d := New()
	long := ""
	for i := 0; i < 150; i++ {
		long += "x"
	}
	ev := d.Detect(long)
	if len(ev.Summary) > len("New output: ")+100 {
		t.Errorf("expected summary to be truncated, got length %d", len(ev.Summary))
	}
}

func TestFindNewLinesPreservesOrder(t *testing.T) {
	prev := "alpha\nbeta"
	current := "alpha\nbeta\ngamma\ndelta"
	lines := findNewLines(prev, current)
	if len(lines) != 2 || lines[0] != "gamma" || lines[1] != "delta" {
		t.Errorf("got %v", lines)
	}
}

func TestIsNoiseWhitespaceOnly(t *testing.T) {
	d := New()
	if !d.isNoise("   ") {
		t.Error("whitespace-only line should be noise")
	}
}

func TestCleanResponseStripsToolMarkers(t *testing.T) {
	raw := "⎿ tool output here\nActual response line\n⏺ another marker\n"
	got := cleanResponse(raw)
	if got != "Actual response line" {
		t.Errorf("got %q", got)
	}
}

func TestCleanScreenPreviewTrimsToMaxLines(t *testing.T) {
	out := "line1\nline2\nline3\nline4\n"
	got := cleanScreenPreview(out, 2)
	if got != "line3\nline4" {
		t.Errorf("got %q", got)
	}
}

func TestIsUINoisePromptEcho(t *testing.T) {
	if !isUINoise("project] ❯ do the thing") {
		t.Error("expected prompt echo to be noise")
	}
}

func TestIsClaudeReadyBypassHint(t *testing.T) {
	output := "╭─ session ─╮\nSome context\nPress to bypass permissions\n"
	if !isClaudeReady(output) {
		t.Error("expected bypass-permissions hint to indicate readiness")
	}
}
