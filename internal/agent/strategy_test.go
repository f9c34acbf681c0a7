package agent

import (
	"strings"
	"testing"

	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

func contextWithChars(n int) *Context {
	c := NewContext()
	c.Summary = strings.Repeat("x", n)
	return c
}

func TestCheckTokenStatusContinueWhenPlentyOfRoom(t *testing.T) {
	c := contextWithChars(40) // 10 tokens
	status := CheckTokenStatus(c, 1000, ContextStrategy{Kind: StrategyCompaction})
	if status.Kind != TokenContinue {
		t.Fatalf("kind = %v, want Continue", status.Kind)
	}
}

func TestCheckTokenStatusWarnNearLimit(t *testing.T) {
	// 1000 tokens used of 1200 window -> 16.7% remaining, between 10% and 25%.
	c := contextWithChars(4000)
	status := CheckTokenStatus(c, 1200, ContextStrategy{Kind: StrategyCompaction})
	if status.Kind != TokenWarn {
		t.Fatalf("kind = %v, want Warn", status.Kind)
	}
}

func TestCheckTokenStatusCriticalUsesStrategyAction(t *testing.T) {
	c := contextWithChars(4700) // 1175 tokens of 1200 -> ~2% remaining
	status := CheckTokenStatus(c, 1200, ContextStrategy{Kind: StrategyPauseResume, PauseCmd: "/pause"})
	if status.Kind != TokenCritical {
		t.Fatalf("kind = %v, want Critical", status.Kind)
	}
	if status.Action != "pause:/pause" {
		t.Fatalf("action = %q", status.Action)
	}
}

func TestCheckTokenStatusZeroWindowAlwaysContinues(t *testing.T) {
	c := contextWithChars(1_000_000)
	status := CheckTokenStatus(c, 0, ContextStrategy{})
	if status.Kind != TokenContinue {
		t.Fatalf("kind = %v, want Continue", status.Kind)
	}
}

func TestContextPushTrimsToWindow(t *testing.T) {
	c := NewContext()
	for i := 0; i < contextWindowMessages+5; i++ {
		c.Push(providers.Message{Role: "user", Content: "m"})
	}
	if len(c.Messages) != contextWindowMessages {
		t.Fatalf("messages = %d, want %d", len(c.Messages), contextWindowMessages)
	}
}
