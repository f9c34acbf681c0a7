package agent

import (
	"github.com/bobmatnyc/ai-commander-sub001/internal/memory"
	"github.com/bobmatnyc/ai-commander-sub001/internal/providers"
)

// contextWindowMessages is K in spec.md §4.9: the number of recent messages
// a Context retains verbatim before the rest is summarized.
const contextWindowMessages = 10

// Context carries everything the tool-calling loop assembles into a chat
// request: the current task (if any), a trailing window of recent
// messages, a standing summary of older history, and memories retrieved
// for the current turn.
type Context struct {
	CurrentTask      string
	Messages         []providers.Message
	Summary          string
	RelevantMemories []memory.SearchResult
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{}
}

// Push appends a message and trims to the last contextWindowMessages.
func (c *Context) Push(msg providers.Message) {
	c.Messages = append(c.Messages, msg)
	if len(c.Messages) > contextWindowMessages {
		c.Messages = c.Messages[len(c.Messages)-contextWindowMessages:]
	}
}

// EstimatedTokens approximates token count as char-count/4 across the
// summary, the retrieved memories, and every retained message.
func (c *Context) EstimatedTokens() int {
	chars := len(c.Summary)
	for _, m := range c.RelevantMemories {
		chars += len(m.Memory.Content)
	}
	for _, m := range c.Messages {
		chars += len(m.Content)
	}
	return chars / 4
}
