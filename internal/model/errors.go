package model

import "fmt"

// NotFoundError reports a missing entity: project, event, work item,
// session, or memory.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// AlreadyExistsError reports a conflicting create, e.g. starting an instance
// for a project that already has one, or a multiplexer session name in use.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.ID)
}

// InvalidArgumentsError reports a malformed tool call, bad enum string, or
// bad timestamp.
type InvalidArgumentsError struct {
	What string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", e.What)
}

// IOError wraps a filesystem read/write failure.
type IOError struct {
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error at %s: %v", e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// MultiplexerError wraps a terminal-multiplexer (C1) failure.
type MultiplexerError struct {
	Cause error
}

func (e *MultiplexerError) Error() string {
	return fmt.Sprintf("multiplexer error: %v", e.Cause)
}

func (e *MultiplexerError) Unwrap() error { return e.Cause }

// ModelError wraps an LLM transport or decoding failure. Recoverable at the
// agent level, bounded by the tool-calling loop's iteration cap.
type ModelError struct {
	Cause error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error: %v", e.Cause)
}

func (e *ModelError) Unwrap() error { return e.Cause }

// MemoryError wraps a vector store failure. Logged and swallowed for
// non-critical search calls (empty result returned instead), surfaced for
// writes.
type MemoryError struct {
	Cause error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory error: %v", e.Cause)
}

func (e *MemoryError) Unwrap() error { return e.Cause }

// ToolNotFoundError reports a tool-call dispatch to an unregistered tool
// name.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// ToolExecutionError wraps a failure raised by a tool while executing.
type ToolExecutionError struct {
	Name  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// MaxIterationsExceededError reports that the tool-calling loop hit its
// hard iteration cap without producing a final plain-text reply.
type MaxIterationsExceededError struct {
	N int
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("max tool iterations exceeded: %d", e.N)
}
