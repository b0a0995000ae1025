package tasks

import (
	"context"
	"fmt"
)

// Context is the only capability surface an Executor receives. It is bound to
// exactly one task for the duration of one execution; every mutation goes
// through the owning Manager.
type Context struct {
	manager      *Manager
	taskID       string
	instructions string
	metadata     map[string]string
}

func (c *Context) TaskID() string { return c.taskID }

func (c *Context) Instructions() string { return c.instructions }

func (c *Context) Metadata() map[string]string {
	if c.metadata == nil {
		return nil
	}
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Log appends a LOG event to the task history.
func (c *Context) Log(message, level string, metadata map[string]string) {
	_ = c.manager.appendEvent(c.taskID, Event{
		Message:  message,
		Kind:     EventLog,
		Level:    level,
		Metadata: metadata,
	})
}

func (c *Context) Logf(format string, args ...any) {
	c.Log(fmt.Sprintf(format, args...), "info", nil)
}

func (c *Context) SetStatus(status Status, message string) error {
	return c.manager.setStatus(c.taskID, status, message)
}

// Complete records the result summary and moves the task to COMPLETED.
func (c *Context) Complete(summary string) error {
	return c.manager.complete(c.taskID, summary)
}

// Fail moves the task to FAILED with errorMessage as the status message.
func (c *Context) Fail(errorMessage string) error {
	return c.manager.fail(c.taskID, errorMessage)
}

// RequestUserInput suspends the execution path until an external answer
// arrives through Manager.ProvideInput, or returns ErrCancelled if the task
// is cancelled while waiting.
func (c *Context) RequestUserInput(prompt string) (string, error) {
	return c.manager.requestInput(c.taskID, prompt)
}

// IsCancelled reports whether Cancel was called for this task. Executors are
// expected to poll it between steps and stop cooperatively.
func (c *Context) IsCancelled() bool {
	c.manager.mu.RLock()
	defer c.manager.mu.RUnlock()
	return c.manager.cancelled[c.taskID]
}

// NoopExecutor acknowledges the task without doing any work. It is the
// default when no executor is wired in.
type NoopExecutor struct{}

func (NoopExecutor) Execute(_ context.Context, tc *Context) error {
	tc.Log("No executor is configured; the task was accepted but not acted on.", "warning", nil)
	return tc.Complete("Task received; connect an executor to run it.")
}
