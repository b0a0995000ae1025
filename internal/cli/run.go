// Package cli implements the one-shot command line mode: submit a single
// task, tail its event stream and answer input prompts interactively.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/webpilot-ai/webpilot/internal/tasks"
)

// Run submits instructions as one task and follows it to a terminal status,
// printing every event to out. When the task asks for input, Run reads one
// line from in and forwards it. Cancelling ctx cancels the task.
func Run(ctx context.Context, manager *tasks.Manager, instructions string, in io.Reader, out io.Writer) error {
	task, err := manager.Submit(instructions, map[string]string{"origin": "cli"})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "task %s submitted\n", task.ShortID())

	events, cancel := manager.StreamEvents(task.ID)
	defer cancel()

	reader := bufio.NewReader(in)
	for {
		select {
		case <-ctx.Done():
			_ = manager.Cancel(task.ID)
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return errors.New("event stream closed unexpectedly")
			}
			printEvent(out, evt)

			if evt.Kind == tasks.EventStatus && evt.Status == tasks.StatusWaitingUser {
				if err := answerPrompt(manager, task.ID, reader, out); err != nil {
					return err
				}
			}
			if evt.Kind == tasks.EventStatus && evt.Status.Terminal() {
				printOutcome(out, manager, task.ID)
				return nil
			}
		}
	}
}

func printEvent(out io.Writer, evt tasks.Event) {
	stamp := evt.Timestamp.Local().Format("15:04:05")
	level := strings.ToUpper(evt.Level)
	fmt.Fprintf(out, "[%s] %-7s %s\n", stamp, level, evt.Message)
}

// answerPrompt reads lines until the manager accepts one. A blank line is
// rejected locally and asked again; ErrNoWaiter means the task moved on
// (e.g. it was cancelled from the API) and is not an error here.
func answerPrompt(manager *tasks.Manager, taskID string, reader *bufio.Reader, out io.Writer) error {
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading input: %w", err)
		}
		switch err := manager.ProvideInput(taskID, line); {
		case err == nil:
			return nil
		case errors.Is(err, tasks.ErrEmptyInput):
			fmt.Fprintln(out, "please type an answer")
		case errors.Is(err, tasks.ErrNoWaiter):
			return nil
		default:
			return err
		}
	}
}

func printOutcome(out io.Writer, manager *tasks.Manager, taskID string) {
	task, ok := manager.Get(taskID)
	if !ok {
		return
	}
	fmt.Fprintf(out, "\nfinal status: %s\n", strings.ToUpper(string(task.Status)))
	if task.ResultSummary != "" {
		fmt.Fprintln(out, task.ResultSummary)
	}
}
