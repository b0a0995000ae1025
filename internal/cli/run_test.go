package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/webpilot-ai/webpilot/internal/tasks"
)

type funcExecutor func(ctx context.Context, tc *tasks.Context) error

func (f funcExecutor) Execute(ctx context.Context, tc *tasks.Context) error {
	return f(ctx, tc)
}

func newStartedManager(t *testing.T, executor tasks.Executor) *tasks.Manager {
	t.Helper()
	manager := tasks.NewManager(executor)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager.Start(ctx)
	return manager
}

func TestRunFollowsTaskToCompletion(t *testing.T) {
	manager := newStartedManager(t, funcExecutor(func(ctx context.Context, tc *tasks.Context) error {
		tc.Log("opening the site", "info", nil)
		return tc.Complete("all done")
	}))

	var out bytes.Buffer
	if err := Run(context.Background(), manager, "read my feeds", strings.NewReader(""), &out); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	text := out.String()
	for _, want := range []string{"submitted", "opening the site", "final status: COMPLETED", "all done"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunAnswersPrompt(t *testing.T) {
	manager := newStartedManager(t, funcExecutor(func(ctx context.Context, tc *tasks.Context) error {
		answer, err := tc.RequestUserInput("Proceed with checkout?")
		if err != nil {
			return err
		}
		return tc.Complete("you said " + answer)
	}))

	var out bytes.Buffer
	input := strings.NewReader("\nyes\n")
	if err := Run(context.Background(), manager, "buy the usual groceries", input, &out); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "please type an answer") {
		t.Fatalf("blank line should be re-asked locally:\n%s", text)
	}
	if !strings.Contains(text, "you said yes") {
		t.Fatalf("answer was not forwarded:\n%s", text)
	}
}

func TestRunReportsFailure(t *testing.T) {
	manager := newStartedManager(t, funcExecutor(func(ctx context.Context, tc *tasks.Context) error {
		return tc.Fail("the site is down")
	}))

	var out bytes.Buffer
	if err := Run(context.Background(), manager, "check the weather", strings.NewReader(""), &out); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !strings.Contains(out.String(), "final status: FAILED") {
		t.Fatalf("output missing failure status:\n%s", out.String())
	}
}

func TestRunRejectsBlankInstructions(t *testing.T) {
	manager := newStartedManager(t, nil)

	var out bytes.Buffer
	err := Run(context.Background(), manager, "  ", strings.NewReader(""), &out)
	if err == nil {
		t.Fatal("expected an error for blank instructions")
	}
}
