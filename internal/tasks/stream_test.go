package tasks

import (
	"context"
	"testing"
	"time"
)

func collectUntilTerminal(t *testing.T, feed <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case evt, ok := <-feed:
			if !ok {
				return out
			}
			out = append(out, evt)
			if evt.Kind == EventStatus && evt.Status.Terminal() {
				return out
			}
		case <-deadline:
			t.Fatalf("stream did not reach a terminal event; got %d events", len(out))
		}
	}
}

func TestStreamUnknownTaskClosesImmediately(t *testing.T) {
	m := NewManager(NoopExecutor{})
	feed, cancel := m.StreamEvents("missing")
	defer cancel()
	select {
	case _, ok := <-feed:
		if ok {
			t.Fatalf("got event for unknown task")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel for unknown task not closed")
	}
}

func TestStreamReplayThenLiveIsGapFree(t *testing.T) {
	step := make(chan struct{})
	exec := funcExecutor{run: func(_ context.Context, tc *Context) error {
		tc.Log("step 1", "info", nil)
		<-step
		tc.Log("step 2", "info", nil)
		return tc.Complete("all steps done")
	}}
	m := NewManager(exec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	task, _ := m.Submit("two step task", nil)

	// Let the task accumulate some history before subscribing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		history, _ := m.History(task.ID)
		found := false
		for _, evt := range history {
			if evt.Message == "step 1" {
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never logged step 1")
		}
		time.Sleep(5 * time.Millisecond)
	}

	feed, cancelFeed := m.StreamEvents(task.ID)
	defer cancelFeed()
	step <- struct{}{}

	events := collectUntilTerminal(t, feed, 2*time.Second)

	final, _ := m.Get(task.ID)
	if len(events) != len(final.Events) {
		t.Fatalf("stream delivered %d events, history has %d", len(events), len(final.Events))
	}
	for i, evt := range events {
		if evt.Message != final.Events[i].Message || evt.Kind != final.Events[i].Kind {
			t.Fatalf("event %d mismatch: stream %q/%q vs history %q/%q",
				i, evt.Kind, evt.Message, final.Events[i].Kind, final.Events[i].Message)
		}
	}
}

func TestStreamTwoSubscribersSeeSameOrder(t *testing.T) {
	exec := funcExecutor{run: func(_ context.Context, tc *Context) error {
		for i := 0; i < 20; i++ {
			tc.Logf("tick %d", i)
		}
		return tc.Complete("ticks done")
	}}
	m := NewManager(exec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task, _ := m.Submit("many events", nil)
	feedA, cancelA := m.StreamEvents(task.ID)
	defer cancelA()
	feedB, cancelB := m.StreamEvents(task.ID)
	defer cancelB()

	m.Start(ctx)

	eventsA := collectUntilTerminal(t, feedA, 2*time.Second)
	eventsB := collectUntilTerminal(t, feedB, 2*time.Second)

	if len(eventsA) != len(eventsB) {
		t.Fatalf("subscriber lengths differ: %d vs %d", len(eventsA), len(eventsB))
	}
	for i := range eventsA {
		if eventsA[i].Message != eventsB[i].Message {
			t.Fatalf("event %d differs between subscribers: %q vs %q", i, eventsA[i].Message, eventsB[i].Message)
		}
	}
}

func TestSlowSubscriberDoesNotBlockTask(t *testing.T) {
	exec := funcExecutor{run: func(_ context.Context, tc *Context) error {
		for i := 0; i < 200; i++ {
			tc.Logf("burst %d", i)
		}
		return tc.Complete("burst done")
	}}
	m := NewManager(exec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task, _ := m.Submit("event burst", nil)
	feed, cancelFeed := m.StreamEvents(task.ID)
	defer cancelFeed()

	m.Start(ctx)
	// The task must finish even though nobody reads the feed yet: publishes
	// land in the subscriber buffer instead of blocking the worker.
	waitStatus(t, m, task.ID, StatusCompleted, 2*time.Second)

	events := collectUntilTerminal(t, feed, 2*time.Second)
	final, _ := m.Get(task.ID)
	if len(events) != len(final.Events) {
		t.Fatalf("late read delivered %d events, history has %d", len(events), len(final.Events))
	}
}

func TestHistorySnapshotIsStable(t *testing.T) {
	m := NewManager(NoopExecutor{})
	task, _ := m.Submit("snapshot", nil)

	history, ok := m.History(task.ID)
	if !ok {
		t.Fatalf("History() unknown task")
	}
	before := len(history)

	tc := &Context{manager: m, taskID: task.ID}
	tc.Log("after snapshot", "info", nil)

	if len(history) != before {
		t.Fatalf("snapshot grew from %d to %d", before, len(history))
	}
	now, _ := m.History(task.ID)
	if len(now) != before+1 {
		t.Fatalf("history len = %d, want %d", len(now), before+1)
	}
}
