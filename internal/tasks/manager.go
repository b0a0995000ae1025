package tasks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webpilot-ai/webpilot/internal/observability"
)

// Executor performs the actual work of a task. It must drive the task to a
// terminal status through the Context on every path, poll IsCancelled between
// steps, and treat an ErrCancelled from RequestUserInput as a signal to return
// promptly. A returned error (or a panic) is converted by the worker into a
// FAILED transition; it never stops the worker loop.
type Executor interface {
	Execute(ctx context.Context, tc *Context) error
}

// Interrupter is an optional capability that can stop external resources
// (e.g. an in-flight browser session) when a task is cancelled.
type Interrupter interface {
	Interrupt(taskID string)
}

// Manager owns the task table, the FIFO queue and the single worker. It is
// constructed explicitly and started with Start; stopping is driven by the
// context handed to Start.
type Manager struct {
	mu sync.RWMutex

	executor    Executor
	interrupter Interrupter
	metrics     *observability.Metrics

	tasks       map[string]*Task
	pending     []string
	wake        chan struct{}
	subscribers map[string]map[int]*subscriber
	nextSubID   int
	waiters     map[string]chan string
	cancelled   map[string]bool
	started     bool
}

func NewManager(executor Executor) *Manager {
	if executor == nil {
		executor = NoopExecutor{}
	}
	return &Manager{
		executor:    executor,
		tasks:       make(map[string]*Task),
		wake:        make(chan struct{}, 1),
		subscribers: make(map[string]map[int]*subscriber),
		waiters:     make(map[string]chan string),
		cancelled:   make(map[string]bool),
	}
}

func (m *Manager) SetInterrupter(i Interrupter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupter = i
}

func (m *Manager) SetMetrics(metrics *observability.Metrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = metrics
}

// Start launches the worker goroutine. Calling Start twice is a no-op. The
// worker exits when ctx is cancelled; queued tasks stay QUEUED.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()
	go m.workerLoop(ctx)
}

// Submit validates the instructions, creates a QUEUED record, appends the
// initial status event and enqueues the task id for the worker.
func (m *Manager) Submit(instructions string, metadata map[string]string) (Task, error) {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return Task{}, ErrEmptyInstructions
	}

	now := time.Now().UTC()
	task := &Task{
		ID:           uuid.NewString(),
		Instructions: instructions,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(metadata) > 0 {
		task.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			task.Metadata[k] = v
		}
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	m.appendEventLocked(task, Event{
		Message: "Task queued",
		Kind:    EventStatus,
		Status:  StatusQueued,
	})
	m.pending = append(m.pending, task.ID)
	if m.metrics != nil {
		m.metrics.TaskEvents.WithLabelValues("submitted").Inc()
	}
	m.noteQueueLocked()
	snapshot := task.Clone()
	m.mu.Unlock()

	m.signalWorker()
	return snapshot, nil
}

func (m *Manager) Get(id string) (Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return task.Clone(), true
}

func (m *Manager) List() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		out = append(out, task.Clone())
	}
	return out
}

// History returns the event snapshot for a task as of the call instant.
func (m *Manager) History(id string) ([]Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, false
	}
	out := make([]Event, len(task.Events))
	copy(out, task.Events)
	return out, true
}

// ProvideInput resolves the pending input waiter for a task with answer. The
// waiter is resolved exactly once; a second call without a new request fails
// with ErrNoWaiter.
func (m *Manager) ProvideInput(id, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyInput
	}

	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	waiter, ok := m.waiters[id]
	if !ok {
		m.mu.Unlock()
		return ErrNoWaiter
	}
	delete(m.waiters, id)
	task.PendingPrompt = ""
	if m.metrics != nil {
		m.metrics.TaskEvents.WithLabelValues("input_provided").Inc()
	}
	m.noteWaitersLocked()
	m.appendEventLocked(task, Event{
		Message: "User input received: " + answer,
		Kind:    EventUser,
	})
	m.applyStatusLocked(task, StatusRunning, "User input received")
	m.mu.Unlock()

	// Buffered one-slot channel owned exclusively by this call after the
	// delete above, so the send cannot block or race a second resolution.
	waiter <- answer
	return nil
}

// Cancel marks the task as cancelled. A QUEUED or WAITING_USER task is moved
// to CANCELLED immediately; a RUNNING task is expected to observe the flag
// via Context.IsCancelled and stop cooperatively.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if task.Terminal() {
		m.mu.Unlock()
		return nil
	}
	m.cancelled[id] = true
	interrupter := m.interrupter

	switch task.Status {
	case StatusQueued:
		m.removePendingLocked(id)
		m.noteQueueLocked()
		m.applyStatusLocked(task, StatusCancelled, "Task cancelled before start")
	case StatusWaitingUser, StatusPaused:
		if waiter, ok := m.waiters[id]; ok {
			delete(m.waiters, id)
			close(waiter)
		}
		task.PendingPrompt = ""
		m.noteWaitersLocked()
		m.applyStatusLocked(task, StatusCancelled, "Task cancelled")
	}
	m.mu.Unlock()

	if interrupter != nil {
		interrupter.Interrupt(id)
	}
	return nil
}

// Stats reports queue and table counters for metrics collection.
type Stats struct {
	ByStatus      map[Status]int
	QueueDepth    int
	Subscribers   int
	PendingInputs int
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Stats{
		ByStatus:      make(map[Status]int, len(m.tasks)),
		QueueDepth:    len(m.pending),
		PendingInputs: len(m.waiters),
	}
	for _, task := range m.tasks {
		out.ByStatus[task.Status]++
	}
	for _, subs := range m.subscribers {
		out.Subscribers += len(subs)
	}
	return out
}

func (m *Manager) workerLoop(ctx context.Context) {
	for {
		id, ok := m.dequeue(ctx)
		if !ok {
			return
		}
		m.runTask(ctx, id)
	}
}

func (m *Manager) dequeue(ctx context.Context) (string, bool) {
	for {
		m.mu.Lock()
		if len(m.pending) > 0 {
			id := m.pending[0]
			m.pending = append([]string(nil), m.pending[1:]...)
			m.noteQueueLocked()
			m.mu.Unlock()
			return id, true
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", false
		case <-m.wake:
		}
	}
}

func (m *Manager) runTask(ctx context.Context, id string) {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok || task.Status != StatusQueued {
		// Dropped or cancelled while queued.
		m.mu.Unlock()
		return
	}
	m.applyStatusLocked(task, StatusRunning, "Worker started the task")
	tc := &Context{
		manager:      m,
		taskID:       id,
		instructions: task.Instructions,
		metadata:     task.Metadata,
	}
	m.mu.Unlock()

	err := m.executeGuarded(ctx, tc)

	m.mu.Lock()
	terminal := task.Terminal()
	wasCancelled := m.cancelled[id]
	m.mu.Unlock()

	switch {
	case terminal:
	case wasCancelled:
		_ = m.setStatus(id, StatusCancelled, "Task cancelled")
	case err != nil:
		_ = m.fail(id, err.Error())
	default:
		_ = m.fail(id, "executor returned without reaching a terminal status")
	}
}

func (m *Manager) executeGuarded(ctx context.Context, tc *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("task %s: executor panic: %v", tc.taskID, r)
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return m.executor.Execute(ctx, tc)
}

func (m *Manager) signalWorker() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) removePendingLocked(id string) {
	out := m.pending[:0]
	for _, pid := range m.pending {
		if pid == id {
			continue
		}
		out = append(out, pid)
	}
	m.pending = out
}

// appendEvent records a LOG or USER event on the task and fans it out.
func (m *Manager) appendEvent(id string, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	m.appendEventLocked(task, evt)
	return nil
}

// setStatus applies a status transition and appends the corresponding STATUS
// event under one critical section, so a reader never observes one without
// the other. Transitions out of a terminal status are rejected.
func (m *Manager) setStatus(id string, status Status, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Terminal() {
		return ErrTaskTerminal
	}
	m.applyStatusLocked(task, status, message)
	return nil
}

func (m *Manager) complete(id, summary string) error {
	summary = strings.TrimSpace(summary)
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Terminal() {
		return ErrTaskTerminal
	}
	task.ResultSummary = summary
	m.applyStatusLocked(task, StatusCompleted, summary)
	return nil
}

func (m *Manager) fail(id, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Terminal() {
		return ErrTaskTerminal
	}
	task.ResultSummary = strings.TrimSpace(errorMessage)
	m.applyStatusLocked(task, StatusFailed, errorMessage)
	return nil
}

// requestInput registers the single-slot waiter for the task, moves it to
// WAITING_USER and blocks until ProvideInput resolves the waiter or Cancel
// closes it.
func (m *Manager) requestInput(id, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "Input required"
	}

	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return "", ErrTaskNotFound
	}
	if task.Terminal() {
		m.mu.Unlock()
		return "", ErrTaskTerminal
	}
	// A cancel issued while the task was RUNNING only sets the flag; a request
	// arriving afterwards must not register a waiter nothing will release.
	if m.cancelled[id] {
		m.mu.Unlock()
		return "", ErrCancelled
	}
	if _, exists := m.waiters[id]; exists {
		m.mu.Unlock()
		return "", ErrAlreadyWaiting
	}
	waiter := make(chan string, 1)
	m.waiters[id] = waiter
	task.PendingPrompt = prompt
	if m.metrics != nil {
		m.metrics.TaskEvents.WithLabelValues("input_requested").Inc()
	}
	m.noteWaitersLocked()
	m.applyStatusLocked(task, StatusWaitingUser, prompt)
	m.appendEventLocked(task, Event{
		Message: "Input requested: " + prompt,
		Kind:    EventUser,
		Level:   "warning",
	})
	metrics := m.metrics
	m.mu.Unlock()

	waitStart := time.Now()
	answer, ok := <-waiter
	if metrics != nil {
		metrics.ObserveInputWait(time.Since(waitStart))
	}
	if !ok {
		return "", ErrCancelled
	}
	return answer, nil
}

// applyStatusLocked mutates the status and appends the STATUS event while the
// caller holds m.mu.
func (m *Manager) applyStatusLocked(task *Task, status Status, message string) {
	task.Status = status
	if strings.TrimSpace(message) == "" {
		message = "Status updated: " + string(status)
	}
	m.appendEventLocked(task, Event{
		Message: message,
		Kind:    EventStatus,
		Status:  status,
	})
	if m.metrics != nil && status.Terminal() {
		m.metrics.TaskOutcomes.WithLabelValues(string(status)).Inc()
		m.metrics.ObserveTaskDuration(task.UpdatedAt.Sub(task.CreatedAt))
	}
}

func (m *Manager) noteQueueLocked() {
	if m.metrics != nil {
		m.metrics.QueueDepth.Set(float64(len(m.pending)))
	}
}

func (m *Manager) noteWaitersLocked() {
	if m.metrics != nil {
		m.metrics.PendingInputs.Set(float64(len(m.waiters)))
	}
}

// appendEventLocked appends the event to the task history and pushes it to
// every live subscriber. Subscriber pushes never block, so holding m.mu here
// is safe and preserves per-task delivery order.
func (m *Manager) appendEventLocked(task *Task, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.Level == "" {
		evt.Level = "info"
	}
	task.Events = append(task.Events, evt)
	task.UpdatedAt = evt.Timestamp

	for _, sub := range m.subscribers[task.ID] {
		sub.push(evt)
	}
}
