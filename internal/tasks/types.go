package tasks

import "time"

type Status string

const (
	StatusQueued      Status = "queued"
	StatusRunning     Status = "running"
	StatusWaitingUser Status = "waiting_user"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// legalEdges is the transition table of the task state machine. QUEUED is the
// only initial state; COMPLETED, FAILED and CANCELLED are terminal.
var legalEdges = map[Status][]Status{
	StatusQueued:      {StatusRunning, StatusCancelled},
	StatusRunning:     {StatusWaitingUser, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled},
	StatusWaitingUser: {StatusRunning, StatusCancelled},
	StatusPaused:      {StatusRunning, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range legalEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

type EventKind string

const (
	EventLog    EventKind = "log"
	EventStatus EventKind = "status"
	EventUser   EventKind = "user"
)

// Event is an immutable entry in a task's history. Status is set only on
// EventStatus entries.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Kind      EventKind         `json:"kind"`
	Level     string            `json:"level"`
	Status    Status            `json:"status,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Task struct {
	ID            string            `json:"id"`
	Instructions  string            `json:"instructions"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Events        []Event           `json:"events"`
	ResultSummary string            `json:"result_summary,omitempty"`
	PendingPrompt string            `json:"pending_prompt,omitempty"`
}

func (t Task) Clone() Task {
	out := t
	if t.Events != nil {
		out.Events = make([]Event, len(t.Events))
		copy(out.Events, t.Events)
	}
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func (t Task) Terminal() bool {
	return t.Status.Terminal()
}

// ShortID returns the first uuid segment, used in log lines and table views.
func (t Task) ShortID() string {
	for i := 0; i < len(t.ID); i++ {
		if t.ID[i] == '-' {
			return t.ID[:i]
		}
	}
	return t.ID
}
