package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/webpilot-ai/webpilot/internal/tasks"
)

type createTaskRequest struct {
	Instructions string            `json:"instructions"`
	Metadata     map[string]string `json:"metadata"`
}

type createTaskResponse struct {
	TaskID    string       `json:"task_id"`
	Status    tasks.Status `json:"status"`
	CreatedAt string       `json:"created_at"`
}

type provideInputRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	task, err := s.manager.Submit(req.Instructions, req.Metadata)
	if err != nil {
		if errors.Is(err, tasks.ErrEmptyInstructions) {
			respondError(w, http.StatusBadRequest, "invalid_request", "instructions are required")
			return
		}
		respondError(w, http.StatusBadRequest, "task_create_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, createTaskResponse{
		TaskID:    task.ID,
		Status:    task.Status,
		CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	task, ok := s.manager.Get(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "task_not_found", "no task with id "+taskID)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		if n > 200 {
			n = 200
		}
		limit = n
	}

	list := s.manager.List()
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	// Event histories can be large; the list endpoint returns summaries only.
	for i := range list {
		list[i].Events = nil
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tasks": list,
	})
}

func (s *Server) handleListTaskEvents(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	events, ok := s.manager.History(taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "task_not_found", "no task with id "+taskID)
		return
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"task_id": taskID,
		"events":  events,
	})
}

func (s *Server) handleProvideInput(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	var req provideInputRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := s.manager.ProvideInput(taskID, req.Answer)
	switch {
	case err == nil:
	case errors.Is(err, tasks.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "task_not_found", err.Error())
		return
	case errors.Is(err, tasks.ErrEmptyInput):
		respondError(w, http.StatusBadRequest, "invalid_request", "answer is required")
		return
	case errors.Is(err, tasks.ErrNoWaiter):
		respondError(w, http.StatusConflict, "no_pending_input", err.Error())
		return
	default:
		respondError(w, http.StatusBadRequest, "input_failed", err.Error())
		return
	}

	task, _ := s.manager.Get(taskID)
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "invalid_task_id", "missing task id")
		return
	}

	if err := s.manager.Cancel(taskID); err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "task_cancel_failed", err.Error())
		return
	}

	task, _ := s.manager.Get(taskID)
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	stats := s.manager.Stats()
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"by_status":      byStatus,
		"queue_depth":    stats.QueueDepth,
		"subscribers":    stats.Subscribers,
		"pending_inputs": stats.PendingInputs,
	})
}
