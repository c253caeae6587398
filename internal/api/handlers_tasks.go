package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tendd/internal/core"

	"github.com/go-chi/chi/v5"
)

type frequencyPayload struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type createTaskRequest struct {
	Event     string           `json:"event"`
	Frequency frequencyPayload `json:"frequency"`
}

type updateTaskRequest struct {
	Event      *string           `json:"event"`
	Frequency  *frequencyPayload `json:"frequency"`
	LastDoneAt *string           `json:"last_done_at"`
}

type taskResponse struct {
	ID         string           `json:"id"`
	Event      string           `json:"event"`
	Frequency  frequencyPayload `json:"frequency"`
	LastDoneAt *string          `json:"last_done_at,omitempty"`
	NextDueAt  string           `json:"next_due_at"`
	DueIn      string           `json:"due_in"`
	CreatedAt  string           `json:"created_at"`
	UpdatedAt  string           `json:"updated_at"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	freq := core.Frequency{Value: req.Frequency.Value, Unit: core.Unit(req.Frequency.Unit)}
	task, err := s.tracker.Add(r.Context(), strings.TrimSpace(req.Event), freq)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_frequency", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, taskToResponse(task, s.tracker.Now()))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	now := s.tracker.Now()
	tasks := s.tracker.Tasks()
	res := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, taskToResponse(t, now))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, ok := s.tracker.Get(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(task, s.tracker.Now()))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	var patch core.Patch
	if req.Event != nil {
		event := strings.TrimSpace(*req.Event)
		patch.Event = &event
	}
	if req.Frequency != nil {
		freq := core.Frequency{Value: req.Frequency.Value, Unit: core.Unit(req.Frequency.Unit)}
		patch.Frequency = &freq
	}
	if req.LastDoneAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.LastDoneAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "last_done_at must be RFC3339")
			return
		}
		patch.LastDoneAt = &parsed
	}

	task, ok, err := s.tracker.Update(r.Context(), taskID, patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_frequency", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(task, s.tracker.Now()))
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, ok := s.tracker.Complete(r.Context(), taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(task, s.tracker.Now()))
}

func (s *Server) handleSkipTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, ok := s.tracker.Skip(r.Context(), taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}
	writeJSON(w, http.StatusOK, taskToResponse(task, s.tracker.Now()))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	// Deleting a task that is already gone (by another client) is a
	// no-op, so delete is idempotent.
	s.tracker.Delete(r.Context(), chi.URLParam(r, "taskID"))
	w.WriteHeader(http.StatusNoContent)
}

func taskToResponse(task core.Task, now time.Time) taskResponse {
	var last *string
	if task.LastDoneAt != nil {
		formatted := task.LastDoneAt.UTC().Format(time.RFC3339)
		last = &formatted
	}
	return taskResponse{
		ID:    task.ID,
		Event: task.Event,
		Frequency: frequencyPayload{
			Value: task.Frequency.Value,
			Unit:  string(task.Frequency.Unit),
		},
		LastDoneAt: last,
		NextDueAt:  task.NextDueAt.UTC().Format(time.RFC3339),
		DueIn:      core.FormatRelative(task.NextDueAt, now),
		CreatedAt:  task.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  task.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	payload := map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
	writeJSON(w, status, payload)
}
