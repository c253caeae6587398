package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tendd/internal/core"
)

type boardResponse struct {
	Now      string         `json:"now"`
	Overdue  []taskResponse `json:"overdue"`
	Upcoming []taskResponse `json:"upcoming"`
	Rest     []taskResponse `json:"rest"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.boardSnapshot())
}

// handleEvents streams board snapshots over SSE: one on connect, then
// one per tracker notification (task change or refresh tick). The
// subscription is torn down when the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes, cancel := s.tracker.Watch()
	defer cancel()

	if err := writeBoardEvent(w, s.boardSnapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := writeBoardEvent(w, s.boardSnapshot()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) boardSnapshot() boardResponse {
	now := s.tracker.Now()
	board := s.tracker.Board(now)
	return boardResponse{
		Now:      now.UTC().Format(time.RFC3339),
		Overdue:  tasksToResponses(board.Overdue, now),
		Upcoming: tasksToResponses(board.Upcoming, now),
		Rest:     tasksToResponses(board.Rest, now),
	}
}

func tasksToResponses(tasks []core.Task, now time.Time) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t, now))
	}
	return out
}

func writeBoardEvent(w http.ResponseWriter, board boardResponse) error {
	data, err := json.Marshal(board)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: board\ndata: %s\n\n", data)
	return err
}
