package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tendd/internal/core"
	"tendd/internal/tracker"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes the tracker's operations over the MCP stdio
// transport so an assistant can read and mutate the task list. All
// mutations go through the tracker, so connected web clients see them
// pushed live like any other edit.
type MCPServer struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewMCPServer creates a new MCP server instance.
func NewMCPServer(tr *tracker.Tracker, logger *slog.Logger) *MCPServer {
	return &MCPServer{tracker: tr, logger: logger}
}

// Run starts the MCP server using stdio transport.
func (s *MCPServer) Run() error {
	mcpServer := server.NewMCPServer(
		"tendd",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.logger.Info("MCP server starting on stdio")
	return server.ServeStdio(mcpServer)
}

func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("task_list",
		mcp.WithDescription("List all recurring tasks grouped into overdue, upcoming, and the rest"),
	), s.handleListTasks)

	mcpServer.AddTool(mcp.NewTool("task_add",
		mcp.WithDescription("Add a recurring task, e.g. 'water plants' every 3 days"),
		mcp.WithString("event",
			mcp.Required(),
			mcp.Description("What the task is, e.g. 'water plants'"),
		),
		mcp.WithNumber("every",
			mcp.Required(),
			mcp.Description("Cadence value, at least 1"),
			mcp.Min(1),
		),
		mcp.WithString("unit",
			mcp.Required(),
			mcp.Description("Cadence unit"),
			mcp.Enum("hours", "days", "weeks", "months"),
		),
	), s.handleAddTask)

	mcpServer.AddTool(mcp.NewTool("task_update",
		mcp.WithDescription("Update a task's label or cadence"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID"),
		),
		mcp.WithString("event",
			mcp.Description("New label"),
		),
		mcp.WithNumber("every",
			mcp.Description("New cadence value (requires unit)"),
			mcp.Min(1),
		),
		mcp.WithString("unit",
			mcp.Description("New cadence unit (requires every)"),
			mcp.Enum("hours", "days", "weeks", "months"),
		),
	), s.handleUpdateTask)

	mcpServer.AddTool(mcp.NewTool("task_complete",
		mcp.WithDescription("Mark a task done now; it becomes due again one cadence from now"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID"),
		),
	), s.handleCompleteTask)

	mcpServer.AddTool(mcp.NewTool("task_skip",
		mcp.WithDescription("Push a task's due time one cadence out from now without marking it done"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID"),
		),
	), s.handleSkipTask)

	mcpServer.AddTool(mcp.NewTool("task_delete",
		mcp.WithDescription("Delete a task"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID"),
		),
	), s.handleDeleteTask)

	s.logger.Info("MCP tools registered", "count", 6)
}

func (s *MCPServer) handleListTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := s.tracker.Now()
	board := s.tracker.Board(now)

	var b strings.Builder
	writeGroup(&b, "Overdue", board.Overdue, now)
	writeGroup(&b, "Upcoming", board.Upcoming, now)
	writeGroup(&b, "Later", board.Rest, now)
	if b.Len() == 0 {
		return mcp.NewToolResultText("No tasks yet."), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeGroup(b *strings.Builder, title string, tasks []core.Task, now time.Time) {
	if len(tasks) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, t := range tasks {
		fmt.Fprintf(b, "  [%s] %s — every %d %s, due %s\n",
			t.ID, t.Event, t.Frequency.Value, t.Frequency.Unit,
			core.FormatRelative(t.NextDueAt, now))
	}
	b.WriteString("\n")
}

func (s *MCPServer) handleAddTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	event := strings.TrimSpace(mcp.ParseString(request, "event", ""))
	freq := core.Frequency{
		Value: int(mcp.ParseFloat64(request, "every", 0)),
		Unit:  core.Unit(mcp.ParseString(request, "unit", "")),
	}
	task, err := s.tracker.Add(ctx, event, freq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid frequency: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added task %s: %s every %d %s, due %s",
		task.ID, task.Event, freq.Value, freq.Unit,
		task.NextDueAt.UTC().Format(time.RFC3339))), nil
}

func (s *MCPServer) handleUpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := mcp.ParseString(request, "task_id", "")

	var patch core.Patch
	if event := strings.TrimSpace(mcp.ParseString(request, "event", "")); event != "" {
		patch.Event = &event
	}
	every := int(mcp.ParseFloat64(request, "every", 0))
	unit := mcp.ParseString(request, "unit", "")
	if every > 0 || unit != "" {
		freq := core.Frequency{Value: every, Unit: core.Unit(unit)}
		patch.Frequency = &freq
	}

	task, ok, err := s.tracker.Update(ctx, taskID, patch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid frequency: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", taskID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated task %s, now due %s",
		task.ID, task.NextDueAt.UTC().Format(time.RFC3339))), nil
}

func (s *MCPServer) handleCompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := mcp.ParseString(request, "task_id", "")
	task, ok := s.tracker.Complete(ctx, taskID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", taskID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Completed %s, next due %s",
		task.Event, task.NextDueAt.UTC().Format(time.RFC3339))), nil
}

func (s *MCPServer) handleSkipTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := mcp.ParseString(request, "task_id", "")
	task, ok := s.tracker.Skip(ctx, taskID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", taskID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Skipped %s, next due %s",
		task.Event, task.NextDueAt.UTC().Format(time.RFC3339))), nil
}

func (s *MCPServer) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := mcp.ParseString(request, "task_id", "")
	s.tracker.Delete(ctx, taskID)
	return mcp.NewToolResultText(fmt.Sprintf("Deleted task %s", taskID)), nil
}
