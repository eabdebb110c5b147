// Package mcp provides the MCP (Model Context Protocol) surface of the task
// service: a server exposing the five task-mutation tools, and a
// client-session invoker the gateway calls them through.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/todo-chat/internal/storage"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// Error code prefixes carried in error results so clients can classify
// failures without parsing prose.
const (
	codeNotFound   = "not_found"
	codeValidation = "invalid"
)

// Server exposes the task store as MCP tools.
type Server struct {
	server *gomcp.Server
	tasks  storage.TaskStore
}

// NewServer creates a new MCP server backed by the given task store.
func NewServer(tasks storage.TaskStore, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{tasks: tasks}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "todo-chat", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for in-process connections and
// testing.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type addTaskInput struct {
	UserID      string `json:"user_id" jsonschema:"required,the owning user id"`
	Title       string `json:"title" jsonschema:"required,the task title"`
	Description string `json:"description,omitempty" jsonschema:"optional longer description"`
}

type taskOutput struct {
	TaskID      int    `json:"task_id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
}

type listTasksInput struct {
	UserID string `json:"user_id" jsonschema:"required,the owning user id"`
	Filter string `json:"filter,omitempty" jsonschema:"filter tasks by status (all, open, completed)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type taskRefInput struct {
	UserID string `json:"user_id" jsonschema:"required,the owning user id"`
	TaskID int    `json:"task_id" jsonschema:"required,the numeric task id"`
}

type updateTaskInput struct {
	UserID      string `json:"user_id" jsonschema:"required,the owning user id"`
	TaskID      int    `json:"task_id" jsonschema:"required,the numeric task id"`
	Title       string `json:"title,omitempty" jsonschema:"new title, unchanged if empty"`
	Description string `json:"description,omitempty" jsonschema:"new description, unchanged if empty"`
}

type deleteTaskOutput struct {
	TaskID  int  `json:"task_id"`
	Deleted bool `json:"deleted"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_task",
		Description: "Add a new task for a user. Returns the stored task with its assigned id.",
	}, s.handleAddTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List a user's tasks with an optional status filter (all, open, completed).",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as completed.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Update a task's title or description. Empty fields are left unchanged.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task permanently.",
	}, s.handleDeleteTask)
}

// --- Tool handlers ---

func (s *Server) handleAddTask(_ context.Context, _ *gomcp.CallToolRequest, input addTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.UserID == "" {
		return errorResult(codeValidation, "user_id is required"), taskOutput{}, nil
	}
	if strings.TrimSpace(input.Title) == "" {
		return errorResult(codeValidation, "title is required"), taskOutput{}, nil
	}

	task, err := s.tasks.AddTask(input.UserID, strings.TrimSpace(input.Title), strings.TrimSpace(input.Description))
	if err != nil {
		return errorResult(codeValidation, fmt.Sprintf("adding task: %s", err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.UserID == "" {
		return errorResult(codeValidation, "user_id is required"), listTasksOutput{}, nil
	}

	filter := models.ListFilter(input.Filter)
	if input.Filter == "" {
		filter = models.FilterAll
	}
	if !filter.Valid() {
		return errorResult(codeValidation, fmt.Sprintf("invalid filter %q: must be one of all, open, completed", input.Filter)), listTasksOutput{}, nil
	}

	tasks, err := s.tasks.ListTasks(input.UserID, filter)
	if err != nil {
		return errorResult(codeValidation, fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i := range tasks {
		out.Tasks[i] = taskToOutput(&tasks[i])
	}
	return nil, out, nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, taskOutput, error) {
	if res := validateTaskRef(input); res != nil {
		return res, taskOutput{}, nil
	}

	task, err := s.tasks.CompleteTask(input.UserID, input.TaskID)
	if err != nil {
		return taskOpError("completing", input.TaskID, err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if res := validateTaskRef(taskRefInput{UserID: input.UserID, TaskID: input.TaskID}); res != nil {
		return res, taskOutput{}, nil
	}
	if input.Title == "" && input.Description == "" {
		return errorResult(codeValidation, "nothing to update: provide a title or description"), taskOutput{}, nil
	}

	updates := storage.TaskUpdates{}
	if input.Title != "" {
		title := strings.TrimSpace(input.Title)
		updates.Title = &title
	}
	if input.Description != "" {
		desc := strings.TrimSpace(input.Description)
		updates.Description = &desc
	}

	task, err := s.tasks.UpdateTask(input.UserID, input.TaskID, updates)
	if err != nil {
		return taskOpError("updating", input.TaskID, err), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleDeleteTask(_ context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, deleteTaskOutput, error) {
	if res := validateTaskRef(input); res != nil {
		return res, deleteTaskOutput{}, nil
	}

	if err := s.tasks.DeleteTask(input.UserID, input.TaskID); err != nil {
		return taskOpError("deleting", input.TaskID, err), deleteTaskOutput{}, nil
	}
	return nil, deleteTaskOutput{TaskID: input.TaskID, Deleted: true}, nil
}

// --- Helpers ---

func validateTaskRef(input taskRefInput) *gomcp.CallToolResult {
	if input.UserID == "" {
		return errorResult(codeValidation, "user_id is required")
	}
	if input.TaskID <= 0 {
		return errorResult(codeValidation, "task_id must be a positive integer")
	}
	return nil
}

// taskOpError maps a store error to a classified error result.
func taskOpError(verb string, taskID int, err error) *gomcp.CallToolResult {
	if errors.Is(err, storage.ErrTaskNotFound) {
		return errorResult(codeNotFound, fmt.Sprintf("task %d not found", taskID))
	}
	return errorResult(codeValidation, fmt.Sprintf("%s task %d: %s", verb, taskID, err))
}

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		TaskID:      t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Created:     t.Created.Format(time.RFC3339),
		Updated:     t.Updated.Format(time.RFC3339),
	}
}

// errorResult builds an error tool result whose text is "<code>: <msg>", so
// callers can classify the failure without parsing prose.
func errorResult(code, msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: code + ": " + msg}},
		IsError: true,
	}
}
