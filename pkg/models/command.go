package models

// Intent is the category of task operation a user utterance requests.
// It is a closed set; the intent resolver matches it exhaustively.
type Intent string

const (
	IntentAdd      Intent = "add"
	IntentList     Intent = "list"
	IntentComplete Intent = "complete"
	IntentDelete   Intent = "delete"
	IntentUpdate   Intent = "update"
	IntentHelp     Intent = "help"
	IntentUnknown  Intent = "unknown"
)

// NeedsTarget reports whether the intent requires a concrete task reference
// before it may reach the tool invocation gateway.
func (i Intent) NeedsTarget() bool {
	return i == IntentComplete || i == IntentDelete || i == IntentUpdate
}

// ToolName returns the remote tool endpoint that executes the intent, or ""
// for intents that never produce a tool call.
func (i Intent) ToolName() string {
	switch i {
	case IntentAdd:
		return "add_task"
	case IntentList:
		return "list_tasks"
	case IntentComplete:
		return "complete_task"
	case IntentDelete:
		return "delete_task"
	case IntentUpdate:
		return "update_task"
	}
	return ""
}

// ResolvedCommand is one atomic, fully resolved task operation derived from
// a sub-span of a user utterance. It is immutable once constructed and is
// consumed exactly once by the tool invocation gateway.
type ResolvedCommand struct {
	Intent Intent `json:"intent"`

	// TargetTaskID is the resolved task id for Complete/Delete/Update;
	// 0 means no target (Add/List/Help).
	TargetTaskID int `json:"target_task_id,omitempty"`

	// Fields maps attribute name to new value for Add/Update
	// (title, description) and carries the list filter for List.
	Fields map[string]string `json:"fields,omitempty"`

	// Confidence is the reference-resolution score in [0,1]. Commands
	// without a task reference carry 1.
	Confidence float64 `json:"confidence"`

	// RawSpan is the sub-utterance this command was derived from,
	// kept for error messages.
	RawSpan string `json:"raw_span"`
}

// ResultStatus classifies the outcome of one tool call.
type ResultStatus string

const (
	ResultSuccess          ResultStatus = "success"
	ResultNotFound         ResultStatus = "not_found"
	ResultValidationFailed ResultStatus = "validation_failed"
	ResultUnavailable      ResultStatus = "unavailable"
)

// ToolCallResult is the gateway's verdict on one ResolvedCommand. Exactly one
// is produced per command, in split order.
type ToolCallResult struct {
	Command ResolvedCommand `json:"command"`
	Status  ResultStatus    `json:"status"`

	// Payload holds tool output on success (e.g. the created task id,
	// or the listed tasks).
	Payload map[string]any `json:"payload,omitempty"`

	// ErrorDetail is a human-readable explanation for non-success
	// statuses, suitable for direct inclusion in the reply.
	ErrorDetail string `json:"error_detail,omitempty"`
}
