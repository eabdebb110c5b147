package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/todo-chat/internal/observability"
	"github.com/valter-silva-au/todo-chat/internal/storage"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// helpText lists the phrasings the pipeline understands.
const helpText = `I can manage your tasks. Try: add "buy milk"; list my tasks; ` +
	`list completed tasks; complete task 2; update task 2 to "buy bread"; delete task 2. ` +
	`You can chain commands with "and" or "then".`

// SnapshotReader provides the reference-data read used by task reference
// resolution: the caller's current open tasks, no older than the start of
// the turn.
type SnapshotReader interface {
	OpenTasks(ctx context.Context, userID string) ([]models.Task, error)
}

// Executor runs one resolved command as a tool call. Satisfied by
// *gateway.Gateway.
type Executor interface {
	Execute(ctx context.Context, userID string, cmd models.ResolvedCommand) models.ToolCallResult
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	ConversationID string
	Reply          string
	Results        []models.ToolCallResult
}

// Pipeline is the command-resolution and resilient-invocation pipeline: the
// single entry point the transport layer calls per chat turn.
type Pipeline struct {
	intents     *IntentResolver
	executor    Executor
	snapshots   SnapshotReader
	convs       storage.ConversationStore
	events      observability.EventLog
	turnTimeout time.Duration
	now         func() time.Time
}

// NewPipeline wires the pipeline. events may be nil; turnTimeout <= 0
// disables the per-turn deadline.
func NewPipeline(intents *IntentResolver, executor Executor, snapshots SnapshotReader, convs storage.ConversationStore, events observability.EventLog, turnTimeout time.Duration) *Pipeline {
	return &Pipeline{
		intents:     intents,
		executor:    executor,
		snapshots:   snapshots,
		convs:       convs,
		events:      events,
		turnTimeout: turnTimeout,
		now:         time.Now,
	}
}

// ResolveAndExecute handles one chat turn: it persists the user message,
// resolves the utterance into commands, executes them in split order, and
// persists the assistant reply with its tool-call records. Every failure
// path terminates in a typed result; no fault escapes as an error other
// than conversation persistence itself failing.
func (p *Pipeline) ResolveAndExecute(ctx context.Context, userID, conversationID, utterance string) (*TurnResult, error) {
	if p.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.turnTimeout)
		defer cancel()
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if err := p.convs.Append(conversationID, userID, models.Message{
		Role:      models.RoleUser,
		Content:   utterance,
		Timestamp: p.now(),
	}); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	// Snapshot the open tasks once, at the start of the turn. A failed
	// read degrades to explicit-id-only resolution rather than failing
	// the turn.
	snapshot, err := p.snapshots.OpenTasks(ctx, userID)
	if err != nil {
		snapshot = nil
	}

	resolutions := p.intents.ResolveUtterance(ctx, utterance, snapshot)

	results := make([]models.ToolCallResult, 0, len(resolutions))
	failures := 0
	for _, res := range resolutions {
		var result models.ToolCallResult
		switch {
		case res.Rejected != nil:
			result = *res.Rejected
		case res.Command.Intent == models.IntentHelp:
			result = models.ToolCallResult{
				Command: res.Command,
				Status:  models.ResultSuccess,
				Payload: map[string]any{"help": helpText},
			}
		default:
			// Sequential, in split order: user-stated order is the
			// execution order.
			result = p.executor.Execute(ctx, userID, res.Command)
		}
		if result.Status != models.ResultSuccess {
			failures++
		}
		results = append(results, result)
	}

	reply := ComposeReply(results)

	records := make([]models.ToolCallRecord, 0, len(results))
	for _, r := range results {
		records = append(records, models.ToolCallRecord{
			Tool:        r.Command.Intent.ToolName(),
			Args:        toolArgs(userID, r),
			Status:      r.Status,
			Payload:     r.Payload,
			ErrorDetail: r.ErrorDetail,
		})
	}
	if err := p.convs.Append(conversationID, userID, models.Message{
		Role:      models.RoleAssistant,
		Content:   reply,
		ToolCalls: records,
		Timestamp: p.now(),
	}); err != nil {
		return nil, fmt.Errorf("persisting assistant message: %w", err)
	}

	observability.LogTurn(p.events, userID, conversationID, len(results), failures)

	return &TurnResult{
		ConversationID: conversationID,
		Reply:          reply,
		Results:        results,
	}, nil
}

// toolArgs reconstructs the argument map recorded with a tool call. Local
// rejections and help carry no args.
func toolArgs(userID string, r models.ToolCallResult) map[string]any {
	if r.Command.Intent.ToolName() == "" {
		return nil
	}
	args := map[string]any{"user_id": userID}
	for k, v := range r.Command.Fields {
		args[k] = v
	}
	if r.Command.TargetTaskID > 0 {
		args["task_id"] = r.Command.TargetTaskID
	}
	return args
}

// ComposeReply turns the ordered results into one sentence of feedback per
// command, concatenated in split order.
func ComposeReply(results []models.ToolCallResult) string {
	sentences := make([]string, 0, len(results))
	for _, r := range results {
		sentences = append(sentences, sentenceFor(r))
	}
	return strings.Join(sentences, " ")
}

func sentenceFor(r models.ToolCallResult) string {
	switch r.Status {
	case models.ResultSuccess:
		return successSentence(r)
	case models.ResultNotFound:
		if r.ErrorDetail != "" {
			return upperFirst(r.ErrorDetail) + "."
		}
		return "I couldn't find that task."
	case models.ResultUnavailable:
		return "The task service is temporarily unavailable, please try again."
	default: // ValidationFailed and anything unexpected
		if r.ErrorDetail != "" {
			return r.ErrorDetail
		}
		return "I couldn't make sense of that command."
	}
}

func successSentence(r models.ToolCallResult) string {
	switch r.Command.Intent {
	case models.IntentHelp:
		return helpText
	case models.IntentAdd:
		title := r.Command.Fields["title"]
		if id, ok := payloadInt(r.Payload, "task_id"); ok {
			return fmt.Sprintf("I've added %q to your list (task %d).", title, id)
		}
		return fmt.Sprintf("I've added %q to your list.", title)
	case models.IntentList:
		return listSentence(r.Payload)
	case models.IntentComplete:
		return fmt.Sprintf("I've marked task %d as completed.", r.Command.TargetTaskID)
	case models.IntentDelete:
		return fmt.Sprintf("I've deleted task %d.", r.Command.TargetTaskID)
	case models.IntentUpdate:
		return fmt.Sprintf("I've updated task %d.", r.Command.TargetTaskID)
	}
	return "Done."
}

// listSentence summarizes a list_tasks payload.
func listSentence(payload map[string]any) string {
	tasks, _ := payload["tasks"].([]any)
	if len(tasks) == 0 {
		return "You have no tasks matching that filter."
	}

	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		m, ok := t.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		status, _ := m["status"].(string)
		if id, ok := payloadInt(m, "task_id"); ok {
			titles = append(titles, fmt.Sprintf("%d: %s (%s)", id, title, status))
		} else {
			titles = append(titles, title)
		}
	}
	plural := "s"
	if len(tasks) == 1 {
		plural = ""
	}
	return fmt.Sprintf("You have %d task%s: %s.", len(tasks), plural, strings.Join(titles, "; "))
}

// payloadInt reads an integer out of a JSON-decoded payload, where numbers
// arrive as float64.
func payloadInt(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
