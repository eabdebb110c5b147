package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valter-silva-au/todo-chat/internal/observability"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// NotFoundError reports that the referenced task does not exist. Never retried.
type NotFoundError struct {
	Detail string
}

func (e *NotFoundError) Error() string { return e.Detail }

// ValidationError reports that the tool rejected malformed arguments. Never retried.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// ToolInvoker is the sole point of contact with the remote tool endpoints.
// Implementations must classify failures: wrap retryable ones with Transient,
// and return *NotFoundError / *ValidationError for business rejections.
type ToolInvoker interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error)
}

// Gateway executes ResolvedCommands as remote tool calls behind a retry
// policy and per-endpoint circuit breakers.
type Gateway struct {
	invoker  ToolInvoker
	policy   RetryPolicy
	breakers *breakerRegistry
	events   observability.EventLog

	// sleep waits between retry attempts, honouring context cancellation.
	// Replaced in tests with a fake clock.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Gateway. events may be nil to disable event logging.
func New(invoker ToolInvoker, policy RetryPolicy, breakerCfg models.BreakerConfig, events observability.EventLog) *Gateway {
	g := &Gateway{
		invoker: invoker,
		policy:  policy,
		events:  events,
		sleep:   sleepContext,
	}
	g.breakers = newBreakerRegistry(breakerCfg, func(endpoint string, from, to CircuitState) {
		observability.LogBreakerChange(events, endpoint, from.String(), to.String())
	})
	return g
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// unavailableDetail is the graceful-degradation message shown to users when
// an endpoint is down or its circuit is open.
const unavailableDetail = "the task service is temporarily unavailable, please try again"

// Execute runs one ResolvedCommand as a tool call and maps the outcome to a
// ToolCallResult. It never returns an error: every failure mode terminates
// in a typed result status.
func (g *Gateway) Execute(ctx context.Context, userID string, cmd models.ResolvedCommand) models.ToolCallResult {
	tool := cmd.Intent.ToolName()
	if tool == "" {
		return models.ToolCallResult{
			Command:     cmd,
			Status:      models.ResultValidationFailed,
			ErrorDetail: fmt.Sprintf("intent %q does not map to a tool", cmd.Intent),
		}
	}

	cb := g.breakers.get(tool)
	if !cb.Allow() {
		// Circuit open: reject without a network attempt.
		observability.LogToolCall(g.events, tool, string(models.ResultUnavailable), 0)
		return models.ToolCallResult{
			Command:     cmd,
			Status:      models.ResultUnavailable,
			ErrorDetail: unavailableDetail,
		}
	}

	args := BuildArgs(userID, cmd)

	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := g.sleep(ctx, g.policy.Delay(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		payload, err := g.invoker.Invoke(ctx, tool, args)
		if err == nil {
			cb.RecordSuccess()
			observability.LogToolCall(g.events, tool, string(models.ResultSuccess), attempt)
			return models.ToolCallResult{
				Command: cmd,
				Status:  models.ResultSuccess,
				Payload: payload,
			}
		}

		var nf *NotFoundError
		if errors.As(err, &nf) {
			// The endpoint answered; only the task is missing.
			cb.RecordSuccess()
			observability.LogToolCall(g.events, tool, string(models.ResultNotFound), attempt)
			return models.ToolCallResult{
				Command:     cmd,
				Status:      models.ResultNotFound,
				ErrorDetail: nf.Detail,
			}
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			cb.RecordSuccess()
			observability.LogToolCall(g.events, tool, string(models.ResultValidationFailed), attempt)
			return models.ToolCallResult{
				Command:     cmd,
				Status:      models.ResultValidationFailed,
				ErrorDetail: ve.Detail,
			}
		}

		if !IsTransient(err) {
			// Unknown failure shape: do not retry blind.
			lastErr = err
			break
		}
		lastErr = err
	}

	// Retries exhausted (or aborted): one breaker failure for the whole call.
	cb.RecordFailure()
	observability.LogToolCall(g.events, tool, string(models.ResultUnavailable), g.policy.MaxAttempts)
	detail := unavailableDetail
	if lastErr != nil {
		detail = fmt.Sprintf("%s (%s)", unavailableDetail, lastErr)
	}
	return models.ToolCallResult{
		Command:     cmd,
		Status:      models.ResultUnavailable,
		ErrorDetail: detail,
	}
}

// BreakerStatus returns a snapshot of all endpoint breakers for reporting.
func (g *Gateway) BreakerStatus() map[string]any {
	return g.breakers.status()
}

// BuildArgs maps a ResolvedCommand onto the argument set of its tool
// endpoint. All calls carry the user-scoped key.
func BuildArgs(userID string, cmd models.ResolvedCommand) map[string]any {
	args := map[string]any{"user_id": userID}
	switch cmd.Intent {
	case models.IntentAdd:
		args["title"] = cmd.Fields["title"]
		if desc, ok := cmd.Fields["description"]; ok && desc != "" {
			args["description"] = desc
		}
	case models.IntentList:
		filter := cmd.Fields["filter"]
		if filter == "" {
			filter = string(models.FilterAll)
		}
		args["filter"] = filter
	case models.IntentComplete, models.IntentDelete:
		args["task_id"] = cmd.TargetTaskID
	case models.IntentUpdate:
		args["task_id"] = cmd.TargetTaskID
		if title, ok := cmd.Fields["title"]; ok && title != "" {
			args["title"] = title
		}
		if desc, ok := cmd.Fields["description"]; ok && desc != "" {
			args["description"] = desc
		}
	}
	return args
}
