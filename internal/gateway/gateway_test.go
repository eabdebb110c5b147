package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// scriptedInvoker returns its scripted outcomes in order, then repeats the
// last one.
type scriptedInvoker struct {
	outcomes []error
	payload  map[string]any
	calls    int
}

func (f *scriptedInvoker) Invoke(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
	i := f.calls
	f.calls++
	if i >= len(f.outcomes) {
		i = len(f.outcomes) - 1
	}
	if i < 0 || f.outcomes[i] == nil {
		return f.payload, nil
	}
	return nil, f.outcomes[i]
}

func newTestGateway(invoker ToolInvoker) (*Gateway, *[]time.Duration) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	g := New(invoker, policy, models.BreakerConfig{FailThreshold: 5, Cooldown: 30 * time.Second}, nil)

	var slept []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return g, &slept
}

func completeCmd(id int) models.ResolvedCommand {
	return models.ResolvedCommand{
		Intent:       models.IntentComplete,
		TargetTaskID: id,
		Confidence:   1,
		RawSpan:      "complete task",
	}
}

func TestExecuteSuccessFirstAttempt(t *testing.T) {
	inv := &scriptedInvoker{payload: map[string]any{"task_id": float64(1)}}
	g, slept := newTestGateway(inv)

	result := g.Execute(context.Background(), "alice", completeCmd(1))
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.ErrorDetail)
	}
	if inv.calls != 1 {
		t.Errorf("expected 1 invocation, got %d", inv.calls)
	}
	if len(*slept) != 0 {
		t.Errorf("expected no backoff sleeps, got %v", *slept)
	}
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	inv := &scriptedInvoker{
		outcomes: []error{Transient(errors.New("timeout")), Transient(errors.New("timeout")), nil},
		payload:  map[string]any{"task_id": float64(1)},
	}
	g, slept := newTestGateway(inv)

	result := g.Execute(context.Background(), "alice", completeCmd(1))
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success on third attempt, got %s", result.Status)
	}
	if inv.calls != 3 {
		t.Errorf("expected 3 invocations, got %d", inv.calls)
	}
	if want := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}; len(*slept) != 2 || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("expected backoff %v, got %v", want, *slept)
	}

	// A call that eventually succeeds must not count against the breaker.
	cb := g.breakers.get("complete_task")
	if cb.consecutiveFailures != 0 {
		t.Errorf("expected zero breaker failures, got %d", cb.consecutiveFailures)
	}
}

func TestExecuteExhaustionIsOneBreakerFailure(t *testing.T) {
	inv := &scriptedInvoker{outcomes: []error{Transient(errors.New("down"))}}
	g, _ := newTestGateway(inv)

	result := g.Execute(context.Background(), "alice", completeCmd(1))
	if result.Status != models.ResultUnavailable {
		t.Fatalf("expected unavailable, got %s", result.Status)
	}
	if inv.calls != 3 {
		t.Errorf("expected all 3 attempts, got %d", inv.calls)
	}

	cb := g.breakers.get("complete_task")
	if cb.consecutiveFailures != 1 {
		t.Errorf("expected exactly one breaker failure per exhausted call, got %d", cb.consecutiveFailures)
	}
}

func TestExecuteNotFoundDoesNotRetry(t *testing.T) {
	inv := &scriptedInvoker{outcomes: []error{&NotFoundError{Detail: "task 9 not found"}}}
	g, slept := newTestGateway(inv)

	result := g.Execute(context.Background(), "alice", completeCmd(9))
	if result.Status != models.ResultNotFound {
		t.Fatalf("expected not_found, got %s", result.Status)
	}
	if result.ErrorDetail != "task 9 not found" {
		t.Errorf("expected detail surfaced, got %q", result.ErrorDetail)
	}
	if inv.calls != 1 || len(*slept) != 0 {
		t.Errorf("expected single attempt without backoff, got %d calls %v sleeps", inv.calls, *slept)
	}

	// A definitive answer means the endpoint is healthy.
	if g.breakers.get("complete_task").consecutiveFailures != 0 {
		t.Error("not_found must not count as a breaker failure")
	}
}

func TestExecuteValidationDoesNotRetry(t *testing.T) {
	inv := &scriptedInvoker{outcomes: []error{&ValidationError{Detail: "title is required"}}}
	g, _ := newTestGateway(inv)

	result := g.Execute(context.Background(), "alice", models.ResolvedCommand{Intent: models.IntentAdd, Confidence: 1})
	if result.Status != models.ResultValidationFailed {
		t.Fatalf("expected validation_failed, got %s", result.Status)
	}
	if inv.calls != 1 {
		t.Errorf("expected single attempt, got %d", inv.calls)
	}
}

func TestExecuteOpenCircuitSkipsInvocation(t *testing.T) {
	inv := &scriptedInvoker{outcomes: []error{Transient(errors.New("down"))}}
	g, _ := newTestGateway(inv)

	// Five exhausted calls trip the breaker.
	for i := 0; i < 5; i++ {
		g.Execute(context.Background(), "alice", completeCmd(1))
	}
	callsBefore := inv.calls

	result := g.Execute(context.Background(), "alice", completeCmd(1))
	if result.Status != models.ResultUnavailable {
		t.Fatalf("expected unavailable from open circuit, got %s", result.Status)
	}
	if inv.calls != callsBefore {
		t.Errorf("expected zero attempts while circuit open, got %d extra", inv.calls-callsBefore)
	}
	if result.ErrorDetail != unavailableDetail {
		t.Errorf("expected graceful degradation message, got %q", result.ErrorDetail)
	}
}

func TestExecuteContextCancelledDuringBackoff(t *testing.T) {
	inv := &scriptedInvoker{outcomes: []error{Transient(errors.New("down"))}}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	g := New(inv, policy, models.BreakerConfig{FailThreshold: 5, Cooldown: 30 * time.Second}, nil)
	g.sleep = func(_ context.Context, _ time.Duration) error {
		return context.Canceled
	}

	result := g.Execute(context.Background(), "alice", completeCmd(1))
	if result.Status != models.ResultUnavailable {
		t.Fatalf("expected unavailable on cancellation, got %s", result.Status)
	}
	if inv.calls != 1 {
		t.Errorf("expected retry loop to stop after cancellation, got %d calls", inv.calls)
	}
}

func TestExecuteHelpIntentRejected(t *testing.T) {
	g, _ := newTestGateway(&scriptedInvoker{})
	result := g.Execute(context.Background(), "alice", models.ResolvedCommand{Intent: models.IntentHelp, Confidence: 1})
	if result.Status != models.ResultValidationFailed {
		t.Errorf("expected validation_failed for non-tool intent, got %s", result.Status)
	}
}

func TestBuildArgs(t *testing.T) {
	cases := []struct {
		name string
		cmd  models.ResolvedCommand
		want map[string]any
	}{
		{
			name: "add with description",
			cmd: models.ResolvedCommand{
				Intent: models.IntentAdd,
				Fields: map[string]string{"title": "Buy milk", "description": "oat"},
			},
			want: map[string]any{"user_id": "alice", "title": "Buy milk", "description": "oat"},
		},
		{
			name: "list defaults to all",
			cmd:  models.ResolvedCommand{Intent: models.IntentList},
			want: map[string]any{"user_id": "alice", "filter": "all"},
		},
		{
			name: "list completed",
			cmd: models.ResolvedCommand{
				Intent: models.IntentList,
				Fields: map[string]string{"filter": "completed"},
			},
			want: map[string]any{"user_id": "alice", "filter": "completed"},
		},
		{
			name: "delete carries task id",
			cmd:  models.ResolvedCommand{Intent: models.IntentDelete, TargetTaskID: 3},
			want: map[string]any{"user_id": "alice", "task_id": 3},
		},
		{
			name: "update with title only",
			cmd: models.ResolvedCommand{
				Intent:       models.IntentUpdate,
				TargetTaskID: 2,
				Fields:       map[string]string{"title": "Buy oat milk"},
			},
			want: map[string]any{"user_id": "alice", "task_id": 2, "title": "Buy oat milk"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildArgs("alice", tc.cmd)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("arg %s: expected %v, got %v", k, v, got[k])
				}
			}
		})
	}
}
