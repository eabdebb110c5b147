package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// fakeAssist returns a canned hint or error, recording what it was asked.
type fakeAssist struct {
	hint  *AssistHint
	err   error
	spans []string
}

func (f *fakeAssist) Interpret(_ context.Context, span string, _ []models.Task) (*AssistHint, error) {
	f.spans = append(f.spans, span)
	return f.hint, f.err
}

func newTestResolver(assist Assist) *IntentResolver {
	return NewIntentResolver(NewReferenceResolver(DefaultFuzzyThreshold), assist)
}

func resolveOne(t *testing.T, ir *IntentResolver, span string, snapshot []models.Task) CommandResolution {
	t.Helper()
	got := ir.ResolveUtterance(context.Background(), span, snapshot)
	if len(got) != 1 {
		t.Fatalf("got %d resolutions, want 1", len(got))
	}
	return got[0]
}

func TestResolveAddQuoted(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), `add "buy milk"`, nil)
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.Intent != models.IntentAdd {
		t.Errorf("Intent = %q, want add", cr.Command.Intent)
	}
	if got := cr.Command.Fields["title"]; got != "buy milk" {
		t.Errorf("title = %q, want %q", got, "buy milk")
	}
}

func TestResolveAddFreeText(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "remember to water the plants", nil)
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if got := cr.Command.Fields["title"]; got != "water the plants" {
		t.Errorf("title = %q, want %q", got, "water the plants")
	}
}

func TestResolveAddWithoutTitleRejected(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "add", nil)
	if cr.Rejected == nil {
		t.Fatal("expected rejection")
	}
	if cr.Rejected.Status != models.ResultValidationFailed {
		t.Errorf("Status = %q, want validation_failed", cr.Rejected.Status)
	}
}

func TestResolveListDefaultsToAll(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "show my tasks", nil)
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if got := cr.Command.Fields["filter"]; got != string(models.FilterAll) {
		t.Errorf("filter = %q, want all", got)
	}
}

func TestResolveListWithStatusWord(t *testing.T) {
	tests := []struct {
		span string
		want models.ListFilter
	}{
		{"list completed tasks", models.FilterCompleted},
		{"show open tasks", models.FilterOpen},
		{"show me what's remaining", models.FilterOpen},
		{"list all my tasks", models.FilterAll},
	}
	for _, tt := range tests {
		cr := resolveOne(t, newTestResolver(nil), tt.span, nil)
		if cr.Rejected != nil {
			t.Fatalf("%q rejected: %s", tt.span, cr.Rejected.ErrorDetail)
		}
		if got := cr.Command.Fields["filter"]; got != string(tt.want) {
			t.Errorf("%q: filter = %q, want %q", tt.span, got, tt.want)
		}
	}
}

func TestResolveCompleteByTitle(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "complete the milk task", testSnapshot())
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.Intent != models.IntentComplete || cr.Command.TargetTaskID != 1 {
		t.Errorf("got %+v, want complete task 1", cr.Command)
	}
}

func TestResolveDeleteByExplicitID(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "delete task 3", testSnapshot())
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.Intent != models.IntentDelete || cr.Command.TargetTaskID != 3 {
		t.Errorf("got %+v, want delete task 3", cr.Command)
	}
}

func TestResolveUpdateWithToMarker(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "change the milk task to buy oat milk", testSnapshot())
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.TargetTaskID != 1 {
		t.Errorf("TargetTaskID = %d, want 1", cr.Command.TargetTaskID)
	}
	if got := cr.Command.Fields["title"]; got != "buy oat milk" {
		t.Errorf("title = %q, want %q", got, "buy oat milk")
	}
}

func TestResolveUpdateDescription(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "update task 2 description to call the new dentist", testSnapshot())
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.TargetTaskID != 2 {
		t.Errorf("TargetTaskID = %d, want 2", cr.Command.TargetTaskID)
	}
	if got := cr.Command.Fields["description"]; got != "call the new dentist" {
		t.Errorf("description = %q, want %q", got, "call the new dentist")
	}
	if _, ok := cr.Command.Fields["title"]; ok {
		t.Error("title should not be set for a description update")
	}
}

func TestResolveUpdateWithoutChangeRejected(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "update the milk task", testSnapshot())
	if cr.Rejected == nil {
		t.Fatal("expected rejection")
	}
	if cr.Rejected.Status != models.ResultValidationFailed {
		t.Errorf("Status = %q, want validation_failed", cr.Rejected.Status)
	}
}

func TestResolveUnresolvedReferenceRejected(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "complete the groceries task", testSnapshot())
	if cr.Rejected == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(cr.Rejected.ErrorDetail, "groceries") {
		t.Errorf("detail %q should name the reference", cr.Rejected.ErrorDetail)
	}
}

func TestResolveAmbiguousReferenceListsCandidates(t *testing.T) {
	snapshot := []models.Task{
		{ID: 1, Title: "Buy milk", Status: models.StatusOpen},
		{ID: 2, Title: "Buy bread", Status: models.StatusOpen},
	}
	cr := resolveOne(t, newTestResolver(nil), "complete the grocery task", snapshot)
	if cr.Rejected == nil {
		t.Fatal("expected rejection")
	}
	if cr.Rejected.Status != models.ResultValidationFailed {
		t.Errorf("Status = %q, want validation_failed", cr.Rejected.Status)
	}
	detail := cr.Rejected.ErrorDetail
	if !strings.Contains(detail, "Buy milk") || !strings.Contains(detail, "Buy bread") {
		t.Errorf("detail %q should list both candidate titles", detail)
	}
}

func TestResolveUnknownIntentRejected(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "the weather is nice", nil)
	if cr.Rejected == nil {
		t.Fatal("expected rejection")
	}
	if cr.Command.Intent != models.IntentUnknown {
		t.Errorf("Intent = %q, want unknown", cr.Command.Intent)
	}
}

func TestResolveHelpHandledLocally(t *testing.T) {
	cr := resolveOne(t, newTestResolver(nil), "help", nil)
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.Intent != models.IntentHelp {
		t.Errorf("Intent = %q, want help", cr.Command.Intent)
	}
}

func TestAssistUpgradesUnknownWhenReferenceResolves(t *testing.T) {
	assist := &fakeAssist{hint: &AssistHint{Intent: models.IntentComplete, TaskRef: "milk"}}
	cr := resolveOne(t, newTestResolver(assist), "the milk one", testSnapshot())
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.Intent != models.IntentComplete || cr.Command.TargetTaskID != 1 {
		t.Errorf("got %+v, want complete task 1", cr.Command)
	}
}

func TestAssistHintRejectedWhenReferenceUnresolved(t *testing.T) {
	assist := &fakeAssist{hint: &AssistHint{Intent: models.IntentDelete, TaskRef: "no such task at all"}}
	cr := resolveOne(t, newTestResolver(assist), "the thing from before", testSnapshot())
	if cr.Rejected == nil {
		t.Fatal("expected rejection when the hint fails validation")
	}
}

func TestAssistCannotOverrideLexicalIntent(t *testing.T) {
	assist := &fakeAssist{hint: &AssistHint{Intent: models.IntentDelete, TaskRef: "milk"}}
	cr := resolveOne(t, newTestResolver(assist), "complete the milk task", testSnapshot())
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if cr.Command.Intent != models.IntentComplete {
		t.Errorf("Intent = %q, want the lexical match to win", cr.Command.Intent)
	}
}

func TestAssistErrorIsSwallowed(t *testing.T) {
	assist := &fakeAssist{err: errors.New("model unavailable")}
	cr := resolveOne(t, newTestResolver(assist), `add "buy milk"`, nil)
	if cr.Rejected != nil {
		t.Fatalf("rejected: %s", cr.Rejected.ErrorDetail)
	}
	if got := cr.Command.Fields["title"]; got != "buy milk" {
		t.Errorf("title = %q, want %q", got, "buy milk")
	}
}

func TestResolveUtterancePreservesSpanOrder(t *testing.T) {
	ir := newTestResolver(nil)
	got := ir.ResolveUtterance(context.Background(), "add buy milk and delete task 3", testSnapshot())
	if len(got) != 2 {
		t.Fatalf("got %d resolutions, want 2", len(got))
	}
	if got[0].Command.Intent != models.IntentAdd {
		t.Errorf("first intent = %q, want add", got[0].Command.Intent)
	}
	if got[1].Command.Intent != models.IntentDelete || got[1].Command.TargetTaskID != 3 {
		t.Errorf("second = %+v, want delete task 3", got[1].Command)
	}
}
