package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// AssistHint is a best-effort interpretation proposed by the LLM assist.
type AssistHint struct {
	Intent      models.Intent
	TaskRef     string
	Title       string
	Description string
}

// Assist proposes an interpretation of a command span. Implementations are
// unreliable and optional: any error is treated as "no hint".
type Assist interface {
	Interpret(ctx context.Context, span string, snapshot []models.Task) (*AssistHint, error)
}

// CommandResolution pairs either a gateway-ready command or a local
// rejection produced without touching the gateway.
type CommandResolution struct {
	Command models.ResolvedCommand

	// Rejected is non-nil when the intent resolver refused the command
	// (unknown intent, unresolved reference, missing required field).
	Rejected *models.ToolCallResult
}

// IntentResolver combines the lexicon, extractor, splitter, and reference
// resolver into typed ResolvedCommand values.
type IntentResolver struct {
	refs   *ReferenceResolver
	assist Assist // may be nil
}

// NewIntentResolver creates an IntentResolver. assist may be nil to run in
// pure deterministic mode.
func NewIntentResolver(refs *ReferenceResolver, assist Assist) *IntentResolver {
	return &IntentResolver{refs: refs, assist: assist}
}

// ResolveUtterance splits an utterance and resolves each span into a
// command or a local rejection, preserving left-to-right order.
func (ir *IntentResolver) ResolveUtterance(ctx context.Context, utterance string, snapshot []models.Task) []CommandResolution {
	spans := SplitSpans(utterance)
	resolutions := make([]CommandResolution, 0, len(spans))
	for _, span := range spans {
		resolutions = append(resolutions, ir.resolveSpan(ctx, span, snapshot))
	}
	return resolutions
}

// resolveSpan turns one atomic span into a command, consulting the assist
// only within its acceptance rules.
func (ir *IntentResolver) resolveSpan(ctx context.Context, span string, snapshot []models.Task) CommandResolution {
	intent := MatchIntent(span)
	entities := Extract(span)
	hint := ir.hint(ctx, span, snapshot)

	if intent == models.IntentUnknown {
		// The assist may only upgrade an Unknown when its guess is
		// independently validated by the reference resolver.
		if hint != nil && hint.Intent.NeedsTarget() {
			res := ir.refs.Resolve(0, hint.TaskRef, snapshot)
			if res.Resolved {
				return ir.buildTargeted(hint.Intent, span, entities, res, hint)
			}
		}
		return reject(models.IntentUnknown, span,
			"I didn't recognize a task command there. Try \"help\" to see what I understand.")
	}

	switch intent {
	case models.IntentHelp:
		return CommandResolution{Command: models.ResolvedCommand{
			Intent:     models.IntentHelp,
			Confidence: 1,
			RawSpan:    span,
		}}

	case models.IntentAdd:
		title := entities.QuotedText
		if title == "" {
			title = entities.FreeText
		}
		if title == "" && hint != nil && hint.Intent == models.IntentAdd {
			title = hint.Title
		}
		if strings.TrimSpace(title) == "" {
			return reject(intent, span, "I couldn't tell what task to add. Try: add \"buy milk\".")
		}
		fields := map[string]string{"title": title}
		if hint != nil && hint.Intent == models.IntentAdd && hint.Description != "" {
			fields["description"] = hint.Description
		}
		return CommandResolution{Command: models.ResolvedCommand{
			Intent:     models.IntentAdd,
			Fields:     fields,
			Confidence: 1,
			RawSpan:    span,
		}}

	case models.IntentList:
		filter := string(entities.Filter)
		if filter == "" {
			filter = string(models.FilterAll)
		}
		return CommandResolution{Command: models.ResolvedCommand{
			Intent:     models.IntentList,
			Fields:     map[string]string{"filter": filter},
			Confidence: 1,
			RawSpan:    span,
		}}

	case models.IntentComplete, models.IntentDelete, models.IntentUpdate:
		refText := entities.QuotedText
		if refText == "" {
			refText = entities.FreeText
		}
		if intent == models.IntentUpdate && entities.NewValue != "" {
			// "change <ref> to <value>": the reference is what precedes
			// the marker, not the whole free text.
			refText = TrimFillerEdges(strings.TrimSuffix(refText, entities.NewValue))
		}
		res := ir.refs.Resolve(entities.TaskID, refText, snapshot)
		if !res.Resolved {
			return reject(intent, span, disambiguationMessage(intent, refText, res.Candidates))
		}
		return ir.buildTargeted(intent, span, entities, res, hint)
	}

	return reject(models.IntentUnknown, span,
		"I didn't recognize a task command there. Try \"help\" to see what I understand.")
}

// buildTargeted assembles a Complete/Delete/Update command once its target
// is resolved. The invariant that targeted intents carry a concrete task id
// holds by construction here.
func (ir *IntentResolver) buildTargeted(intent models.Intent, span string, entities Entities, res Resolution, hint *AssistHint) CommandResolution {
	cmd := models.ResolvedCommand{
		Intent:       intent,
		TargetTaskID: res.TaskID,
		Confidence:   res.Confidence,
		RawSpan:      span,
	}
	if intent == models.IntentUpdate {
		fields := map[string]string{}
		if entities.QuotedText != "" {
			if entities.WantsDescription {
				fields["description"] = entities.QuotedText
			} else {
				fields["title"] = entities.QuotedText
			}
		} else if entities.NewValue != "" {
			if entities.WantsDescription {
				fields["description"] = entities.NewValue
			} else {
				fields["title"] = entities.NewValue
			}
		}
		if len(fields) == 0 && hint != nil && hint.Intent == models.IntentUpdate {
			if hint.Title != "" {
				fields["title"] = hint.Title
			}
			if hint.Description != "" {
				fields["description"] = hint.Description
			}
		}
		if len(fields) == 0 {
			return reject(intent, span,
				"I couldn't tell what to change. Try: update task 3 to \"new title\".")
		}
		cmd.Fields = fields
	}
	return CommandResolution{Command: cmd}
}

// hint asks the assist for an interpretation, swallowing failures: the
// pipeline must produce correct results with the assist entirely absent.
func (ir *IntentResolver) hint(ctx context.Context, span string, snapshot []models.Task) *AssistHint {
	if ir.assist == nil {
		return nil
	}
	h, err := ir.assist.Interpret(ctx, span, snapshot)
	if err != nil {
		return nil
	}
	return h
}

func reject(intent models.Intent, span, detail string) CommandResolution {
	cmd := models.ResolvedCommand{Intent: intent, RawSpan: span}
	return CommandResolution{
		Command: cmd,
		Rejected: &models.ToolCallResult{
			Command:     cmd,
			Status:      models.ResultValidationFailed,
			ErrorDetail: detail,
		},
	}
}

// disambiguationMessage builds the corrective message for an unresolved
// reference, listing the closest candidates instead of guessing.
func disambiguationMessage(intent models.Intent, refText string, candidates []string) string {
	verb := map[models.Intent]string{
		models.IntentComplete: "complete",
		models.IntentDelete:   "delete",
		models.IntentUpdate:   "update",
	}[intent]

	if refText == "" {
		return fmt.Sprintf("I couldn't tell which task to %s. Give me a task number or title.", verb)
	}
	if len(candidates) == 0 {
		return fmt.Sprintf("I couldn't find a task matching %q to %s.", refText, verb)
	}
	return fmt.Sprintf("I couldn't confidently match %q. Did you mean: %s?",
		refText, strings.Join(candidates, ", "))
}
