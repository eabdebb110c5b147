// Package llm implements the optional LLM interpretation assist. The assist
// is strictly best-effort enrichment: the pipeline must produce correct
// results when it is misconfigured, slow, or entirely unavailable.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/valter-silva-au/todo-chat/internal/core"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

const systemPrompt = `You interpret one todo-list command. Reply with a single JSON object, no prose:
{"intent":"add|list|complete|delete|update|help|unknown","task_ref":"","title":"","description":""}
"task_ref" is the words identifying an existing task, "title" the new task title.
Use "unknown" unless the text clearly requests a task operation.`

// Assist implements core.Assist against an OpenAI-compatible chat API.
type Assist struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

// New creates an Assist from configuration. Returns nil when no API key is
// configured, which callers treat as "assist disabled".
func New(cfg models.AssistConfig) *Assist {
	if cfg.APIKey == "" {
		return nil
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Assist{
		client:  openai.NewClient(opts...),
		model:   openai.ChatModel(cfg.Model),
		timeout: timeout,
	}
}

// Interpret asks the model for a structured reading of the span. Low
// temperature, bounded by its own timeout so a slow model cannot stall the
// deterministic path.
func (a *Assist) Interpret(ctx context.Context, span string, snapshot []models.Task) (*core.AssistHint, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	user := fmt.Sprintf("Known open tasks: %s\nCommand: %s", snapshotJSON(snapshot), span)

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       a.model,
		Temperature: openai.Float(0.1),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("assist completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("assist completion: empty response")
	}

	return parseHint(resp.Choices[0].Message.Content)
}

// snapshotJSON renders the open-task snapshot as compact JSON for the
// prompt, ids and titles only.
func snapshotJSON(snapshot []models.Task) string {
	out := "[]"
	for i, t := range snapshot {
		out, _ = sjson.Set(out, fmt.Sprintf("%d.id", i), t.ID)
		out, _ = sjson.Set(out, fmt.Sprintf("%d.title", i), t.Title)
	}
	return out
}

// parseHint extracts the structured hint from the model reply, tolerating
// code fences around the JSON.
func parseHint(raw string) (*core.AssistHint, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("assist reply is not a JSON object")
	}

	intent := models.Intent(parsed.Get("intent").String())
	switch intent {
	case models.IntentAdd, models.IntentList, models.IntentComplete,
		models.IntentDelete, models.IntentUpdate, models.IntentHelp, models.IntentUnknown:
	default:
		return nil, fmt.Errorf("assist proposed unknown intent %q", intent)
	}

	return &core.AssistHint{
		Intent:      intent,
		TaskRef:     parsed.Get("task_ref").String(),
		Title:       parsed.Get("title").String(),
		Description: parsed.Get("description").String(),
	}, nil
}
