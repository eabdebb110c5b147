package core

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// verbs that open a recognizable atomic command.
var commandVerbs = []string{"add", "complete", "delete", "update", "list"}

// Property 1: Order Preservation
// For any sequence of atomic commands joined by conjunctions, the splitter
// SHALL return exactly those commands, in left-to-right input order.
func TestProperty_SplitPreservesOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "n")

		// Consonant-only words cannot collide with taxonomy keywords,
		// conjunctions, or status words.
		wordGen := rapid.StringMatching(`[bcdfgmprt]{3,8}`)

		spans := make([]string, 0, n)
		for i := 0; i < n; i++ {
			verb := rapid.SampledFrom(commandVerbs).Draw(rt, "verb")
			spans = append(spans, verb+" "+wordGen.Draw(rt, "word"))
		}

		joiner := rapid.SampledFrom([]string{" and ", " then ", ", "}).Draw(rt, "joiner")
		utterance := strings.Join(spans, joiner)

		got := SplitSpans(utterance)
		if len(got) != n {
			rt.Fatalf("SplitSpans(%q) produced %d spans, want %d", utterance, len(got), n)
		}
		for i := range spans {
			if got[i] != spans[i] {
				rt.Errorf("span %d: got %q, want %q", i, got[i], spans[i])
			}
		}
	})
}

// Property 2: Split Safety
// Splitting SHALL never produce a span without a recognizable intent: either
// every span matches, or the utterance is returned whole.
func TestProperty_SplitNeverYieldsUnknownSpans(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		utterance := rapid.StringMatching(`[a-z0-9 ,']{1,60}`).Draw(rt, "utterance")

		got := SplitSpans(utterance)
		if len(got) < 2 {
			return
		}
		for _, span := range got {
			if MatchIntent(span) == models.IntentUnknown {
				rt.Fatalf("SplitSpans(%q) produced unknown-intent span %q", utterance, span)
			}
		}
	})
}
