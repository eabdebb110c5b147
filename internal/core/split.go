package core

import (
	"strings"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// conjunction words that separate atomic commands when they appear outside
// quoted text.
var conjunctions = map[string]bool{
	"and":  true,
	"then": true,
}

// SplitSpans segments an utterance into ordered atomic command spans. A
// split is only accepted when every resulting span independently matches a
// recognizable intent; otherwise the whole utterance is returned as one
// span, because a false split that destroys a coherent command is worse
// than under-splitting. Output order equals left-to-right input order.
func SplitSpans(utterance string) []string {
	spans := splitCandidates(utterance)
	if len(spans) < 2 {
		return []string{strings.TrimSpace(utterance)}
	}
	for _, span := range spans {
		if MatchIntent(span) == models.IntentUnknown {
			return []string{strings.TrimSpace(utterance)}
		}
	}
	return spans
}

type word struct {
	text   string
	quoted bool
}

// splitCandidates cuts the utterance at commas and conjunction words outside
// quotes, discarding empty segments.
func splitCandidates(utterance string) []string {
	var spans []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			spans = append(spans, s)
		}
		current.Reset()
	}

	for _, w := range splitPreservingQuotes(utterance) {
		if w.quoted {
			current.WriteString(w.text)
			current.WriteByte(' ')
			continue
		}

		text := w.text
		trailingComma := strings.HasSuffix(text, ",")
		text = strings.TrimSuffix(text, ",")

		if conjunctions[strings.ToLower(text)] {
			flush()
			continue
		}
		current.WriteString(text)
		if trailingComma {
			flush()
		} else {
			current.WriteByte(' ')
		}
	}
	flush()
	return spans
}

// splitPreservingQuotes tokenizes into whitespace-separated words, merging
// quoted segments into single words so commas and conjunctions inside quotes
// never act as separators.
func splitPreservingQuotes(s string) []word {
	var words []word
	var current strings.Builder
	var quote rune
	inQuote := false

	flush := func(quoted bool) {
		if current.Len() > 0 {
			words = append(words, word{text: current.String(), quoted: quoted})
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case inQuote:
			current.WriteRune(r)
			if r == quote {
				flush(true)
				inQuote = false
			}
		case r == '"' || (r == '\'' && current.Len() == 0):
			// Apostrophes inside a word ("what's") are not quotes.
			flush(false)
			inQuote = true
			quote = r
			current.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n':
			flush(false)
		default:
			current.WriteRune(r)
		}
	}
	flush(inQuote)
	return words
}
