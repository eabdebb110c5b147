package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// Entities holds the structured fields extracted from one command span.
type Entities struct {
	// TaskID is an explicit numeric task reference, 0 if absent.
	TaskID int

	// QuotedText is the content of the first quoted segment, if any.
	QuotedText string

	// FreeText is the unquoted remainder after the intent keyword and
	// filler words are removed; used as title or reference text.
	FreeText string

	// Filter is the extracted status word for list commands, "" if absent.
	Filter models.ListFilter

	// NewValue is text following a "to" marker, used by update commands
	// ("change task 3 to buy oat milk").
	NewValue string

	// WantsDescription reports whether the span mentions the description
	// attribute explicitly.
	WantsDescription bool
}

var (
	// Single quotes only count when they open at a word boundary, so
	// apostrophes inside words are not mistaken for quoted titles.
	quotedRe = regexp.MustCompile(`"([^"]+)"|(?:^|\s)'([^']+)'`)
	digitRe  = regexp.MustCompile(`\d+`)
)

// fillerWords are dropped from the head and tail of free text so "add a task
// to buy milk" extracts "buy milk".
var fillerWords = map[string]bool{
	"a": true, "an": true, "the": true, "task": true, "tasks": true,
	"to": true, "my": true, "me": true, "please": true, "called": true,
	"named": true, "item": true, "todo": true, "that": true, "i": true,
	"should": true, "need": true, "list": true, "of": true, "for": true,
	"number": true,
}

// Extract pulls structured entities out of a command span. Pure function of
// its input; the intent guides which fields are meaningful but extraction
// itself is intent-agnostic.
func Extract(span string) Entities {
	var e Entities

	if m := quotedRe.FindStringSubmatch(span); m != nil {
		if m[1] != "" {
			e.QuotedText = m[1]
		} else {
			e.QuotedText = m[2]
		}
	}

	// Digit spans outside quotes are explicit task ids.
	unquoted := quotedRe.ReplaceAllString(span, "")
	if m := digitRe.FindString(unquoted); m != "" {
		if id, err := strconv.Atoi(m); err == nil {
			e.TaskID = id
		}
	}

	tokens := Tokenize(unquoted)
	for _, t := range tokens {
		if f, ok := matchStatusWord(t); ok {
			e.Filter = f
			break
		}
	}
	for _, t := range tokens {
		if t == "description" || t == "note" || t == "notes" {
			e.WantsDescription = true
			break
		}
	}

	e.FreeText = freeText(unquoted)
	e.NewValue = afterToMarker(unquoted)
	return e
}

// freeText returns the span with the leading intent keyword, digit spans,
// and surrounding filler words removed, preserving original word forms.
func freeText(span string) string {
	words := strings.Fields(span)
	var kept []string
	keywordSkipped := false
	for _, w := range words {
		trimmed := strings.ToLower(strings.Trim(w, `.,!?;:"'`))
		if trimmed == "" {
			continue
		}
		if !keywordSkipped {
			if _, ok := matchKeyword(trimmed); ok {
				keywordSkipped = true
				continue
			}
		}
		if digitRe.MatchString(trimmed) {
			continue
		}
		kept = append(kept, strings.Trim(w, `.,!?;:"'`))
	}

	return TrimFillerEdges(strings.Join(kept, " "))
}

// TrimFillerEdges strips filler words from both ends of a phrase, keeping
// interior words intact.
func TrimFillerEdges(s string) string {
	kept := strings.Fields(s)
	for len(kept) > 0 && fillerWords[strings.ToLower(kept[0])] {
		kept = kept[1:]
	}
	for len(kept) > 0 && fillerWords[strings.ToLower(kept[len(kept)-1])] {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, " ")
}

// afterToMarker returns the text following the last standalone "to", which
// update commands use as the replacement value.
func afterToMarker(span string) string {
	words := strings.Fields(span)
	last := -1
	for i, w := range words {
		if strings.EqualFold(strings.Trim(w, `.,!?;:`), "to") {
			last = i
		}
	}
	if last < 0 || last == len(words)-1 {
		return ""
	}
	var kept []string
	for _, w := range words[last+1:] {
		kept = append(kept, strings.Trim(w, `.,!?;:"'`))
	}
	return strings.Join(kept, " ")
}
