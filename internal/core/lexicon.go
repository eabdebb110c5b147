// Package core contains the command-resolution pipeline: lexical matching,
// entity extraction, command splitting, task reference resolution, and the
// turn orchestrator that ties them to the tool invocation gateway.
package core

import (
	"strings"
	"unicode"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// intentKeywords is the fixed keyword taxonomy. Matching is done on whole
// normalized tokens, never substrings, so "undelete" does not match "delete".
var intentKeywords = map[string]models.Intent{
	"add":      models.IntentAdd,
	"create":   models.IntentAdd,
	"remember": models.IntentAdd,

	"list": models.IntentList,
	"show": models.IntentList,
	"see":  models.IntentList,

	"done":     models.IntentComplete,
	"complete": models.IntentComplete,
	"finish":   models.IntentComplete,

	"delete": models.IntentDelete,
	"remove": models.IntentDelete,

	"update": models.IntentUpdate,
	"change": models.IntentUpdate,
	"edit":   models.IntentUpdate,

	"help": models.IntentHelp,
}

// statusWords maps normalized tokens to list filters.
var statusWords = map[string]models.ListFilter{
	"completed": models.FilterCompleted,
	"complete":  models.FilterCompleted,
	"done":      models.FilterCompleted,
	"finished":  models.FilterCompleted,
	"open":      models.FilterOpen,
	"pending":   models.FilterOpen,
	"remaining": models.FilterOpen,
	"active":    models.FilterOpen,
	"all":       models.FilterAll,
}

// Tokenize splits an utterance into lowercase word tokens, dropping
// punctuation but keeping digit spans intact.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// stemCandidates returns the plausible base forms of a token: the token
// itself plus plural/tense-stripped variants. Candidates shorter than three
// runes are dropped to avoid degenerate stems.
func stemCandidates(token string) []string {
	candidates := []string{token}
	add := func(s string) {
		if len(s) >= 3 {
			candidates = append(candidates, s)
		}
	}
	if strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		add(token[:len(token)-1])
	}
	if strings.HasSuffix(token, "es") {
		add(token[:len(token)-2])
	}
	if strings.HasSuffix(token, "d") {
		add(token[:len(token)-1]) // created -> create
	}
	if strings.HasSuffix(token, "ed") {
		add(token[:len(token)-2]) // finished -> finish
	}
	if strings.HasSuffix(token, "ing") {
		stem := token[:len(token)-3]
		add(stem)       // adding -> add
		add(stem + "e") // updating -> update
	}
	return candidates
}

// matchKeyword looks a single token up in the taxonomy, tolerating
// plural/tense variants.
func matchKeyword(token string) (models.Intent, bool) {
	for _, cand := range stemCandidates(token) {
		if intent, ok := intentKeywords[cand]; ok {
			return intent, true
		}
	}
	return models.IntentUnknown, false
}

// MatchIntent returns the intent of the first taxonomy keyword in the span,
// or IntentUnknown when no token matches. Pure function of its input.
func MatchIntent(span string) models.Intent {
	for _, token := range Tokenize(span) {
		if intent, ok := matchKeyword(token); ok {
			return intent
		}
	}
	return models.IntentUnknown
}

// matchStatusWord reports the list filter a token denotes, if any.
func matchStatusWord(token string) (models.ListFilter, bool) {
	for _, cand := range stemCandidates(token) {
		if f, ok := statusWords[cand]; ok {
			return f, true
		}
	}
	f, ok := statusWords[token]
	return f, ok
}
