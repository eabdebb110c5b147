package core

import (
	"sort"
	"strings"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// DefaultFuzzyThreshold is the minimum similarity score for accepting a
// fuzzy title match. The scoring function and this constant are policy,
// locked by the resolver test suite.
const DefaultFuzzyThreshold = 0.5

// Resolution is the outcome of resolving one task reference against the
// caller's task snapshot.
type Resolution struct {
	Resolved   bool
	TaskID     int
	Confidence float64

	// Candidates lists the closest titles when resolution fails, for the
	// disambiguation message.
	Candidates []string
}

// ReferenceResolver disambiguates textual or partial task references against
// a snapshot of the caller's current tasks.
type ReferenceResolver struct {
	threshold float64
}

// NewReferenceResolver creates a resolver with the given acceptance
// threshold; values outside (0,1] fall back to the default.
func NewReferenceResolver(threshold float64) *ReferenceResolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &ReferenceResolver{threshold: threshold}
}

// Resolve maps an explicit id or free-text reference to exactly one task id,
// or reports unresolved. Resolution order: exact id wins outright; then
// exact case-insensitive title match; then fuzzy scoring against open tasks
// with ties broken by most recent creation.
func (r *ReferenceResolver) Resolve(explicitID int, text string, snapshot []models.Task) Resolution {
	// An explicit id is a concrete reference even when it is absent from
	// the snapshot: the tool endpoint is the authority on existence and
	// will answer not-found.
	if explicitID > 0 {
		return Resolution{Resolved: true, TaskID: explicitID, Confidence: 1}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Resolution{}
	}

	for _, t := range snapshot {
		if strings.EqualFold(t.Title, text) {
			return Resolution{Resolved: true, TaskID: t.ID, Confidence: 1}
		}
	}

	type scored struct {
		task  models.Task
		score float64
	}
	var candidates []scored
	for _, t := range snapshot {
		if t.Status != models.StatusOpen {
			continue
		}
		candidates = append(candidates, scored{task: t, score: Similarity(text, t.Title)})
	}
	if len(candidates) == 0 {
		return Resolution{}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		// Tie: prefer the most recently created task.
		return candidates[i].task.Created.After(candidates[j].task.Created)
	})

	best := candidates[0]
	if best.score >= r.threshold {
		return Resolution{Resolved: true, TaskID: best.task.ID, Confidence: best.score}
	}

	// Below threshold: unresolved, reporting the closest titles.
	res := Resolution{}
	for i, c := range candidates {
		if i == 3 {
			break
		}
		res.Candidates = append(res.Candidates, c.task.Title)
	}
	return res
}

// Similarity scores how well a reference matches a title in [0,1]. It takes
// the better of token-overlap ratio and normalized edit-distance similarity,
// so both partial references ("milk" for "Buy milk") and small typos score
// well.
func Similarity(ref, title string) float64 {
	refTokens := Tokenize(ref)
	titleTokens := Tokenize(title)

	overlap := tokenOverlap(refTokens, titleTokens)
	lev := 1 - normalizedEditDistance(strings.ToLower(ref), strings.ToLower(title))
	if overlap > lev {
		return overlap
	}
	return lev
}

// tokenOverlap is the fraction of reference tokens present in the title.
func tokenOverlap(ref, title []string) float64 {
	if len(ref) == 0 {
		return 0
	}
	set := make(map[string]bool, len(title))
	for _, t := range title {
		set[t] = true
	}
	matched := 0
	for _, t := range ref {
		if set[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(ref))
}

// normalizedEditDistance is the Levenshtein distance divided by the longer
// string's length.
func normalizedEditDistance(a, b string) float64 {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 0
	}
	return float64(editDistance(ra, rb)) / float64(longer)
}

func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
