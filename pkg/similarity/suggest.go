// Package similarity provides fuzzy matching of control identifiers.
package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultThreshold is the minimum score for a suggestion.
const DefaultThreshold = 0.4

// ControlTerms returns the comparison terms of a control identifier: its
// letter and digit runs plus the character bigrams of the compacted form.
// "AC-2", "ac 2" and "AC2" produce the same set.
func ControlTerms(id string) map[string]bool {
	terms := make(map[string]bool)

	var compact []rune
	for _, r := range strings.ToLower(id) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			compact = append(compact, r)
		}
	}
	if len(compact) == 0 {
		return terms
	}

	start := 0
	for i := 1; i <= len(compact); i++ {
		if i == len(compact) || unicode.IsDigit(compact[i]) != unicode.IsDigit(compact[start]) {
			terms[string(compact[start:i])] = true
			start = i
		}
	}
	for i := 0; i+1 < len(compact); i++ {
		terms[string(compact[i:i+2])] = true
	}
	return terms
}

// JaccardSimilarity calculates the Jaccard similarity between two term sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func JaccardSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for term := range set1 {
		if set2[term] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}

// Suggest returns up to max identifiers from ids that resemble query, best
// match first. Ties keep the order of ids.
func Suggest(query string, ids []string, threshold float64, max int) []string {
	queryTerms := ControlTerms(query)
	if len(queryTerms) == 0 || max <= 0 {
		return nil
	}

	type scored struct {
		id    string
		score float64
	}
	var matches []scored
	for _, id := range ids {
		if id == query {
			continue
		}
		score := JaccardSimilarity(queryTerms, ControlTerms(id))
		if score >= threshold {
			matches = append(matches, scored{id: id, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > max {
		matches = matches[:max]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.id)
	}
	return out
}
