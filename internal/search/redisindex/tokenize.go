package redisindex

import (
	"strings"
	"unicode"
)

// termFrequencies splits text into lowercase terms and counts them.
func termFrequencies(text string) map[string]int {
	out := make(map[string]int)
	for _, t := range tokenize(text) {
		out[t]++
	}
	return out
}

// tokenize lowercases text and splits it on anything that is not a letter
// or a digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// uniqueTerms returns the distinct terms of text in first-seen order.
func uniqueTerms(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokenize(text) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
