// Package textsim holds the lightweight text signals used by the feature
// extractor: token sets, Jaccard similarity, capitalized-word entities and
// contradiction keywords.
package textsim

import (
	"regexp"
	"strings"
)

var (
	tokenPattern  = regexp.MustCompile(`[A-Za-z0-9]+`)
	entityPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]+\b`)
)

var contradictionKeywords = map[string]struct{}{
	"not":        {},
	"no":         {},
	"false":      {},
	"hoax":       {},
	"debunk":     {},
	"debunked":   {},
	"deny":       {},
	"denies":     {},
	"refute":     {},
	"refuted":    {},
	"fake":       {},
	"misleading": {},
}

// Set is an unordered collection of strings
type Set map[string]struct{}

// Tokenize returns the lowercase alphanumeric tokens of text, in order
func Tokenize(text string) []string {
	matches := tokenPattern.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.ToLower(m)
	}
	return matches
}

// TokenSet returns the distinct tokens of text
func TokenSet(text string) Set {
	return toSet(Tokenize(text))
}

// Jaccard returns |a ∩ b| / |a ∪ b|, and 0 when both are empty
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Entities returns capitalized words as a naive named-entity set
func Entities(text string) Set {
	return toSet(entityPattern.FindAllString(text, -1))
}

// EntityOverlap returns the fraction of claim entities found in the evidence.
// It is 0 when the claim has no entities.
func EntityOverlap(claim, evidence Set) float64 {
	if len(claim) == 0 {
		return 0
	}
	return float64(intersectionSize(claim, evidence)) / float64(len(claim))
}

// HasContradiction reports whether text contains a contradiction keyword
func HasContradiction(text string) bool {
	for _, tok := range Tokenize(text) {
		if _, ok := contradictionKeywords[tok]; ok {
			return true
		}
	}
	return false
}

// EvidenceText joins title and snippet the way every text feature reads them
func EvidenceText(title, snippet string) string {
	return strings.TrimSpace(title + " " + snippet)
}

func toSet(items []string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func intersectionSize(a, b Set) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
