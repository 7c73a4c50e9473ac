// Package match provides a simple, deterministic trigger-phrase matcher used
// to select canned support responses. It is intentionally small and
// dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Pure functions with no hidden state (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//   - Sensible defaults (only active candidates contribute)
//
// Scoring sums three signals per candidate: an exact/substring trigger hit,
// a loose single-word hit, and keyword overlap between the message and the
// candidate's trigger phrases. The top score is normalized into a confidence
// in [0,1].
package match

import (
	"regexp"
	"strings"
)

// punctRE strips everything that is not a letter, digit, or whitespace.
var punctRE = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// stopwords is the fixed English function-word set excluded from keywords.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "his": {},
	"our": {}, "out": {}, "day": {}, "get": {}, "has": {}, "him": {},
	"how": {}, "its": {}, "may": {}, "new": {}, "now": {}, "old": {},
	"see": {}, "two": {}, "way": {}, "who": {}, "did": {}, "yes": {},
	"your": {}, "what": {}, "when": {}, "with": {}, "have": {}, "this": {},
	"that": {}, "from": {}, "they": {}, "will": {}, "been": {}, "were": {},
	"would": {}, "could": {}, "should": {}, "there": {}, "their": {},
	"about": {}, "which": {}, "please": {},
}

// Keywords lowercases text, strips punctuation, splits on whitespace, and
// returns the remaining tokens in order, excluding tokens of length <= 2 and
// tokens in the stopword set. Empty input yields an empty slice.
func Keywords(text string) []string {
	cleaned := punctRE.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

// keywordSet returns Keywords(text) as a set for overlap computations.
func keywordSet(text string) map[string]struct{} {
	kws := Keywords(text)
	out := make(map[string]struct{}, len(kws))
	for _, k := range kws {
		out[k] = struct{}{}
	}
	return out
}
