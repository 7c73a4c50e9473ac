package match

import (
	"sort"
	"strings"
)

// Candidate is a canned response eligible for trigger matching. Triggers are
// plain-text phrases compared case-insensitively against the message.
type Candidate struct {
	ID       string
	Response string
	Priority int
	Active   bool
	Triggers []string
}

// Match is the ranked best candidate for a message. A zero-score outcome is
// reported as the zero value (empty Content, Confidence 0), never an error;
// callers must treat zero confidence as "no match".
type Match struct {
	Content    string
	Confidence float64
	PatternID  string
}

// Score weights. The top score is divided by confidenceDivisor and clamped
// to 1 to produce the final confidence.
const (
	exactWeight       = 15
	partialWeight     = 5
	overlapWeight     = 3
	confidenceDivisor = 20
)

// Score ranks candidates against message and returns the best match.
//
// Per active candidate the strongest applicable signal tier applies:
//   - +15 when any trigger equals the lowercased message or is a substring
//     of it (the exact tier short-circuits the weaker signals, so an exact
//     hit always scores exactly 15);
//   - otherwise +5 when any single word of any trigger is contained in the
//     message, plus +3 per keyword shared between the message and the union
//     of the candidate's trigger keywords.
//
// Inactive candidates never contribute. Ranking is descending by score with
// a stable sort, so equal scores keep their input order; among equal scores
// a higher Priority wins. Score is a pure function: identical inputs yield
// identical rankings and confidence.
func Score(message string, candidates []Candidate) Match {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" || len(candidates) == 0 {
		return Match{}
	}
	msgKeywords := keywordSet(msg)

	type scored struct {
		idx      int
		score    int
		priority int
	}
	buf := make([]scored, 0, len(candidates))

	for i, c := range candidates {
		if !c.Active || len(c.Triggers) == 0 {
			continue
		}
		score := 0

		// Exact or substring trigger hit.
		exact := false
		for _, t := range c.Triggers {
			phrase := strings.ToLower(strings.TrimSpace(t))
			if phrase == "" {
				continue
			}
			if phrase == msg || strings.Contains(msg, phrase) {
				exact = true
				break
			}
		}

		if exact {
			score = exactWeight
		} else {
			// Loose partial hit: any single trigger word present in the message.
			partial := false
			for _, t := range c.Triggers {
				for _, w := range strings.Fields(strings.ToLower(t)) {
					if strings.Contains(msg, w) {
						partial = true
						break
					}
				}
				if partial {
					break
				}
			}
			if partial {
				score += partialWeight
			}

			// Keyword overlap across all trigger phrases of this candidate.
			triggerKeywords := keywordSet(strings.Join(c.Triggers, " "))
			overlap := 0
			for k := range msgKeywords {
				if _, ok := triggerKeywords[k]; ok {
					overlap++
				}
			}
			score += overlapWeight * overlap
		}

		if score > 0 {
			buf = append(buf, scored{idx: i, score: score, priority: c.Priority})
		}
	}
	if len(buf) == 0 {
		return Match{}
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		return buf[a].priority > buf[b].priority
	})

	top := buf[0]
	confidence := float64(top.score) / confidenceDivisor
	if confidence > 1 {
		confidence = 1
	}
	best := candidates[top.idx]
	return Match{
		Content:    best.Response,
		Confidence: confidence,
		PatternID:  best.ID,
	}
}
