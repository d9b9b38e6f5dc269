package task

import (
	"strconv"
	"strings"
)

// Resolve maps a loose task reference (an id in text form, a full or
// partial description) to a record. The cascade is: exact id, exact
// description, normalized substring, then best similarity at or above
// threshold. Below threshold it fails with ErrNotFound rather than
// guessing. Similarity ties resolve to the lowest id.
func (l *List) Resolve(ref string, threshold float64) (*Record, error) {
	if id, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		if rec, ok := l.byID[id]; ok {
			return rec, nil
		}
	}

	for _, rec := range l.records {
		if rec.Description == ref {
			return rec, nil
		}
	}

	norm := normalize(ref)
	if norm != "" {
		for _, rec := range l.records {
			if strings.Contains(normalize(rec.Description), norm) {
				return rec, nil
			}
		}
	}

	var best *Record
	bestScore := 0.0
	for _, rec := range l.records {
		score := similarity(norm, normalize(rec.Description))
		if score > bestScore {
			bestScore = score
			best = rec
		}
	}
	if best != nil && bestScore >= threshold {
		return best, nil
	}
	return nil, ErrNotFound
}

// normalize lowercases and collapses all whitespace runs to single
// spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity is a Levenshtein ratio in [0,1]: 1 - distance/maxLen.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	d := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1 - float64(d)/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
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
