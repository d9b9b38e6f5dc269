package agent

import (
	"sort"

	"overseer/internal/vfs"
)

// Ranking weights. Token overlap dominates; the previous task's
// outputs get a moderate boost; the recency term is small enough that
// it only separates artifacts with equal overlap.
const (
	overlapWeight   = 10.0
	prevOutputBonus = 5.0
	recencyWeight   = 0.001
)

// RankArtifacts orders the store's paths by likely usefulness to a
// task. The score combines token overlap between the description and
// the path name, a recency bonus from the global write ordinal, and a
// bonus for outputs of the immediately preceding task. Ties break by
// most-recent-write first, then lexical path order, so the ranking is
// fully deterministic. An empty store yields an empty slice.
func RankArtifacts(description string, store *vfs.Store, prevOutputs []string) []string {
	artifacts := store.List()
	if len(artifacts) == 0 {
		return nil
	}

	descTokens := make(map[string]struct{})
	for _, tok := range vfs.Tokenize(description) {
		descTokens[tok] = struct{}{}
	}
	prev := make(map[string]struct{})
	for _, p := range prevOutputs {
		prev[p] = struct{}{}
	}

	type scored struct {
		path  string
		score float64
		seq   int
	}
	ranked := make([]scored, 0, len(artifacts))
	for _, art := range artifacts {
		overlap := 0
		for _, tok := range vfs.Tokenize(art.Path) {
			if _, ok := descTokens[tok]; ok {
				overlap++
			}
		}
		score := float64(overlap)*overlapWeight + float64(art.Seq)*recencyWeight
		if _, ok := prev[art.Path]; ok {
			score += prevOutputBonus
		}
		ranked = append(ranked, scored{path: art.Path, score: score, seq: art.Seq})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].seq != ranked[j].seq {
			return ranked[i].seq > ranked[j].seq
		}
		return ranked[i].path < ranked[j].path
	})

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.path
	}
	return out
}
