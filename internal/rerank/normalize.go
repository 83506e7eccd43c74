package rerank

import "sort"

// Normalize converts raw cross-encoder scores into the final deterministic
// ranking (spec.md §4.8):
//  1. Establish rerank order by raw score descending (ties keep input
//     order, i.e. the caller's pre-rerank/fused order).
//  2. If the score range across candidates exceeds Epsilon, min-max
//     normalize into [0, 1].
//  3. Else fall back to rank-based pseudo-scores:
//     score_i = 1 - (i/(n-1))*0.5 (top = 1.0, bottom = 0.5), preserving
//     rerank order even when absolute scores collapse.
//
// The returned slice is ordered by (new score desc, prior rank asc, id
// asc) — the spec's deterministic final ordering.
func Normalize(raw []Result) []Result {
	if len(raw) == 0 {
		return raw
	}

	ordered := make([]Result, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	minScore, maxScore := ordered[0].Score, ordered[0].Score
	for _, r := range ordered {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	n := len(ordered)
	if maxScore-minScore > Epsilon {
		rangeVal := maxScore - minScore
		for i := range ordered {
			ordered[i].Score = (ordered[i].Score - minScore) / rangeVal
		}
	} else if n == 1 {
		ordered[0].Score = 1.0
	} else {
		for i := range ordered {
			ordered[i].Score = 1.0 - (float64(i)/float64(n-1))*0.5
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if ordered[i].PriorRank != ordered[j].PriorRank {
			return ordered[i].PriorRank < ordered[j].PriorRank
		}
		return ordered[i].ID < ordered[j].ID
	})

	return ordered
}
