package assembler

import "sort"

// order returns hits arranged per policy. The input slice is never
// mutated; all variants start from a stable score-descending sort so
// ties resolve deterministically in original input order.
func order(hits []Hit, policy Policy) []Hit {
	byScoreDesc := make([]Hit, len(hits))
	copy(byScoreDesc, hits)
	sort.SliceStable(byScoreDesc, func(i, j int) bool {
		return byScoreDesc[i].Score > byScoreDesc[j].Score
	})

	switch policy {
	case PolicySandwich:
		if len(byScoreDesc) < sandwichMinHits {
			return byScoreDesc
		}
		return sandwich(byScoreDesc)
	case PolicyFileGrouped:
		return fileGrouped(byScoreDesc)
	default:
		return byScoreDesc
	}
}

// sandwich emits the top half (highest score first), then the remaining
// (lower-scoring) half in reverse — so the strongest hit of the weaker
// half lands last, keeping high relevance at both extremities and the
// single weakest hit buried in the middle (spec.md §4.9).
func sandwich(byScoreDesc []Hit) []Hit {
	half := len(byScoreDesc) / 2
	top := byScoreDesc[:half]
	remaining := byScoreDesc[half:]

	out := make([]Hit, 0, len(byScoreDesc))
	out = append(out, top...)
	for i := len(remaining) - 1; i >= 0; i-- {
		out = append(out, remaining[i])
	}
	return out
}

// fileGrouped clusters hits by file path, preserving each group's first
// appearance in score-descending order, and keeps each group's members
// in their relative score-descending order.
func fileGrouped(byScoreDesc []Hit) []Hit {
	groupOrder := make([]string, 0)
	groups := make(map[string][]Hit)
	for _, h := range byScoreDesc {
		if _, ok := groups[h.FilePath]; !ok {
			groupOrder = append(groupOrder, h.FilePath)
		}
		groups[h.FilePath] = append(groups[h.FilePath], h)
	}

	out := make([]Hit, 0, len(byScoreDesc))
	for _, path := range groupOrder {
		out = append(out, groups[path]...)
	}
	return out
}
