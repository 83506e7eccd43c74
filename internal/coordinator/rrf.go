package coordinator

import "sort"

// DefaultRRFConstant is the Reciprocal Rank Fusion constant k (spec.md
// §4.7: "Reciprocal Rank Fusion with constant k = 60 by default").
const DefaultRRFConstant = 60

// rankedList is one input to Fuse: a single retriever's or single
// project's ranked results, weighted by its contribution to the fused
// score.
type rankedList struct {
	// projectID attributes hits from this list to a project. For stage 1
	// (dense+lexical within one project) every list carries the same
	// projectID; for stage 2 (across projects) each list carries its own.
	projectID string
	weight    float64
	items     []rankedItem
}

type rankedItem struct {
	id           string
	bm25Score    float64
	vecScore     float64
	matchedTerms []string
	// isBM25/isVector mark which raw-score field this item's source list
	// fills, so stage 1 can report both sides of a fuse. Stage 2 doesn't
	// set either — its inputs are already-fused Hits.
	isBM25   bool
	isVector bool
}

// fuse merges one or more ranked lists with Reciprocal Rank Fusion
// (spec.md §4.7): "Score per document: Σ_list weight/(k + rank_in_list)."
// A document's rank in a list it doesn't appear in contributes nothing —
// this is plain RRF, not the teacher's missing-rank imputation, because
// the spec's formula sums only over lists containing the document.
//
// Output is ordered by (RRFScore desc, MinRank asc, ChunkID asc) per
// spec.md §4.7: "ordered by descending RRF score; ties broken by lower
// minimum rank, then by lexicographic id." The origin project is the
// first list (in input order) the document appears in.
func fuse(lists []rankedList, k int) []Hit {
	hits := make(map[string]*Hit)
	order := make([]string, 0)

	for _, list := range lists {
		for rank, item := range list.items {
			rankInList := rank + 1
			h, ok := hits[item.id]
			if !ok {
				h = &Hit{ChunkID: item.id, ProjectID: list.projectID, MinRank: rankInList}
				hits[item.id] = h
				order = append(order, item.id)
			}

			h.RRFScore += list.weight / float64(k+rankInList)
			if rankInList < h.MinRank {
				h.MinRank = rankInList
			}

			if item.isBM25 {
				if h.BM25Rank == 0 || rankInList < h.BM25Rank {
					h.BM25Rank = rankInList
					h.BM25Score = item.bm25Score
				}
			}
			if item.isVector {
				if h.VecRank == 0 || rankInList < h.VecRank {
					h.VecRank = rankInList
					h.VecScore = item.vecScore
				}
			}
			if len(item.matchedTerms) > 0 && len(h.MatchedTerms) == 0 {
				h.MatchedTerms = item.matchedTerms
			}
		}
	}

	out := make([]Hit, 0, len(order))
	for _, id := range order {
		out = append(out, *hits[id])
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		if out[i].MinRank != out[j].MinRank {
			return out[i].MinRank < out[j].MinRank
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	return out
}

// hitsToRankedList converts an already-fused, already-ranked Hit list
// (a project's stage-1 output) into a stage-2 input list.
func hitsToRankedList(projectID string, hits []Hit, weight float64) rankedList {
	items := make([]rankedItem, len(hits))
	for i, h := range hits {
		items[i] = rankedItem{
			id:           h.ChunkID,
			bm25Score:    h.BM25Score,
			vecScore:     h.VecScore,
			matchedTerms: h.MatchedTerms,
			isBM25:       h.BM25Rank > 0,
			isVector:     h.VecRank > 0,
		}
	}
	return rankedList{projectID: projectID, weight: weight, items: items}
}
