package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseSingleListRanksByScore(t *testing.T) {
	list := rankedList{
		projectID: "p1",
		weight:    1.0,
		items: []rankedItem{
			{id: "a", isVector: true, vecScore: 0.9},
			{id: "b", isVector: true, vecScore: 0.5},
		},
	}

	hits := fuse([]rankedList{list}, DefaultRRFConstant)
	assert.Equal(t, []string{"a", "b"}, []string{hits[0].ChunkID, hits[1].ChunkID})
	assert.Equal(t, 1, hits[0].MinRank)
	assert.Equal(t, "p1", hits[0].ProjectID)
}

func TestFuseCombinesOverlappingLists(t *testing.T) {
	dense := rankedList{
		projectID: "p1", weight: 0.65,
		items: []rankedItem{
			{id: "a", isVector: true, vecScore: 0.9},
			{id: "b", isVector: true, vecScore: 0.8},
		},
	}
	lexical := rankedList{
		projectID: "p1", weight: 0.35,
		items: []rankedItem{
			{id: "b", isBM25: true, bm25Score: 5.0},
			{id: "a", isBM25: true, bm25Score: 1.0},
		},
	}

	hits := fuse([]rankedList{dense, lexical}, DefaultRRFConstant)
	assert.Len(t, hits, 2)

	byID := map[string]Hit{}
	for _, h := range hits {
		byID[h.ChunkID] = h
	}
	assert.Equal(t, 1, byID["a"].VecRank)
	assert.Equal(t, 2, byID["a"].BM25Rank)
	assert.Equal(t, 2, byID["b"].VecRank)
	assert.Equal(t, 1, byID["b"].BM25Rank)

	// a: 0.65/(60+1) + 0.35/(60+2) ; b: 0.65/(60+2) + 0.35/(60+1)
	wantA := 0.65/61 + 0.35/62
	wantB := 0.65/62 + 0.35/61
	assert.InDelta(t, wantA, byID["a"].RRFScore, 1e-9)
	assert.InDelta(t, wantB, byID["b"].RRFScore, 1e-9)
}

func TestFuseTieBreaksByMinRankThenID(t *testing.T) {
	listA := rankedList{projectID: "p1", weight: 1.0, items: []rankedItem{{id: "z"}, {id: "a"}}}
	listB := rankedList{projectID: "p2", weight: 1.0, items: []rankedItem{{id: "a"}, {id: "z"}}}

	hits := fuse([]rankedList{listA, listB}, DefaultRRFConstant)
	// both ids see ranks {1,2} and {2,1} respectively - scores tie, so
	// min rank (1 for both) ties too, falling through to lexicographic id.
	assert.Equal(t, "a", hits[0].ChunkID)
	assert.Equal(t, "z", hits[1].ChunkID)
}

func TestFuseAbsentFromOneListContributesOnlyItsOwnTerm(t *testing.T) {
	dense := rankedList{projectID: "p1", weight: 0.65, items: []rankedItem{{id: "only-dense", isVector: true, vecScore: 0.4}}}
	lexical := rankedList{projectID: "p1", weight: 0.35, items: []rankedItem{{id: "only-lex", isBM25: true, bm25Score: 0.4}}}

	hits := fuse([]rankedList{dense, lexical}, DefaultRRFConstant)
	assert.Len(t, hits, 2)
	byID := map[string]Hit{}
	for _, h := range hits {
		byID[h.ChunkID] = h
	}
	assert.InDelta(t, 0.65/61, byID["only-dense"].RRFScore, 1e-9)
	assert.InDelta(t, 0.35/61, byID["only-lex"].RRFScore, 1e-9)
}

func TestHitsToRankedListPreservesScoresAndOrder(t *testing.T) {
	hits := []Hit{
		{ChunkID: "a", BM25Rank: 1, BM25Score: 3.0, VecRank: 2, VecScore: 0.5},
		{ChunkID: "b", VecRank: 1, VecScore: 0.9},
	}
	list := hitsToRankedList("p1", hits, 1.0)
	assert.Equal(t, "p1", list.projectID)
	assert.Equal(t, "a", list.items[0].id)
	assert.True(t, list.items[0].isBM25)
	assert.True(t, list.items[0].isVector)
	assert.False(t, list.items[1].isBM25)
}
