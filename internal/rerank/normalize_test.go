package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMinMaxWhenRangeExceedsEpsilon(t *testing.T) {
	raw := []Result{
		{ID: "a", Score: 0.2, PriorRank: 1},
		{ID: "b", Score: 0.9, PriorRank: 2},
		{ID: "c", Score: 0.5, PriorRank: 3},
	}

	got := Normalize(raw)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, "a", got[2].ID)
	assert.InDelta(t, 0.0, got[2].Score, 1e-9)
	assert.Equal(t, "c", got[1].ID)
	assert.InDelta(t, (0.5-0.2)/(0.9-0.2), got[1].Score, 1e-9)
}

func TestNormalizeFallsBackToRankPseudoScoresWhenCollapsed(t *testing.T) {
	raw := []Result{
		{ID: "a", Score: 0.732, PriorRank: 1},
		{ID: "b", Score: 0.732, PriorRank: 2},
		{ID: "c", Score: 0.732, PriorRank: 3},
		{ID: "d", Score: 0.732, PriorRank: 4},
		{ID: "e", Score: 0.732, PriorRank: 5},
	}

	got := Normalize(raw)
	require.Len(t, got, 5)

	wantOrder := []string{"a", "b", "c", "d", "e"}
	wantScores := []float64{1.0, 0.875, 0.75, 0.625, 0.5}
	for i, r := range got {
		assert.Equal(t, wantOrder[i], r.ID)
		assert.InDelta(t, wantScores[i], r.Score, 1e-9)
	}
}

func TestNormalizeSingleCandidateGetsTopScore(t *testing.T) {
	got := Normalize([]Result{{ID: "only", Score: 0.3, PriorRank: 1}})
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestNormalizeEmptyReturnsEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}

func TestNormalizeTieBreaksByPriorRankThenID(t *testing.T) {
	raw := []Result{
		{ID: "z", Score: 0.5, PriorRank: 2},
		{ID: "a", Score: 0.5, PriorRank: 1},
		{ID: "m", Score: 0.9, PriorRank: 5},
	}

	got := Normalize(raw)
	require.Len(t, got, 3)
	// m is the lone max (normalized to 1.0); a and z both normalize to 0
	// and break their tie by PriorRank (a=1 before z=2).
	assert.Equal(t, []string{"m", "a", "z"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestNormalizePreservesInputOrderAsRerankOrderBeforeFallback(t *testing.T) {
	raw := []Result{
		{ID: "first", Score: 1.0, PriorRank: 9},
		{ID: "second", Score: 1.0, PriorRank: 1},
	}

	got := Normalize(raw)
	// equal raw scores -> stable sort keeps input order -> pseudo scores
	// 1.0 then 0.5, both distinct so no further tie-break needed.
	assert.Equal(t, "first", got[0].ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.Equal(t, "second", got[1].ID)
	assert.InDelta(t, 0.5, got[1].Score, 1e-9)
}
