package evalharness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetricsPerfectRankOne(t *testing.T) {
	m := computeMetrics([]string{"a.go", "b.go", "c.go"}, []string{"a.go"}, 10)
	assert.Equal(t, 1.0, m.ReciprocalRank)
	assert.Equal(t, 1.0, m.HitRate)
	assert.Equal(t, 1.0, m.NDCG)
	assert.InDelta(t, 1.0/3.0, m.PrecisionAtK, 0.0001)
	assert.Equal(t, 1.0, m.RecallAtK)
}

func TestComputeMetricsNoRelevantRetrieved(t *testing.T) {
	m := computeMetrics([]string{"x.go", "y.go"}, []string{"a.go"}, 10)
	assert.Equal(t, 0.0, m.ReciprocalRank)
	assert.Equal(t, 0.0, m.HitRate)
	assert.Equal(t, 0.0, m.NDCG)
	assert.Equal(t, 0.0, m.PrecisionAtK)
	assert.Equal(t, 0.0, m.RecallAtK)
	assert.Equal(t, 0.0, m.AP)
}

func TestComputeMetricsRespectsTopKWindow(t *testing.T) {
	m := computeMetrics([]string{"x.go", "y.go", "a.go"}, []string{"a.go"}, 2)
	assert.Equal(t, 0.0, m.ReciprocalRank, "relevant doc falls outside the top-2 window")
	assert.Equal(t, 0.0, m.HitRate)
}

func TestComputeMetricsReciprocalRankUsesFirstHitOnly(t *testing.T) {
	m := computeMetrics([]string{"x.go", "a.go", "b.go"}, []string{"a.go", "b.go"}, 10)
	assert.Equal(t, 0.5, m.ReciprocalRank)
}

func TestComputeMetricsRecallCountsAgainstFullExpectedSet(t *testing.T) {
	m := computeMetrics([]string{"a.go"}, []string{"a.go", "b.go"}, 10)
	assert.Equal(t, 0.5, m.RecallAtK)
	assert.Equal(t, 1.0, m.PrecisionAtK)
}

func TestComputeMetricsAveragePrecisionRewardsEarlyHits(t *testing.T) {
	early := computeMetrics([]string{"a.go", "x.go", "b.go"}, []string{"a.go", "b.go"}, 10)
	late := computeMetrics([]string{"x.go", "a.go", "b.go"}, []string{"a.go", "b.go"}, 10)
	assert.Greater(t, early.AP, late.AP)
}

func TestComputeMetricsEmptyExpectedSetYieldsZeroRecallAndAP(t *testing.T) {
	m := computeMetrics([]string{"a.go"}, nil, 10)
	assert.Equal(t, 0.0, m.RecallAtK)
	assert.Equal(t, 0.0, m.AP)
}

func TestAggregateSkipsErroredEntriesAndAveragesRest(t *testing.T) {
	results := []EntryResult{
		{Metrics: QueryMetrics{ReciprocalRank: 1, HitRate: 1, PrecisionAtK: 1, RecallAtK: 1, NDCG: 1, AP: 1}},
		{Metrics: QueryMetrics{ReciprocalRank: 0, HitRate: 0}},
		{Err: assert.AnError},
	}
	s := aggregate(results)
	assert.Equal(t, 2, s.QueryCount)
	assert.Equal(t, 0.5, s.MeanReciprocalRank)
	assert.Equal(t, 0.5, s.MeanHitRate)
}

func TestAggregateAllErroredYieldsZeroedSummary(t *testing.T) {
	results := []EntryResult{{Err: assert.AnError}, {Err: assert.AnError}}
	s := aggregate(results)
	assert.Equal(t, 0, s.QueryCount)
	assert.Equal(t, 0.0, s.MAP)
}

func TestSummaryAsMapKeys(t *testing.T) {
	s := Summary{MeanReciprocalRank: 0.5, MeanPrecisionAtK: 0.6, MeanRecallAtK: 0.7, MeanHitRate: 0.8, MeanNDCG: 0.9, MAP: 0.4}
	m := s.asMap()
	assert.Equal(t, 0.5, m["mrr"])
	assert.Equal(t, 0.6, m["precision"])
	assert.Equal(t, 0.7, m["recall"])
	assert.Equal(t, 0.8, m["hit_rate"])
	assert.Equal(t, 0.9, m["ndcg"])
	assert.Equal(t, 0.4, m["map"])
}
