package evalharness

import "math"

// computeMetrics scores one query's retrieved file paths (ranked, already
// deduplicated preserving first occurrence) against the expected set
// (spec.md §4.12 step 5). topK bounds every metric's window.
func computeMetrics(retrieved []string, expected []string, topK int) QueryMetrics {
	window := retrieved
	if len(window) > topK {
		window = window[:topK]
	}

	expectedSet := make(map[string]struct{}, len(expected))
	for _, e := range expected {
		expectedSet[e] = struct{}{}
	}

	var m QueryMetrics
	m.ReciprocalRank = reciprocalRank(window, expectedSet)
	m.PrecisionAtK = precisionAtK(window, expectedSet)
	m.RecallAtK = recallAtK(window, expectedSet, len(expected))
	m.HitRate = hitRate(window, expectedSet)
	m.NDCG = ndcgAtK(window, expectedSet)
	m.AP = averagePrecision(window, expectedSet)
	return m
}

func reciprocalRank(window []string, expected map[string]struct{}) float64 {
	for i, path := range window {
		if _, ok := expected[path]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func precisionAtK(window []string, expected map[string]struct{}) float64 {
	if len(window) == 0 {
		return 0
	}
	hits := countRelevant(window, expected)
	denom := len(window)
	return float64(hits) / float64(denom)
}

func recallAtK(window []string, expected map[string]struct{}, expectedTotal int) float64 {
	if expectedTotal == 0 {
		return 0
	}
	hits := countRelevant(window, expected)
	return float64(hits) / float64(expectedTotal)
}

func hitRate(window []string, expected map[string]struct{}) float64 {
	if countRelevant(window, expected) > 0 {
		return 1
	}
	return 0
}

// ndcgAtK computes standard binary-relevance nDCG: DCG using relevance in
// {0,1} at each rank, divided by the ideal DCG for the same relevant count.
func ndcgAtK(window []string, expected map[string]struct{}) float64 {
	var dcg float64
	for i, path := range window {
		if _, ok := expected[path]; ok {
			dcg += 1.0 / math.Log2(float64(i)+2) // ranks are 0-based here, +2 so rank 0 -> log2(2)=1
		}
	}

	idealHits := len(expected)
	if idealHits > len(window) {
		idealHits = len(window)
	}
	var idcg float64
	for i := 0; i < idealHits; i++ {
		idcg += 1.0 / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// averagePrecision is precision averaged over the ranks of each relevant
// document found within window (spec.md §4.12 step 5 "MAP").
func averagePrecision(window []string, expected map[string]struct{}) float64 {
	if len(expected) == 0 {
		return 0
	}
	var sum float64
	var hits int
	for i, path := range window {
		if _, ok := expected[path]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}

func countRelevant(window []string, expected map[string]struct{}) int {
	n := 0
	for _, path := range window {
		if _, ok := expected[path]; ok {
			n++
		}
	}
	return n
}

// aggregate computes the simple-mean Summary across every entry's metrics
// (spec.md §4.12 step 6).
func aggregate(results []EntryResult) Summary {
	var s Summary
	var count int
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		count++
		s.MeanReciprocalRank += r.Metrics.ReciprocalRank
		s.MeanPrecisionAtK += r.Metrics.PrecisionAtK
		s.MeanRecallAtK += r.Metrics.RecallAtK
		s.MeanHitRate += r.Metrics.HitRate
		s.MeanNDCG += r.Metrics.NDCG
		s.MAP += r.Metrics.AP
	}
	s.QueryCount = count
	if count == 0 {
		return s
	}
	n := float64(count)
	s.MeanReciprocalRank /= n
	s.MeanPrecisionAtK /= n
	s.MeanRecallAtK /= n
	s.MeanHitRate /= n
	s.MeanNDCG /= n
	s.MAP /= n
	return s
}
