package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleRendersSourcesInOrderWithOneBasedIndices(t *testing.T) {
	hits := []Hit{
		{ChunkID: "a", FilePath: "a.go", Content: "func A() {}", StartLine: 1, EndLine: 3, Language: "go", Score: 0.5},
		{ChunkID: "b", FilePath: "b.go", Content: "func B() {}", StartLine: 10, EndLine: 12, Language: "go", Score: 0.9},
	}

	art := Assemble(hits, DefaultTokenBudget, PolicyScoreDesc)
	require.Len(t, art.Sources, 2)
	assert.Equal(t, 1, art.Sources[0].Index)
	assert.Equal(t, "b.go", art.Sources[0].FilePath)
	assert.Equal(t, "10-12", art.Sources[0].LineRange)
	assert.Equal(t, 2, art.Sources[1].Index)
	assert.True(t, strings.HasPrefix(art.Text, "<sources>"))
	assert.True(t, strings.HasSuffix(art.Text, "</sources>"))
	assert.Contains(t, art.Text, `<source id="1" path="b.go" lines="10-12" lang="go"`)
	assert.Greater(t, art.EstimatedTokens, 0)
}

func TestAssembleStopsPackingAtBudgetWithoutSplittingAChunk(t *testing.T) {
	content := strings.Repeat("x", 1200) // ~ 320 rendered tokens each
	hits := []Hit{
		{ChunkID: "a", FilePath: "a.go", Content: content, StartLine: 1, EndLine: 1, Score: 0.9},
		{ChunkID: "b", FilePath: "b.go", Content: content, StartLine: 1, EndLine: 1, Score: 0.8},
	}

	art := Assemble(hits, 500, PolicyScoreDesc)
	require.Len(t, art.Sources, 1)
	assert.Equal(t, "a.go", art.Sources[0].FilePath)
}

func TestAssembleEmptyWhenNothingFitsBudget(t *testing.T) {
	hits := []Hit{{ChunkID: "a", FilePath: "a.go", Content: strings.Repeat("x", 4000), StartLine: 1, EndLine: 1, Score: 0.9}}

	art := Assemble(hits, 1, PolicyScoreDesc)
	assert.Empty(t, art.Text)
	assert.Empty(t, art.Sources)
	assert.Equal(t, 0, art.EstimatedTokens)
}

func TestAssembleNoHitsProducesEmptyArtifact(t *testing.T) {
	art := Assemble(nil, DefaultTokenBudget, PolicyScoreDesc)
	assert.Empty(t, art.Text)
	assert.Empty(t, art.Sources)
}

func TestAssembleZeroBudgetFallsBackToDefault(t *testing.T) {
	hits := []Hit{{ChunkID: "a", FilePath: "a.go", Content: "short", StartLine: 1, EndLine: 1, Score: 0.9}}
	art := Assemble(hits, 0, PolicyScoreDesc)
	require.Len(t, art.Sources, 1)
}

func TestAssembleSandwichOrderingReflectedInIndices(t *testing.T) {
	hits := []Hit{
		{ChunkID: "a", FilePath: "a.go", Content: "a", StartLine: 1, EndLine: 1, Score: 0.9},
		{ChunkID: "b", FilePath: "b.go", Content: "b", StartLine: 1, EndLine: 1, Score: 0.8},
		{ChunkID: "c", FilePath: "c.go", Content: "c", StartLine: 1, EndLine: 1, Score: 0.7},
		{ChunkID: "d", FilePath: "d.go", Content: "d", StartLine: 1, EndLine: 1, Score: 0.6},
	}
	art := Assemble(hits, DefaultTokenBudget, PolicySandwich)
	require.Len(t, art.Sources, 4)
	// top half (a,b) forward, remaining (c,d) reversed -> d,c
	assert.Equal(t, []string{"a.go", "b.go", "d.go", "c.go"},
		[]string{art.Sources[0].FilePath, art.Sources[1].FilePath, art.Sources[2].FilePath, art.Sources[3].FilePath})
}
