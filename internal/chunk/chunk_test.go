package chunk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCodeChunkerSplitsTopLevelFunctions(t *testing.T) {
	src := `package demo

// Add sums two ints.
func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`
	path := writeTemp(t, src)
	c := newCodeChunker(Options{MinTokens: 1})
	defer c.Close()

	res, err := c.Chunk(context.Background(), path, "go", []byte(src), "code")
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.NotEmpty(t, res.Chunks)

	var names []string
	for _, ch := range res.Chunks {
		names = append(names, ch.Metadata["symbol"])
	}
	require.Contains(t, names, "Add")
	require.Contains(t, names, "Sub")
}

func TestCodeChunkerLineRangesAreMonotonic(t *testing.T) {
	src := `package demo

func A() {}

func B() {}

func C() {}
`
	c := newCodeChunker(Options{})
	defer c.Close()
	res, err := c.Chunk(context.Background(), "f.go", "go", []byte(src), "code")
	require.NoError(t, err)

	last := 0
	for _, ch := range res.Chunks {
		require.GreaterOrEqual(t, ch.StartLine, last)
		require.LessOrEqual(t, ch.StartLine, ch.EndLine)
		last = ch.StartLine
	}
}

func TestCodeChunkerEmptyFileIsSkipped(t *testing.T) {
	c := newCodeChunker(Options{})
	defer c.Close()
	res, err := c.Chunk(context.Background(), "f.go", "go", []byte("   \n"), "code")
	require.NoError(t, err)
	require.Equal(t, SkipEmpty, res.Skipped)
}

func TestMarkdownChunkerSplitsByHeading(t *testing.T) {
	src := `# Title

Intro paragraph.

## Section One

Some content here.

## Section Two

More content here.

` + "```go\nfmt.Println(\"hi\")\n```\n"

	m := newMarkdownChunker(Options{})
	res, err := m.Chunk("doc.md", []byte(src))
	require.NoError(t, err)
	require.Empty(t, res.Skipped)
	require.NotEmpty(t, res.Chunks)

	var hasFenced bool
	for _, ch := range res.Chunks {
		if ch.Metadata["block"] == "fenced_code" {
			hasFenced = true
			require.Equal(t, "go", ch.Language)
		}
	}
	require.True(t, hasFenced)
}

func TestMarkdownChunkerEmptyFileIsSkipped(t *testing.T) {
	m := newMarkdownChunker(Options{})
	res, err := m.Chunk("doc.md", []byte("   "))
	require.NoError(t, err)
	require.Equal(t, SkipEmpty, res.Skipped)
}

func TestChunkOtherSmallFileIsSingleChunk(t *testing.T) {
	res := chunkOther("config.toml", "toml", "config", []byte("key = \"value\"\n"), Options{})
	require.Empty(t, res.Skipped)
	require.Len(t, res.Chunks, 1)
}

func TestChunkOtherLargeFileIsWindowed(t *testing.T) {
	big := ""
	for i := 0; i < 2000; i++ {
		big += "line of config data that is reasonably long to inflate token count\n"
	}
	res := chunkOther("data.json", "json", "data", []byte(big), Options{MaxTokens: 100, OverlapTokens: 10})
	require.Empty(t, res.Skipped)
	require.Greater(t, len(res.Chunks), 1)
}

func TestMergeUndersizedPreservesTrailingChunk(t *testing.T) {
	chunks := []*Chunk{
		{FilePath: "f.go", Content: "a", StartLine: 1, EndLine: 1, Metadata: map[string]string{"symbol": "a"}},
		{FilePath: "f.go", Content: "b", StartLine: 2, EndLine: 2, Metadata: map[string]string{"symbol": "b"}},
	}
	merged := mergeUndersized(chunks, 1000) // both under threshold
	require.Len(t, merged, 1)
	require.Equal(t, 1, merged[0].StartLine)
	require.Equal(t, 2, merged[0].EndLine)
}

func TestEstimateTokensIsCharsDivFour(t *testing.T) {
	require.Equal(t, 3, EstimateTokens("twelve chars"[:12]))
}
