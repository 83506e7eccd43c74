package chunk

import (
	"strconv"
	"strings"
)

// otherChunkSizeThresholdTokens is the size below which a config/data file
// becomes a single chunk outright (spec.md §4.3 "Other" track).
const otherChunkSizeThresholdTokens = DefaultMaxTokens

// chunkOther implements the fallback track for config/data files and any
// source file the code track doesn't recognize: below the size threshold,
// one chunk; above it, fixed-size windows with overlap.
func chunkOther(path, language, fileType string, source []byte, opts Options) *FileChunkResult {
	opts = opts.withDefaults()
	result := &FileChunkResult{Path: path}
	content := string(source)
	if strings.TrimSpace(content) == "" {
		result.Skipped = SkipEmpty
		return result
	}

	if EstimateTokens(content) <= otherChunkSizeThresholdTokens {
		result.Chunks = []*Chunk{{
			FilePath: path, Content: content, FileType: fileType, Language: language,
			StartLine: 1, EndLine: strings.Count(content, "\n") + 1,
			Metadata:    map[string]string{},
			ContentHash: ContentHash(content),
		}}
		return result
	}

	lines := strings.Split(content, "\n")
	groups := splitLinesByCount(lines, opts.MaxTokens, opts.OverlapTokens)

	chunks := make([]*Chunk, 0, len(groups))
	line := 1
	for i, g := range groups {
		text := strings.Join(g, "\n")
		endLine := line + len(g) - 1
		chunks = append(chunks, &Chunk{
			FilePath: path, Content: text, FileType: fileType, Language: language,
			StartLine: line, EndLine: endLine,
			Metadata:    map[string]string{"window": strconv.Itoa(i + 1)},
			ContentHash: ContentHash(text),
		})
		line = endLine + 1
	}
	result.Chunks = chunks
	return result
}
