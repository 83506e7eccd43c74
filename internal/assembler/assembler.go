package assembler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctxhq/ctx/internal/chunk"
)

// Assemble orders hits per policy, then greedily packs rendered
// `<source>` blocks into budget, wrapping the result in a single
// `<sources>` root (spec.md §4.9). A chunk is never split: packing stops
// at the first chunk that would exceed budget. If nothing fits, the
// returned Artifact is empty with EstimatedTokens 0.
func Assemble(hits []Hit, budget int, policy Policy) Artifact {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	ordered := order(hits, policy)

	var blocks []string
	var sources []Source
	total := 0

	for _, h := range ordered {
		rendered := renderSource(len(sources)+1, h)
		tokens := chunk.EstimateTokens(rendered)
		if total+tokens > budget {
			break
		}

		blocks = append(blocks, rendered)
		sources = append(sources, Source{
			Index:     len(sources) + 1,
			FilePath:  h.FilePath,
			LineRange: lineRange(h.StartLine, h.EndLine),
			Score:     h.Score,
			Language:  h.Language,
			FileType:  h.FileType,
		})
		total += tokens
	}

	if len(blocks) == 0 {
		return Artifact{}
	}

	text := "<sources>\n" + strings.Join(blocks, "\n") + "\n</sources>"
	return Artifact{
		Text:            text,
		Sources:         sources,
		EstimatedTokens: chunk.EstimateTokens(text),
	}
}

func renderSource(index int, h Hit) string {
	return fmt.Sprintf(
		`<source id="%d" path="%s" lines="%s" lang="%s" score="%s">
%s
</source>`,
		index, h.FilePath, lineRange(h.StartLine, h.EndLine), h.Language, formatScore(h.Score), h.Content,
	)
}

func lineRange(start, end int) string {
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 4, 64)
}
