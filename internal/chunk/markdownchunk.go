package chunk

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownChunker implements the markdown track of spec.md §4.3: headings
// partition the file, prose accumulates up to maxTokens with overlap
// between chunks, fenced code blocks become their own chunks, and small
// prose sections sharing a parent heading are merged.
//
// Grounded on the teacher's internal/chunk/markdown_chunker.go for the
// overall section-then-accumulate shape; the parsing itself is replaced
// with yuin/goldmark's AST (the teacher hand-rolls header/code-block
// regexes) per SPEC_FULL.md §B.
type markdownChunker struct {
	md   goldmark.Markdown
	opts Options
}

func newMarkdownChunker(opts Options) *markdownChunker {
	return &markdownChunker{md: goldmark.New(), opts: opts.withDefaults()}
}

type mdSection struct {
	headingPath string
	buf         strings.Builder
	startLine   int
	lastLine    int
}

func (c *markdownChunker) Chunk(path string, source []byte) (*FileChunkResult, error) {
	result := &FileChunkResult{Path: path}
	if len(strings.TrimSpace(string(source))) == 0 {
		result.Skipped = SkipEmpty
		return result, nil
	}

	reader := text.NewReader(source)
	doc := c.md.Parser().Parse(reader)
	lineIndex := newLineIndex(source)

	var chunks []*Chunk
	var headingStack []string
	var section *mdSection

	flush := func() {
		if section == nil {
			return
		}
		text := strings.TrimSpace(section.buf.String())
		if text != "" {
			chunks = append(chunks, &Chunk{
				FilePath: path, Content: text, FileType: "docs", Language: "markdown",
				StartLine: section.startLine, EndLine: section.lastLine,
				Metadata:    map[string]string{"heading_path": section.headingPath},
				ContentHash: ContentHash(text),
			})
		}
		section = nil
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n == doc {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			flush()
			title := string(headingText(v, source))
			for len(headingStack) < v.Level {
				headingStack = append(headingStack, "")
			}
			headingStack = headingStack[:v.Level]
			headingStack[v.Level-1] = title
			startLine, _ := lineIndex.lineRange(v, source)
			section = &mdSection{headingPath: strings.Join(trimEmpty(headingStack), " > "), startLine: startLine, lastLine: startLine}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			flush()
			start, end := lineIndex.lineRange(v, source)
			lang := string(v.Language(source))
			content := string(v.Text(source))
			chunks = append(chunks, &Chunk{
				FilePath: path, Content: content, FileType: "docs", Language: lang,
				StartLine: start, EndLine: end,
				Metadata:    map[string]string{"heading_path": strings.Join(trimEmpty(headingStack), " > "), "block": "fenced_code"},
				ContentHash: ContentHash(content),
			})
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			if section == nil {
				start, _ := lineIndex.lineRange(n, source)
				section = &mdSection{headingPath: strings.Join(trimEmpty(headingStack), " > "), startLine: start, lastLine: start}
			}
			start, end := lineIndex.lineRange(n, source)
			if section.buf.Len() > 0 {
				section.buf.WriteString("\n\n")
			}
			section.buf.Write(blockText(n, source))
			section.lastLine = end
			if start < section.startLine {
				section.startLine = start
			}

			if EstimateTokens(section.buf.String()) >= c.opts.MaxTokens {
				overlapTail := tailTokens(section.buf.String(), c.opts.OverlapTokens)
				flush()
				section = &mdSection{headingPath: strings.Join(trimEmpty(headingStack), " > "), startLine: end, lastLine: end}
				section.buf.WriteString(overlapTail)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		result.Skipped = SkipParseError
		result.Warnings = append(result.Warnings, err.Error())
		return result, nil
	}
	flush()

	if len(chunks) == 0 {
		result.Skipped = SkipUnknown
		return result, nil
	}
	result.Chunks = mergeSmallSections(chunks, c.opts.MinTokens)
	return result, nil
}

// blockText concatenates a block node's raw source lines, for node kinds
// (Paragraph, TextBlock, List) that don't expose their own Text method.
func blockText(n ast.Node, source []byte) []byte {
	lines := n.Lines()
	if lines == nil {
		return nil
	}
	var buf strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return []byte(strings.TrimRight(buf.String(), "\n"))
}

func headingText(h *ast.Heading, source []byte) []byte {
	var buf strings.Builder
	for child := h.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return []byte(buf.String())
}

func trimEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tailTokens(s string, tokens int) string {
	chars := tokens * TokensPerChar
	if chars >= len(s) {
		return s
	}
	return s[len(s)-chars:]
}

// mergeSmallSections merges undersized prose chunks sharing a heading path
// into their neighbor, matching the markdown-track half of spec.md §4.3's
// "small prose sections sharing a parent heading are merged" rule.
func mergeSmallSections(chunks []*Chunk, minTokens int) []*Chunk {
	var out []*Chunk
	var pending *Chunk
	for _, c := range chunks {
		if pending == nil {
			pending = c
			continue
		}
		if pending.Metadata["block"] != "fenced_code" && EstimateTokens(pending.Content) < minTokens && pending.Metadata["heading_path"] == c.Metadata["heading_path"] {
			content := pending.Content + "\n\n" + c.Content
			pending = &Chunk{
				FilePath: pending.FilePath, Content: content, FileType: pending.FileType, Language: pending.Language,
				StartLine: pending.StartLine, EndLine: c.EndLine, Metadata: pending.Metadata, ContentHash: ContentHash(content),
			}
			continue
		}
		out = append(out, pending)
		pending = c
	}
	if pending != nil {
		out = append(out, pending)
	}
	return out
}

// lineIndex converts goldmark byte segments to 1-based line numbers.
type lineIndex struct {
	offsets []int // offsets[i] = byte offset where line i+1 starts
}

func newLineIndex(source []byte) *lineIndex {
	offsets := []int{0}
	for i, b := range source {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return &lineIndex{offsets: offsets}
}

func (li *lineIndex) lineForOffset(off int) int {
	lo, hi := 0, len(li.offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.offsets[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

func (li *lineIndex) lineRange(n ast.Node, source []byte) (start, end int) {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 1, 1
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return li.lineForOffset(first.Start), li.lineForOffset(last.Stop)
}
