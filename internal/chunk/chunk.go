package chunk

import (
	"context"
	"os"
)

// Input is one scanned file handed to the Chunker.
type Input struct {
	Path     string // project-relative
	AbsPath  string
	Language string
	FileType string // code|docs|config|style|data
}

// Chunker routes each input to its track (code / markdown / other) and
// streams results lazily so callers can back-pressure (spec.md §4.3
// "Emission"). Grounded on the teacher's Chunker interface
// (internal/chunk/types.go) generalized to spec.md's three-track dispatch.
type Chunker struct {
	code     *codeChunker
	markdown *markdownChunker
	opts     Options
}

func New(opts Options) *Chunker {
	opts = opts.withDefaults()
	return &Chunker{code: newCodeChunker(opts), markdown: newMarkdownChunker(opts), opts: opts}
}

func (c *Chunker) Close() { c.code.Close() }

// ChunkStream processes inputs in order, sending one FileChunkResult per
// input on the returned channel. The channel is closed when inputs is
// exhausted or ctx is cancelled.
func (c *Chunker) ChunkStream(ctx context.Context, inputs <-chan Input) <-chan *FileChunkResult {
	out := make(chan *FileChunkResult, 1)
	go func() {
		defer close(out)
		for in := range inputs {
			if ctx.Err() != nil {
				return
			}
			res := c.chunkOne(ctx, in)
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ChunkFile processes a single file synchronously, used by the indexing
// pipeline when it already has files enumerated rather than streamed.
func (c *Chunker) ChunkFile(ctx context.Context, in Input) *FileChunkResult {
	return c.chunkOne(ctx, in)
}

func (c *Chunker) chunkOne(ctx context.Context, in Input) *FileChunkResult {
	source, err := os.ReadFile(in.AbsPath)
	if err != nil {
		return &FileChunkResult{Path: in.Path, Skipped: SkipParseError, Warnings: []string{err.Error()}}
	}

	switch {
	case in.Language == "markdown":
		res, _ := c.markdown.Chunk(in.Path, source)
		return res
	case c.code.supportsExtension(extOf(in.Path)):
		res, err := c.code.Chunk(ctx, in.Path, in.Language, source, in.FileType)
		if err != nil {
			return &FileChunkResult{Path: in.Path, Skipped: SkipParseError, Warnings: []string{err.Error()}}
		}
		return res
	default:
		return chunkOther(in.Path, in.Language, in.FileType, source, c.opts)
	}
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
