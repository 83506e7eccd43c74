// Package pipeline orchestrates the indexing stages scanning, chunking,
// embedding, and storing for a single project (spec.md §4.11). It fires
// start/progress/complete callbacks per stage, collects non-fatal errors
// and warnings instead of aborting on them, and supports --force
// re-indexing, checkpoint resume, and mid-run cancellation.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage identifies one of the four pipeline phases, matching
// store.IndexCheckpoint.Stage's vocabulary.
type Stage string

const (
	StageScanning  Stage = "scanning"
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageStoring   Stage = "storing"
	StageComplete  Stage = "complete"
)

// Progress is reported to Options.OnProgress as a stage advances.
type Progress struct {
	Stage     Stage
	Completed int
	Total     int
}

// Options configures a Run.
type Options struct {
	// ProjectName identifies the project by name; a new project is
	// created on first index, looked up by name otherwise.
	ProjectName string

	// RootPath is the absolute path to the project's source tree.
	RootPath string

	// Description and Tags are stored on first index and left
	// unchanged on re-index (use ctx config/list commands to edit).
	Description string
	Tags        []string

	// ExtraIgnore are additional gitignore-style patterns (spec.md §4.2).
	ExtraIgnore []string

	// Force replaces all of a project's chunks and invalidates its
	// vector/lexical caches rather than failing with AlreadyIndexed.
	Force bool

	// BatchSize is the embedding batch size; defaults to embed.DefaultBatchSize.
	BatchSize int

	OnStageStart    func(Stage)
	OnProgress      func(Progress)
	OnStageComplete func(Stage)

	// Cancel, when non-nil, is polled at batch boundaries in every
	// stage; a closed channel aborts the run with errorkit.Cancelled().
	Cancel <-chan struct{}
}

// Result is the outcome of a Run: counts plus every non-fatal warning and
// error collected along the way (spec.md §4.11 "never throw").
type Result struct {
	ProjectID      string
	FilesScanned   int
	ChunksCreated  int
	ChunksEmbedded int
	ChunksStored   int
	Warnings       []string
	Errors         []string
	Cancelled      bool
	Duration       time.Duration
}

func newProjectID() string {
	return uuid.NewString()
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
