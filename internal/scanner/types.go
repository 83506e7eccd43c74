// Package scanner discovers indexable files under a project root, applying
// built-in exclusions, .gitignore rules, and user-supplied extra-ignore
// globs before classifying each surviving file by language and type
// (spec.md §4.2).
package scanner

import "time"

// FileType mirrors store.FileType without importing the store package, so
// scanner stays storage-agnostic; pipeline converts between the two.
type FileType string

const (
	FileTypeCode   FileType = "code"
	FileTypeDocs   FileType = "docs"
	FileTypeConfig FileType = "config"
	FileTypeStyle  FileType = "style"
	FileTypeData   FileType = "data"
)

// FileInfo describes one discovered, non-excluded, non-binary file.
type FileInfo struct {
	AbsPath  string
	RelPath  string
	Ext      string
	Language string
	Type     FileType
	Size     int64
	ModTime  time.Time
}

// Options configures a Scan call (spec.md §4.2).
type Options struct {
	// MaxDepth bounds directory recursion depth below RootDir. 0 means unbounded.
	MaxDepth int
	// Extensions restricts scanning to this set, including the leading dot
	// (e.g. ".go"). Empty applies no extension filter: every file that is
	// not ignored or binary is scanned, not only the built-in supported set.
	Extensions map[string]struct{}
	// ExtraIgnore holds additional gitignore-style patterns, applied after
	// built-in exclusions and discovered .gitignore files.
	ExtraIgnore []string
	// FollowSymlinks enables following symbolic links. Default false.
	FollowSymlinks bool
	// OnFile is called for each surviving file as it is discovered.
	OnFile func(FileInfo)
	// OnError is called for each non-fatal per-file error; scanning continues.
	OnError func(path string, err error)
}

// Stats summarizes one Scan invocation (spec.md §4.2).
type Stats struct {
	Total             int
	ByLanguage        map[string]int
	ByType            map[FileType]int
	ErrorsEncountered int
	ScanDurationMS    int64
}

// Result is the return value of Scan: the discovered files plus stats.
// Files are also streamed through Options.OnFile as they're found; Files is
// retained here too since most callers want both views.
type Result struct {
	Files []FileInfo
	Stats Stats
}

const maxBinarySniffBytes = 8 * 1024

// defaultExcludeDirs are always pruned regardless of .gitignore content,
// matching the teacher's belt-and-suspenders default exclusion set.
var defaultExcludeDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"__pycache__":  {},
	"dist":         {},
	"build":        {},
	".aws":         {},
	".gcp":         {},
	".azure":       {},
	".ssh":         {},
}

// sensitiveFileGlobs are never indexed even if not gitignored.
var sensitiveFileGlobs = []string{
	".env", ".env.*",
	"*.pem", "*.key", "*.p12", "*.pfx",
	"*credentials*", "*secrets*", "*password*",
	".netrc", ".npmrc", ".pypirc",
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
}
