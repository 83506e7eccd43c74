package scanner

// languageByExt and languageByBase follow the teacher's extension/language
// table (internal/scanner/types.go), extended with spec.md's style/data
// split: stylesheets are FileTypeStyle rather than FileTypeCode, and plain
// structured-data formats are FileTypeData rather than FileTypeConfig.
var languageByExt = map[string]string{
	".go": "go",

	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",

	".py": "python", ".pyw": "python", ".pyi": "python",

	".html": "html", ".htm": "html",
	".css": "css", ".scss": "scss", ".sass": "sass", ".less": "less",

	".json": "json", ".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
	".xml": "xml", ".ini": "ini", ".conf": "config", ".properties": "properties",

	".md": "markdown", ".mdx": "markdown", ".markdown": "markdown",
	".rst": "rst", ".txt": "text",

	".sh": "shell", ".bash": "shell", ".zsh": "shell", ".fish": "fish",

	".rb": "ruby", ".rake": "ruby", ".erb": "erb",
	".rs": "rust",
	".java": "java", ".kt": "kotlin", ".kts": "kotlin",
	".c": "c", ".h": "c", ".cpp": "cpp", ".hpp": "cpp", ".cc": "cpp", ".cxx": "cpp",
	".cs": "csharp", ".swift": "swift", ".php": "php", ".scala": "scala",
	".ex": "elixir", ".exs": "elixir", ".erl": "erlang", ".hs": "haskell",
	".lua": "lua", ".r": "r", ".R": "r", ".sql": "sql",

	".vue": "vue", ".svelte": "svelte", ".graphql": "graphql", ".gql": "graphql",
	".proto": "protobuf",
}

var languageByBase = map[string]string{
	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",
}

var fileTypeByLanguage = map[string]FileType{
	"go": FileTypeCode, "javascript": FileTypeCode, "typescript": FileTypeCode,
	"python": FileTypeCode, "ruby": FileTypeCode, "rust": FileTypeCode,
	"java": FileTypeCode, "kotlin": FileTypeCode, "c": FileTypeCode, "cpp": FileTypeCode,
	"csharp": FileTypeCode, "swift": FileTypeCode, "php": FileTypeCode, "scala": FileTypeCode,
	"elixir": FileTypeCode, "erlang": FileTypeCode, "haskell": FileTypeCode, "lua": FileTypeCode,
	"r": FileTypeCode, "sql": FileTypeCode, "shell": FileTypeCode, "fish": FileTypeCode,
	"erb": FileTypeCode, "vue": FileTypeCode, "svelte": FileTypeCode, "graphql": FileTypeCode,
	"protobuf": FileTypeCode, "html": FileTypeCode,

	"css": FileTypeStyle, "scss": FileTypeStyle, "sass": FileTypeStyle, "less": FileTypeStyle,

	"markdown": FileTypeDocs, "rst": FileTypeDocs, "text": FileTypeDocs,

	"json": FileTypeData, "yaml": FileTypeData, "xml": FileTypeData, "properties": FileTypeData,

	"toml": FileTypeConfig, "ini": FileTypeConfig, "config": FileTypeConfig,
	"dockerfile": FileTypeConfig, "makefile": FileTypeConfig,
}

// binaryExtensions short-circuits the NUL-byte sniff for known binary kinds.
var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".webp": {},
	".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".a": {}, ".o": {}, ".obj": {},
	".mp3": {}, ".mp4": {}, ".mov": {}, ".avi": {}, ".wav": {}, ".flac": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	".db": {}, ".sqlite": {}, ".sqlite3": {},
}

// DetectLanguage infers a language name from a path, falling back to "text"
// for anything not in the built-in map (spec.md §4.2 rule 3).
func DetectLanguage(relPath string) string {
	base := baseName(relPath)
	if lang, ok := languageByBase[base]; ok {
		return lang
	}
	if lang, ok := languageByExt[extension(relPath)]; ok {
		return lang
	}
	return "text"
}

// DetectFileType derives a file's retrieval-facing type from its language.
func DetectFileType(language string) FileType {
	if t, ok := fileTypeByLanguage[language]; ok {
		return t
	}
	return FileTypeDocs
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func extension(path string) string {
	base := baseName(path)
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[i:]
		}
	}
	return ""
}
