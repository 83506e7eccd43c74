// Package agent exposes the single retrieve_knowledge tool an LLM agent
// may call (spec.md §4.14): Router -> Coordinator -> Reranker -> Assembler
// behind one MCP tool, with focused-project context resolved fresh on
// every call rather than captured once at startup.
package agent

// DefaultMaxResults is applied when the caller omits maxResults.
const DefaultMaxResults = 5

// MaxResultsCeiling bounds maxResults regardless of what the caller asks
// for (spec.md §4.14: "maxResults?: int in [1,20], default 5").
const MaxResultsCeiling = 20

// Input is the retrieve_knowledge tool's input schema.
type Input struct {
	Query      string `json:"query" jsonschema:"the question or topic to retrieve context for"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"maximum number of sources to return, 1-20, default 5"`
}

// Routing reports how the router chose which projects to search.
type Routing struct {
	Method     string   `json:"method"`
	ProjectIDs []string `json:"projectIds"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Classification is populated only when the optional LLM classifier
// decided to skip retrieval; it is nil whenever retrieval runs.
type Classification struct {
	Type          string  `json:"type"`
	Confidence    float64 `json:"confidence"`
	SkippedRetrieval bool `json:"skippedRetrieval"`
}

// Source is one cited chunk in the assembled context (spec.md §4.9's
// Source shape, reused verbatim for the tool's output).
type Source struct {
	Index     int     `json:"index"`
	FilePath  string  `json:"filePath"`
	LineRange string  `json:"lineRange"`
	Score     float64 `json:"score"`
	Language  string  `json:"language,omitempty"`
	FileType  string  `json:"fileType,omitempty"`
}

// Output is the retrieve_knowledge tool's result. On failure only Error
// is set (spec.md §4.14: "output on failure: { error: string } with no
// partial fields"); on success every other field is populated and Error
// is empty, so a single struct with omitempty tags naturally produces
// either shape.
type Output struct {
	Error string `json:"error,omitempty"`

	Context         string          `json:"context,omitempty"`
	SourceCount     int             `json:"sourceCount,omitempty"`
	EstimatedTokens int             `json:"estimatedTokens,omitempty"`
	Sources         []Source        `json:"sources,omitempty"`
	Routing         *Routing        `json:"routing,omitempty"`
	SearchTimeMS    int64           `json:"searchTimeMs,omitempty"`
	Classification  *Classification `json:"classification,omitempty"`
}

func failure(message string) *Output {
	return &Output{Error: message}
}
