package rerank

import (
	"context"
	"os"
	"strings"
)

// ProviderType identifies a reranker backend.
type ProviderType string

const (
	// ProviderNone disables reranking: fused order passes through.
	ProviderNone ProviderType = "none"

	// ProviderHTTP scores candidates via a local cross-encoder server.
	ProviderHTTP ProviderType = "http"
)

// NewReranker builds a Reranker for the given provider, honoring
// CTX_RERANKER as an override the same way embed.NewEmbedder honors
// CTX_EMBEDDER. A failed HTTP connection falls back to ProviderNone
// rather than failing the caller outright — reranking is an optional
// refinement stage, not a hard dependency.
func NewReranker(ctx context.Context, provider ProviderType, cfg Config) (Reranker, error) {
	if envProvider := os.Getenv("CTX_RERANKER"); envProvider != "" {
		provider = ParseProvider(envProvider)
	}

	switch provider {
	case ProviderHTTP:
		r, err := NewHTTPReranker(ctx, cfg)
		if err != nil {
			return NoOpReranker{}, nil
		}
		return r, nil
	default:
		return NoOpReranker{}, nil
	}
}

// ParseProvider converts a config/flag string to a ProviderType,
// defaulting to ProviderNone for anything unrecognized.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "http", "cross_encoder":
		return ProviderHTTP
	default:
		return ProviderNone
	}
}

func (p ProviderType) String() string { return string(p) }

func ValidProviders() []string {
	return []string{string(ProviderNone), string(ProviderHTTP)}
}
