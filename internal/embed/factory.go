package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// ProviderType identifies an embedding backend.
type ProviderType string

const (
	// ProviderOllama embeds via a local Ollama server (default).
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses a deterministic hash-based embedder with no
	// external dependency; used when Ollama is unreachable or for tests.
	ProviderStatic ProviderType = "static"
)

// NewEmbedder builds an embedder for the given provider and model,
// wrapping it with a query-result LRU cache unless CTX_EMBED_CACHE
// disables it. CTX_EMBEDDER overrides provider selection; CTX_OLLAMA_HOST,
// CTX_OLLAMA_MODEL and CTX_OLLAMA_TIMEOUT override Ollama settings.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	if envProvider := os.Getenv("CTX_EMBEDDER"); envProvider != "" {
		provider = ParseProvider(envProvider)
	}

	var embedder Embedder
	var err error

	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder768()
	case ProviderOllama:
		embedder, err = newOllamaFromEnv(ctx, model)
	default:
		embedder, err = newOllamaFromEnv(ctx, model)
	}

	if err != nil {
		return nil, err
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}

	return embedder, nil
}

func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("CTX_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// newOllamaFromEnv builds the Ollama embedder, applying environment
// overrides on top of the default config. It does not fall back to the
// static embedder on failure — callers that want a guaranteed embedder
// should catch the error and construct ProviderStatic explicitly, so the
// choice of operating in lexical-only mode is always visible to the user.
func newOllamaFromEnv(ctx context.Context, model string) (Embedder, error) {
	cfg := DefaultOllamaConfig()
	if model != "" {
		cfg.Model = model
	}
	if host := os.Getenv("CTX_OLLAMA_HOST"); host != "" {
		cfg.Host = host
	}
	if modelOverride := os.Getenv("CTX_OLLAMA_MODEL"); modelOverride != "" {
		cfg.Model = modelOverride
	}
	if timeoutStr := os.Getenv("CTX_OLLAMA_TIMEOUT"); timeoutStr != "" {
		if timeout, err := time.ParseDuration(timeoutStr); err == nil {
			cfg.Timeout = timeout
		}
	}

	embedder, err := NewOllamaEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ollama unavailable: %w\n\nto fix:\n  1. start ollama: ollama serve\n  2. or use lexical-only mode: CTX_EMBEDDER=static ctx index", err)
	}
	return embedder, nil
}

// ParseProvider converts a config/flag string to a ProviderType, defaulting
// to Ollama for anything unrecognized.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	case "ollama":
		return ProviderOllama
	default:
		return ProviderOllama
	}
}

func (p ProviderType) String() string { return string(p) }

// ValidProviders returns all valid provider names, for CLI help text and
// config validation.
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderStatic)}
}

func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo summarizes an embedder's identity, for `ctx config list`
// and status reporting.
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo inspects an embedder, unwrapping CachedEmbedder to determine the
// concrete provider backing it.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx) == nil,
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.Inner()
	}

	switch inner.(type) {
	case *OllamaEmbedder:
		info.Provider = ProviderOllama
	default:
		info.Provider = ProviderStatic
	}

	return info
}

// MustNewEmbedder creates an embedder and panics on failure. Use only in
// tests or startup code where a missing embedder is fatal.
func MustNewEmbedder(ctx context.Context, provider ProviderType, model string) Embedder {
	embedder, err := NewEmbedder(ctx, provider, model)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}
