package ctxconfig

import (
	"fmt"
	"strings"

	"github.com/ctxhq/ctx/internal/errorkit"
)

var validProviders = map[string]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

var validEmbeddingProviders = map[string]bool{
	EmbeddingProviderHuggingFace: true,
	EmbeddingProviderOllama:      true,
	EmbeddingProviderOpenAI:      true,
}

// Validate checks cfg against spec.md §6's schema constraints, grounded on
// project-cortex's internal/config/validate.go joined-errors shape.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.DefaultProvider != "" && !validProviders[strings.ToLower(cfg.DefaultProvider)] {
		problems = append(problems, fmt.Sprintf("default_provider must be one of anthropic, openai, ollama, got %q", cfg.DefaultProvider))
	}

	if cfg.Embedding.Provider != "" && !validEmbeddingProviders[strings.ToLower(cfg.Embedding.Provider)] {
		problems = append(problems, fmt.Sprintf("embedding.provider must be one of huggingface, ollama, openai, got %q", cfg.Embedding.Provider))
	}
	if cfg.Embedding.FallbackProvider != "" && !validEmbeddingProviders[strings.ToLower(cfg.Embedding.FallbackProvider)] {
		problems = append(problems, fmt.Sprintf("embedding.fallback_provider must be one of huggingface, ollama, openai, got %q", cfg.Embedding.FallbackProvider))
	}
	if cfg.Embedding.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("embedding.batch_size must be positive, got %d", cfg.Embedding.BatchSize))
	}

	if cfg.Search.TopK < 1 || cfg.Search.TopK > 100 {
		problems = append(problems, fmt.Sprintf("search.top_k must be in [1,100], got %d", cfg.Search.TopK))
	}

	if cfg.Eval.DefaultK < 1 {
		problems = append(problems, fmt.Sprintf("eval.default_k must be >= 1, got %d", cfg.Eval.DefaultK))
	}
	for name, v := range map[string]float64{
		"eval.thresholds.mrr":            cfg.Eval.Thresholds.MRR,
		"eval.thresholds.hit_rate":       cfg.Eval.Thresholds.HitRate,
		"eval.thresholds.precision_at_k": cfg.Eval.Thresholds.PrecisionAtK,
	} {
		if v < 0 || v > 1 {
			problems = append(problems, fmt.Sprintf("%s must be in [0,1], got %f", name, v))
		}
	}

	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		problems = append(problems, fmt.Sprintf("observability.sample_rate must be in [0,1], got %f", cfg.Observability.SampleRate))
	}

	if len(problems) == 0 {
		return nil
	}
	return errorkit.Validation(strings.Join(problems, "; "), nil)
}
