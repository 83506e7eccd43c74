// Package ctxconfig loads ctx's typed configuration from ~/.ctx/config.toml
// and ~/.ctx/providers.json, following spec.md §6's schema exactly.
package ctxconfig

// Config is the recognized config.toml schema (spec.md §6).
type Config struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	DefaultModel    string          `mapstructure:"default_model"`
	Embedding       EmbeddingConfig `mapstructure:"embedding"`
	Search          SearchConfig    `mapstructure:"search"`
	Eval            EvalConfig      `mapstructure:"eval"`
	Observability   ObservabilityConfig `mapstructure:"observability"`
}

// EmbeddingConfig configures the embedding provider and its fallback.
type EmbeddingConfig struct {
	Provider         string `mapstructure:"provider"`
	Model            string `mapstructure:"model"`
	FallbackProvider string `mapstructure:"fallback_provider"`
	FallbackModel    string `mapstructure:"fallback_model"`
	BatchSize        int    `mapstructure:"batch_size"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	TopK   int  `mapstructure:"top_k"`
	Rerank bool `mapstructure:"rerank"`
}

// EvalThresholds gates eval §4.12 regressions.
type EvalThresholds struct {
	MRR           float64 `mapstructure:"mrr"`
	HitRate       float64 `mapstructure:"hit_rate"`
	PrecisionAtK  float64 `mapstructure:"precision_at_k"`
}

// EvalConfig configures the eval harness defaults.
type EvalConfig struct {
	GoldenPath string         `mapstructure:"golden_path"`
	DefaultK   int            `mapstructure:"default_k"`
	Thresholds EvalThresholds `mapstructure:"thresholds"`
}

// ObservabilityConfig gates the tracer (internal/tracer.Config is built
// from this at startup).
type ObservabilityConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	SampleRate       float64 `mapstructure:"sample_rate"`
	LangfuseHost     string  `mapstructure:"langfuse_host"`
	LangfusePublicKey string `mapstructure:"langfuse_public_key"`
	LangfuseSecretKey string `mapstructure:"langfuse_secret_key"`
}

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"

	EmbeddingProviderHuggingFace = "huggingface"
	EmbeddingProviderOllama      = "ollama"
	EmbeddingProviderOpenAI      = "openai"
)

// Default returns a Config populated with the defaults spec.md §6 implies
// (explicit batch_size=32, top_k in [1,100], default_k >= 1).
func Default() *Config {
	return &Config{
		DefaultProvider: ProviderAnthropic,
		DefaultModel:    "claude-sonnet-4-5",
		Embedding: EmbeddingConfig{
			Provider:  EmbeddingProviderHuggingFace,
			Model:     "BAAI/bge-small-en-v1.5",
			BatchSize: 32,
		},
		Search: SearchConfig{
			TopK:   20,
			Rerank: false,
		},
		Eval: EvalConfig{
			GoldenPath: "eval",
			DefaultK:   10,
			Thresholds: EvalThresholds{
				MRR:          0.5,
				HitRate:      0.7,
				PrecisionAtK: 0.5,
			},
		},
		Observability: ObservabilityConfig{
			Enabled:    false,
			SampleRate: 1.0,
		},
	}
}
