package ctxconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ctxhq/ctx/internal/errorkit"
)

// DefaultDir is ~/.ctx, the root of ctx's on-disk layout (spec.md §6).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errorkit.Config("could not determine home directory", err).
			WithSuggestion("set $HOME or run ctx as a user with a resolvable home directory")
	}
	return filepath.Join(home, ".ctx"), nil
}

// Load reads config.toml from dir (as returned by DefaultDir, normally),
// applying CTX_*-prefixed environment overrides on top of file values on
// top of hardcoded defaults, then validates the result. A missing
// config.toml is not an error; defaults are used. Grounded on
// project-cortex's internal/config/loader.go Load, adapted from YAML to
// TOML per spec.md §6's wire format.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("CTX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errorkit.Config("failed to read config.toml", err).
				WithDetail("path", filepath.Join(dir, "config.toml"))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errorkit.Config("failed to parse config.toml", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("default_provider")
	_ = v.BindEnv("default_model")
	_ = v.BindEnv("embedding.provider")
	_ = v.BindEnv("embedding.model")
	_ = v.BindEnv("embedding.fallback_provider")
	_ = v.BindEnv("embedding.fallback_model")
	_ = v.BindEnv("embedding.batch_size")
	_ = v.BindEnv("search.top_k")
	_ = v.BindEnv("search.rerank")
	_ = v.BindEnv("eval.golden_path")
	_ = v.BindEnv("eval.default_k")
	_ = v.BindEnv("observability.enabled")
	_ = v.BindEnv("observability.sample_rate")
	_ = v.BindEnv("observability.langfuse_host")
	_ = v.BindEnv("observability.langfuse_public_key")
	_ = v.BindEnv("observability.langfuse_secret_key")
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("default_provider", d.DefaultProvider)
	v.SetDefault("default_model", d.DefaultModel)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("search.top_k", d.Search.TopK)
	v.SetDefault("search.rerank", d.Search.Rerank)
	v.SetDefault("eval.golden_path", d.Eval.GoldenPath)
	v.SetDefault("eval.default_k", d.Eval.DefaultK)
	v.SetDefault("eval.thresholds.mrr", d.Eval.Thresholds.MRR)
	v.SetDefault("eval.thresholds.hit_rate", d.Eval.Thresholds.HitRate)
	v.SetDefault("eval.thresholds.precision_at_k", d.Eval.Thresholds.PrecisionAtK)
	v.SetDefault("observability.enabled", d.Observability.Enabled)
	v.SetDefault("observability.sample_rate", d.Observability.SampleRate)
}

// Save writes cfg back to dir/config.toml, used by `ctx config set`.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errorkit.Config("failed to create config directory", err).WithDetail("path", dir)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("default_provider", cfg.DefaultProvider)
	v.Set("default_model", cfg.DefaultModel)
	v.Set("embedding.provider", cfg.Embedding.Provider)
	v.Set("embedding.model", cfg.Embedding.Model)
	v.Set("embedding.fallback_provider", cfg.Embedding.FallbackProvider)
	v.Set("embedding.fallback_model", cfg.Embedding.FallbackModel)
	v.Set("embedding.batch_size", cfg.Embedding.BatchSize)
	v.Set("search.top_k", cfg.Search.TopK)
	v.Set("search.rerank", cfg.Search.Rerank)
	v.Set("eval.golden_path", cfg.Eval.GoldenPath)
	v.Set("eval.default_k", cfg.Eval.DefaultK)
	v.Set("eval.thresholds.mrr", cfg.Eval.Thresholds.MRR)
	v.Set("eval.thresholds.hit_rate", cfg.Eval.Thresholds.HitRate)
	v.Set("eval.thresholds.precision_at_k", cfg.Eval.Thresholds.PrecisionAtK)
	v.Set("observability.enabled", cfg.Observability.Enabled)
	v.Set("observability.sample_rate", cfg.Observability.SampleRate)
	v.Set("observability.langfuse_host", cfg.Observability.LangfuseHost)
	v.Set("observability.langfuse_public_key", cfg.Observability.LangfusePublicKey)
	v.Set("observability.langfuse_secret_key", cfg.Observability.LangfuseSecretKey)

	path := filepath.Join(dir, "config.toml")
	if err := v.WriteConfigAs(path); err != nil {
		return errorkit.Config("failed to write config.toml", err).WithDetail("path", path)
	}
	return nil
}
