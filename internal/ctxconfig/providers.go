package ctxconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctxhq/ctx/internal/errorkit"
)

// ProviderType discriminates entries in providers.json (spec.md §6).
type ProviderType string

const (
	ProviderTypeAnthropic       ProviderType = "anthropic"
	ProviderTypeOpenAI          ProviderType = "openai"
	ProviderTypeOpenAICompatible ProviderType = "openai-compatible"
)

// Provider is one named entry in providers.json. BaseURL only applies to
// openai-compatible providers; it's ignored (but tolerated) for the rest.
type Provider struct {
	Name    string       `json:"name"`
	Type    ProviderType `json:"type"`
	APIKey  string       `json:"apiKey"`
	BaseURL string       `json:"baseUrl,omitempty"`
	Model   string       `json:"model,omitempty"`
}

func (p Provider) validate() error {
	switch p.Type {
	case ProviderTypeAnthropic, ProviderTypeOpenAI, ProviderTypeOpenAICompatible:
	default:
		return fmt.Errorf("provider %q has unknown type %q", p.Name, p.Type)
	}
	if p.Type == ProviderTypeOpenAICompatible && p.BaseURL == "" {
		return fmt.Errorf("provider %q is openai-compatible and requires baseUrl", p.Name)
	}
	if p.APIKey == "" {
		return fmt.Errorf("provider %q is missing apiKey", p.Name)
	}
	return nil
}

// ProviderSet indexes providers.json's entries by name.
type ProviderSet map[string]Provider

// LoadProviders reads dir/providers.json. A missing file returns an empty,
// non-nil ProviderSet (no providers configured is valid: spec.md only
// requires config.toml's default_provider to resolve when providers are
// actually used). The file must be mode 0600 or tighter, mirroring the
// teacher's preflight permission checks on sensitive files.
func LoadProviders(dir string) (ProviderSet, error) {
	path := filepath.Join(dir, "providers.json")

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ProviderSet{}, nil
	}
	if err != nil {
		return nil, errorkit.Config("failed to stat providers.json", err).WithDetail("path", path)
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, errorkit.Config(
			fmt.Sprintf("providers.json must not be readable by group or others (mode %04o)", perm), nil,
		).WithDetail("path", path).
			WithSuggestion(fmt.Sprintf("run: chmod 600 %s", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorkit.Config("failed to read providers.json", err).WithDetail("path", path)
	}

	var entries []Provider
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errorkit.Config("failed to parse providers.json", err).WithDetail("path", path)
	}

	set := make(ProviderSet, len(entries))
	for _, p := range entries {
		if err := p.validate(); err != nil {
			return nil, errorkit.Validation(err.Error(), nil).WithDetail("path", path)
		}
		set[p.Name] = p
	}
	return set, nil
}

// SaveProviders writes entries to dir/providers.json at mode 0600.
func SaveProviders(dir string, set ProviderSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errorkit.Config("failed to create config directory", err).WithDetail("path", dir)
	}

	entries := make([]Provider, 0, len(set))
	for _, p := range set {
		entries = append(entries, p)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errorkit.Config("failed to marshal providers.json", err)
	}

	path := filepath.Join(dir, "providers.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errorkit.Config("failed to write providers.json", err).WithDetail("path", path)
	}
	return nil
}
