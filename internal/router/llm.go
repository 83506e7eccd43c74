package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LLM classifier defaults (grounded on the teacher's query-type
// classifier, retargeted at project selection).
const (
	DefaultModel      = "llama3.2:1b"
	DefaultTimeout    = 2 * time.Second
	DefaultOllamaHost = "http://localhost:11434"
)

// LLMConfig configures an OllamaClassifier.
type LLMConfig struct {
	Model      string
	Timeout    time.Duration
	OllamaHost string
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{Model: DefaultModel, Timeout: DefaultTimeout, OllamaHost: DefaultOllamaHost}
}

// OllamaClassifier asks a small local LLM which projects (if any) a query
// targets, or whether it's small-talk that should skip retrieval
// entirely (spec.md §4.10 step 3).
type OllamaClassifier struct {
	client *http.Client
	config LLMConfig
}

var _ Classifier = (*OllamaClassifier)(nil)

func NewOllamaClassifier(cfg LLMConfig) *OllamaClassifier {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = DefaultOllamaHost
	}
	return &OllamaClassifier{client: &http.Client{Timeout: cfg.Timeout}, config: cfg}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

const classificationPrompt = `You are a project router for a code search tool. Given a user query and a list of available projects, decide which projects (if any) are relevant, or whether the query is small talk that needs no search at all.

Projects:
%s

Query: %s

Respond with ONLY a JSON object, no other text:
{"project_names": ["name1", "name2"], "skip_retrieval": false}

Use "skip_retrieval": true and an empty "project_names" list only for greetings or pure small talk. Use project_names: [] with skip_retrieval: false if the query is a real question but doesn't clearly match any listed project.`

type classifierResponse struct {
	ProjectNames  []string `json:"project_names"`
	SkipRetrieval bool     `json:"skip_retrieval"`
}

// Classify asks the configured Ollama model to pick relevant projects.
func (c *OllamaClassifier) Classify(ctx context.Context, query string, projects []ProjectInfo) (ClassifierResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ClassifierResult{SkipRetrieval: true}, nil
	}

	prompt := fmt.Sprintf(classificationPrompt, formatProjectList(projects), query)

	body, err := json.Marshal(generateRequest{Model: c.config.Model, Prompt: prompt, Stream: false})
	if err != nil {
		return ClassifierResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.OllamaHost+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return ClassifierResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return ClassifierResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return ClassifierResult{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ClassifierResult{}, fmt.Errorf("decode response: %w", err)
	}

	return parseClassifierResponse(result.Response, projects)
}

func formatProjectList(projects []ProjectInfo) string {
	var sb strings.Builder
	for _, p := range projects {
		sb.WriteString("- ")
		sb.WriteString(p.Name)
		if len(p.Tags) > 0 {
			sb.WriteString(" (tags: ")
			sb.WriteString(strings.Join(p.Tags, ", "))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseClassifierResponse extracts the JSON object from the model's
// response (tolerating surrounding prose some models add despite
// instructions) and resolves project names back to IDs.
func parseClassifierResponse(response string, projects []ProjectInfo) (ClassifierResult, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return ClassifierResult{}, fmt.Errorf("no JSON object found in classifier response")
	}

	var parsed classifierResponse
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return ClassifierResult{}, fmt.Errorf("parse classifier JSON: %w", err)
	}

	byName := make(map[string]string, len(projects))
	for _, p := range projects {
		byName[strings.ToLower(p.Name)] = p.ID
	}

	ids := make([]string, 0, len(parsed.ProjectNames))
	for _, name := range parsed.ProjectNames {
		if id, ok := byName[strings.ToLower(name)]; ok {
			ids = append(ids, id)
		}
	}

	return ClassifierResult{ProjectIDs: ids, SkipRetrieval: parsed.SkipRetrieval}, nil
}

// Available checks that Ollama is reachable.
func (c *OllamaClassifier) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.OllamaHost+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
