package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClassifierClassifyResolvesNamesToIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{Response: `{"project_names": ["api-gateway"], "skip_retrieval": false}`}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOllamaClassifier(LLMConfig{OllamaHost: server.URL})
	result, err := c.Classify(context.Background(), "what's broken", testProjects())
	require.NoError(t, err)
	assert.Equal(t, []string{"p-api"}, result.ProjectIDs)
	assert.False(t, result.SkipRetrieval)
}

func TestOllamaClassifierClassifyTolerantOfSurroundingProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{Response: "Sure, here you go:\n{\"project_names\": [], \"skip_retrieval\": true}\nHope that helps!"}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOllamaClassifier(LLMConfig{OllamaHost: server.URL})
	result, err := c.Classify(context.Background(), "hiya", testProjects())
	require.NoError(t, err)
	assert.True(t, result.SkipRetrieval)
	assert.Empty(t, result.ProjectIDs)
}

func TestOllamaClassifierClassifyEmptyQuerySkipsRetrievalWithoutCallingServer(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewOllamaClassifier(LLMConfig{OllamaHost: server.URL})
	result, err := c.Classify(context.Background(), "   ", testProjects())
	require.NoError(t, err)
	assert.True(t, result.SkipRetrieval)
	assert.False(t, called)
}

func TestOllamaClassifierClassifyUnresolvedNameIsDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{Response: `{"project_names": ["nonexistent-project"], "skip_retrieval": false}`}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOllamaClassifier(LLMConfig{OllamaHost: server.URL})
	result, err := c.Classify(context.Background(), "something", testProjects())
	require.NoError(t, err)
	assert.Empty(t, result.ProjectIDs)
}

func TestOllamaClassifierClassifyMalformedJSONErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := generateResponse{Response: "not json at all"}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := NewOllamaClassifier(LLMConfig{OllamaHost: server.URL})
	_, err := c.Classify(context.Background(), "something", testProjects())
	assert.Error(t, err)
}

func TestOllamaClassifierAvailableReflectsServerHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewOllamaClassifier(LLMConfig{OllamaHost: server.URL})
	assert.True(t, c.Available(context.Background()))
}

func TestOllamaClassifierAvailableFalseWhenUnreachable(t *testing.T) {
	c := NewOllamaClassifier(LLMConfig{OllamaHost: "http://127.0.0.1:1"})
	assert.False(t, c.Available(context.Background()))
}

func TestDefaultLLMConfigFillsDefaults(t *testing.T) {
	c := NewOllamaClassifier(LLMConfig{})
	assert.Equal(t, DefaultModel, c.config.Model)
	assert.Equal(t, DefaultTimeout, c.config.Timeout)
	assert.Equal(t, DefaultOllamaHost, c.config.OllamaHost)
}
