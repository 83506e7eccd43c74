package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProjects() []ProjectInfo {
	return []ProjectInfo{
		{ID: "p-api", Name: "api-gateway", Tags: []string{"backend", "go"}},
		{ID: "p-docs", Name: "handbook", Tags: []string{"docs"}},
		{ID: "p-web", Name: "storefront", Tags: []string{"frontend", "react"}},
	}
}

func TestRouteFocusedPinWithoutAlternateStaysFocused(t *testing.T) {
	d, err := Route(context.Background(), "how does auth work here", "p-api", testProjects(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-api"}, d.ProjectIDs)
	assert.Equal(t, MethodFocused, d.Method)
	assert.Equal(t, focusedConfidence, d.Confidence)
}

func TestRouteFocusedPinWithExplicitAlternateFallsThroughToHeuristic(t *testing.T) {
	d, err := Route(context.Background(), "is this also used in storefront?", "p-api", testProjects(), nil)
	require.NoError(t, err)
	assert.Equal(t, MethodHeuristic, d.Method)
	assert.Contains(t, d.ProjectIDs, "p-web")
}

func TestRouteHeuristicMatchesProjectName(t *testing.T) {
	d, err := Route(context.Background(), "what does the handbook say about PTO?", "", testProjects(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-docs"}, d.ProjectIDs)
	assert.Equal(t, MethodHeuristic, d.Method)
	assert.Equal(t, heuristicConfidence, d.Confidence)
}

func TestRouteHeuristicMatchesTag(t *testing.T) {
	d, err := Route(context.Background(), "any react components for the nav bar?", "", testProjects(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-web"}, d.ProjectIDs)
	assert.Equal(t, MethodHeuristic, d.Method)
}

func TestRouteHeuristicIsCaseInsensitive(t *testing.T) {
	d, err := Route(context.Background(), "does API-GATEWAY rate limit?", "", testProjects(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-api"}, d.ProjectIDs)
}

func TestRouteHeuristicRequiresWordBoundary(t *testing.T) {
	// "go" tag must not match inside "gone" or "ago".
	projects := []ProjectInfo{{ID: "p-x", Name: "toolbox", Tags: []string{"go"}}}
	d, err := Route(context.Background(), "that feature is gone, it happened ago", "", projects, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodAll, d.Method)
}

func TestRouteConsultsClassifierWhenHeuristicEmpty(t *testing.T) {
	cls := &stubClassifier{available: true, result: ClassifierResult{ProjectIDs: []string{"p-api"}}}
	d, err := Route(context.Background(), "what's the status of the outage", "", testProjects(), cls)
	require.NoError(t, err)
	assert.Equal(t, MethodLLM, d.Method)
	assert.Equal(t, []string{"p-api"}, d.ProjectIDs)
	assert.Equal(t, llmConfidence, d.Confidence)
	assert.True(t, cls.classifyCalled)
}

func TestRouteClassifierSkipRetrievalPropagates(t *testing.T) {
	cls := &stubClassifier{available: true, result: ClassifierResult{SkipRetrieval: true}}
	d, err := Route(context.Background(), "hey there", "", testProjects(), cls)
	require.NoError(t, err)
	assert.True(t, d.SkipRetrieval)
	assert.Equal(t, MethodLLM, d.Method)
}

func TestRouteClassifierErrorFallsBackToAll(t *testing.T) {
	cls := &stubClassifier{available: true, err: errors.New("ollama unreachable")}
	d, err := Route(context.Background(), "what's going on", "", testProjects(), cls)
	require.NoError(t, err)
	assert.Equal(t, MethodAll, d.Method)
	assert.ElementsMatch(t, []string{"p-api", "p-docs", "p-web"}, d.ProjectIDs)
}

func TestRouteClassifierUnavailableFallsBackToAll(t *testing.T) {
	cls := &stubClassifier{available: false}
	d, err := Route(context.Background(), "what's going on", "", testProjects(), cls)
	require.NoError(t, err)
	assert.Equal(t, MethodAll, d.Method)
	assert.False(t, cls.classifyCalled)
}

func TestRouteNoClassifierConfiguredFallsBackToAll(t *testing.T) {
	d, err := Route(context.Background(), "what's going on", "", testProjects(), nil)
	require.NoError(t, err)
	assert.Equal(t, MethodAll, d.Method)
	assert.Equal(t, allConfidence, d.Confidence)
	assert.ElementsMatch(t, []string{"p-api", "p-docs", "p-web"}, d.ProjectIDs)
}

type stubClassifier struct {
	available      bool
	result         ClassifierResult
	err            error
	classifyCalled bool
}

func (s *stubClassifier) Available(ctx context.Context) bool { return s.available }

func (s *stubClassifier) Classify(ctx context.Context, query string, projects []ProjectInfo) (ClassifierResult, error) {
	s.classifyCalled = true
	return s.result, s.err
}
