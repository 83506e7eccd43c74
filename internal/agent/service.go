package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ctxhq/ctx/internal/assembler"
	"github.com/ctxhq/ctx/internal/coordinator"
	"github.com/ctxhq/ctx/internal/embed"
	"github.com/ctxhq/ctx/internal/rerank"
	"github.com/ctxhq/ctx/internal/router"
	"github.com/ctxhq/ctx/internal/store"
)

// FocusedProjectGetter resolves the caller's currently focused project at
// call time rather than at Service construction, so a chat session that
// changes focus mid-conversation doesn't need a new tool registration.
type FocusedProjectGetter func() string

// Service wires the retrieval chain behind the retrieve_knowledge tool:
// Router -> Coordinator -> Reranker -> Assembler.
type Service struct {
	store       store.Store
	coordinator *coordinator.Coordinator
	embedder    embed.Embedder
	reranker    rerank.Reranker // nil disables reranking
	classifier  router.Classifier // nil disables the LLM routing fallback

	focusedProject FocusedProjectGetter
	tokenBudget    int
	orderPolicy    assembler.Policy

	logger *slog.Logger
}

// NewService constructs the retrieval service. reranker and classifier
// may be nil; focusedProject may be nil (treated as "no focused project").
func NewService(
	s store.Store,
	c *coordinator.Coordinator,
	embedder embed.Embedder,
	reranker rerank.Reranker,
	classifier router.Classifier,
	focusedProject FocusedProjectGetter,
) *Service {
	return &Service{
		store:          s,
		coordinator:    c,
		embedder:       embedder,
		reranker:       reranker,
		classifier:     classifier,
		focusedProject: focusedProject,
		tokenBudget:    assembler.DefaultTokenBudget,
		orderPolicy:    assembler.PolicySandwich,
		logger:         slog.Default(),
	}
}

// RetrieveKnowledge executes the full chain for one query. Its error
// return is always nil: every failure (empty query, no embedder, store
// errors, provider unavailability) is reported in Output.Error per
// spec.md §4.14, since
// the agent is expected to tolerate both the success and failure output
// shapes without a transport-level error.
func (s *Service) RetrieveKnowledge(ctx context.Context, input Input) (*Output, error) {
	start := time.Now()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return failure("query must not be empty"), nil
	}

	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxResultsCeiling {
		maxResults = MaxResultsCeiling
	}

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.logger.Error("retrieve_knowledge_list_projects_failed", slog.String("error", err.Error()))
		return failure(err.Error()), nil
	}

	projectInfos := make([]router.ProjectInfo, 0, len(projects))
	for _, p := range projects {
		projectInfos = append(projectInfos, router.ProjectInfo{ID: p.ID, Name: p.Name, Tags: p.Tags})
	}

	var focused string
	if s.focusedProject != nil {
		focused = s.focusedProject()
	}

	decision, err := router.Route(ctx, query, focused, projectInfos, s.classifier)
	if err != nil {
		s.logger.Error("retrieve_knowledge_route_failed", slog.String("error", err.Error()))
		return failure(err.Error()), nil
	}

	routing := &Routing{
		Method:     string(decision.Method),
		ProjectIDs: decision.ProjectIDs,
		Confidence: decision.Confidence,
		Reason:     routingReason(decision),
	}

	if decision.SkipRetrieval {
		return &Output{
			Context:      "",
			Routing:      routing,
			SearchTimeMS: time.Since(start).Milliseconds(),
			Classification: &Classification{
				Type:             "small_talk",
				Confidence:       decision.Confidence,
				SkippedRetrieval: true,
			},
		}, nil
	}

	output, err := s.retrieve(ctx, query, maxResults, decision.ProjectIDs, routing, decision)
	if err != nil {
		s.logger.Error("retrieve_knowledge_failed", slog.String("error", err.Error()))
		return failure(err.Error()), nil
	}
	output.SearchTimeMS = time.Since(start).Milliseconds()
	return output, nil
}

func (s *Service) retrieve(ctx context.Context, query string, maxResults int, projectIDs []string, routing *Routing, decision router.Decision) (*Output, error) {
	vectors, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	candidateCount := maxResults
	if s.reranker != nil {
		candidateCount = rerank.DefaultCandidateCount
		if candidateCount < maxResults {
			candidateCount = maxResults
		}
	}

	hits, err := s.coordinator.Search(ctx, coordinator.SearchRequest{
		Query:          query,
		QueryVector:    vectors[0],
		Filter:         coordinator.Filter{ProjectIDs: projectIDs},
		TopKPerProject: candidateCount,
		TopK:           candidateCount,
	})
	if err != nil {
		return nil, err
	}

	assemblerHits, err := s.resolveHits(ctx, hits)
	if err != nil {
		return nil, err
	}

	if s.reranker != nil && s.reranker.Available(ctx) && len(assemblerHits) > 0 {
		assemblerHits = s.applyReranking(ctx, query, assemblerHits)
	}

	if len(assemblerHits) > maxResults {
		assemblerHits = assemblerHits[:maxResults]
	}

	artifact := assembler.Assemble(assemblerHits, s.tokenBudget, s.orderPolicy)

	sources := make([]Source, 0, len(artifact.Sources))
	for _, src := range artifact.Sources {
		sources = append(sources, Source{
			Index:     src.Index,
			FilePath:  src.FilePath,
			LineRange: src.LineRange,
			Score:     src.Score,
			Language:  src.Language,
			FileType:  src.FileType,
		})
	}

	return &Output{
		Context:         artifact.Text,
		SourceCount:     len(sources),
		EstimatedTokens: artifact.EstimatedTokens,
		Sources:         sources,
		Routing:         routing,
	}, nil
}

// resolveHits turns fused coordinator hits into assembler input,
// resolving each ChunkID back to its content via the store (mirroring
// internal/evalharness's own GetChunk-per-hit resolution).
func (s *Service) resolveHits(ctx context.Context, hits []coordinator.Hit) ([]assembler.Hit, error) {
	out := make([]assembler.Hit, 0, len(hits))
	for _, h := range hits {
		c, err := s.store.GetChunk(ctx, h.ChunkID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		out = append(out, assembler.Hit{
			ChunkID:   c.ID,
			FilePath:  c.FilePath,
			Content:   c.Content,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Language:  c.Language,
			FileType:  string(c.FileType),
			Score:     h.RRFScore,
		})
	}
	return out, nil
}

func (s *Service) applyReranking(ctx context.Context, query string, hits []assembler.Hit) []assembler.Hit {
	candidates := make([]rerank.Candidate, len(hits))
	byID := make(map[string]assembler.Hit, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{ID: h.ChunkID, Content: h.Content, PriorRank: i}
		byID[h.ChunkID] = h
	}

	results, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		s.logger.Warn("retrieve_knowledge_rerank_failed", slog.String("error", err.Error()))
		return hits
	}

	normalized := rerank.Normalize(results)
	reordered := make([]assembler.Hit, 0, len(normalized))
	for _, r := range normalized {
		h, ok := byID[r.ID]
		if !ok {
			continue
		}
		h.Score = r.Score
		reordered = append(reordered, h)
	}
	return reordered
}

func routingReason(d router.Decision) string {
	switch d.Method {
	case router.MethodFocused:
		return "query ran against the caller's currently focused project"
	case router.MethodHeuristic:
		return "query matched a project name or tag"
	case router.MethodLLM:
		return "an LLM classifier selected the target project(s)"
	case router.MethodAll:
		return "no project could be determined, searched every indexed project"
	default:
		return ""
	}
}
