package agent

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const toolName = "retrieve_knowledge"

const toolDescription = "Retrieves relevant context from indexed projects for a query. " +
	"Routes the query to the right project(s), searches, reranks, and returns " +
	"an assembled context string with citations. Returns an empty context with " +
	"a non-null classification when the query doesn't warrant retrieval."

// RegisterTool adds the retrieve_knowledge tool to an MCP server.
func RegisterTool(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolName,
		Description: toolDescription,
	}, svc.handleRetrieveKnowledge)
}

func (s *Service) handleRetrieveKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input Input) (
	*mcp.CallToolResult,
	Output,
	error,
) {
	output, err := s.RetrieveKnowledge(ctx, input)
	if err != nil {
		return nil, Output{Error: err.Error()}, nil
	}
	return nil, *output, nil
}
