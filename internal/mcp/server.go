// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/trialdex/application/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName identifies the tool server to MCP clients.
const ServerName = "Enterprise-Clinical-Trials-Service"

// Tool names.
const (
	ToolSearchTrials    = "search_trials_sql"
	ToolProtocolDetails = "get_protocol_details_rag"
)

const instructions = "Use search_trials_sql to list trials by disease or keyword, " +
	"and get_protocol_details_rag for eligibility criteria, methodology and other protocol details."

// Retriever answers the two retrieval questions the tools expose.
type Retriever interface {
	SearchStructured(ctx context.Context, keyword string) (service.TrialMatches, error)
	SearchSemantic(ctx context.Context, question, nctID string) (service.ProtocolContext, error)
}

// Server wraps the MCP server with the clinical trial tools.
type Server struct {
	mcpServer *server.MCPServer
	retriever Retriever
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(retriever Retriever, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		retriever: retriever,
		logger:    logger,
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool(ToolSearchTrials,
		mcp.WithDescription("Search for clinical trials in the SQL database by condition or title. "+
			"Useful for listing trials, checking phases, or finding IDs."),
		mcp.WithString("query_condition",
			mcp.Required(),
			mcp.Description("The disease or keyword to search (e.g. 'Breast Cancer')"),
		),
	)
	mcpServer.AddTool(searchTool, s.handleSearchTrials)

	detailsTool := mcp.NewTool(ToolProtocolDetails,
		mcp.WithDescription("Retrieve detailed information from clinical protocols using vector search. "+
			"Use this when asking about exclusion criteria, methodology, or specific trial details."),
		mcp.WithString("user_question",
			mcp.Required(),
			mcp.Description("The specific question about the protocol"),
		),
		mcp.WithString("specific_nct_id",
			mcp.Description("Optional. If known, filters by trial ID (e.g. NCT05196035)"),
		),
	)
	mcpServer.AddTool(detailsTool, s.handleProtocolDetails)
}

func (s *Server) handleSearchTrials(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := request.RequireString("query_condition")
	if err != nil {
		return mcp.NewToolResultError("query_condition is required"), nil
	}

	matches, err := s.retriever.SearchStructured(ctx, keyword)
	if err != nil {
		s.logger.Error("trial search failed", slog.String("query_condition", keyword), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("trial search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(matches.Text()), nil
}

func (s *Server) handleProtocolDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("user_question")
	if err != nil {
		return mcp.NewToolResultError("user_question is required"), nil
	}
	nctID := request.GetString("specific_nct_id", "")

	pc, err := s.retriever.SearchSemantic(ctx, question, nctID)
	if err != nil {
		s.logger.Error("protocol search failed", slog.String("specific_nct_id", nctID), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("protocol search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(pc.Text()), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
