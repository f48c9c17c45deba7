// Package mcpserver exposes schema planning and batch simulation as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agentic-research/seedgraph/internal/batch"
	"github.com/agentic-research/seedgraph/internal/config"
	"github.com/agentic-research/seedgraph/internal/fixture"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Handlers struct {
	logger *slog.Logger
}

func NewHandlers(logger *slog.Logger) *Handlers {
	return &Handlers{logger: logger}
}

// New returns an MCP server with the commit_order and simulate tools.
func New(version string, logger *slog.Logger) *server.MCPServer {
	h := NewHandlers(logger)
	s := server.NewMCPServer("seedgraph", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("commit_order",
		mcp.WithDescription("Compute the order in which a schema's entity types must be committed."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Schema source in HCL")),
		mcp.WithBoolean("reverse", mcp.Description("List dependents first")),
	), h.CommitOrder)

	s.AddTool(mcp.NewTool("simulate",
		mcp.WithDescription("Load a data document through a schema and return the mocked, fully linked records."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Schema source in HCL")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Data document")),
		mcp.WithString("format", mcp.Description("Data format: json (default) or yaml")),
	), h.Simulate)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func (h *Handlers) CommitOrder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("schema")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	schema, err := config.Parse([]byte(src), "schema.hcl", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g := config.NewSession(schema).Graph()
	order, err := g.TopologicalOrder()
	if req.GetBool("reverse", false) {
		order, err = g.DependentsFirst()
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(order)
}

func (h *Handlers) Simulate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("schema")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := "data.json"
	if req.GetString("format", "json") == "yaml" {
		name = "data.yaml"
	}

	schema, err := config.Parse([]byte(src), "schema.hcl", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := fixture.Decode([]byte(doc), name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess := config.NewSession(schema, batch.WithLogger(h.logger))
	if _, err := fixture.NewLoader(schema, sess).Load(data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := sess.MockAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.logger.Info("simulated batch", "records", len(res.Records))
	return jsonResult(res)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
