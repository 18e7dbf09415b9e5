// Package mcp exposes the engine as a Model Context Protocol server, so
// agent tooling can inspect and drive workflow graphs directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	weft "github.com/loomworks/weft"
	"github.com/loomworks/weft/pkg/domain"
)

// Server wraps the engine and exposes it over MCP.
type Server struct {
	engine    *weft.Engine
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server instance around the engine.
func NewServer(engine *weft.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("weft-mcp", weft.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the current workflow graph: nodes, edges and execution statuses."),
	), func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.engine.Graph())
	})

	// TOOL: add_node
	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node to the graph. Config keys depend on the node type, e.g. url for web-summarizer, promptText for prompt."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Node type (prompt, agent-call, conditional, web-summarizer, data-transform, api-call, trigger, wait, custom)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable node title")),
		mcp.WithString("description", mcp.Description("Optional node description")),
		mcp.WithString("config", mcp.Description("JSON object with type-specific config keys")),
	), func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		nodeType := domain.NodeType(stringArg(args, "type"))

		node := domain.Node{
			Type:        nodeType,
			Title:       stringArg(args, "title"),
			Description: stringArg(args, "description"),
		}
		if raw := stringArg(args, "config"); raw != "" {
			var cfgMap map[string]any
			if err := json.Unmarshal([]byte(raw), &cfgMap); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid config JSON: %v", err)), nil
			}
			cfg, err := domain.DecodeConfig(nodeType, cfgMap)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid config: %v", err)), nil
			}
			node.Config = cfg
		}

		created, err := s.engine.AddNode(node)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("add node failed: %v", err)), nil
		}
		return jsonResult(created)
	})

	// TOOL: connect_nodes
	s.mcpServer.AddTool(mcp.NewTool("connect_nodes",
		mcp.WithDescription("Connect two nodes with a directed edge from source output to target input."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target node ID")),
	), func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if err := s.engine.ClickOutput(stringArg(args, "from")); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("connect failed: %v", err)), nil
		}
		edge, err := s.engine.ClickInput(stringArg(args, "to"))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("connect failed: %v", err)), nil
		}
		return jsonResult(edge)
	})

	// TOOL: run_node
	s.mcpServer.AddTool(mcp.NewTool("run_node",
		mcp.WithDescription("Dispatch one queued node for execution."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID to run")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := stringArg(request.GetArguments(), "node_id")
		if err := s.engine.RunNode(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
		}
		return jsonResult(map[string]any{"node_id": id, "status": s.engine.Status(id)})
	})

	// TOOL: run_all
	s.mcpServer.AddTool(mcp.NewTool("run_all",
		mcp.WithDescription("Dispatch every queued root node."),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := s.engine.RunAll(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run all failed: %v", err)), nil
		}
		return jsonResult(s.engine.Graph().Statuses)
	})

	// TOOL: set_status
	s.mcpServer.AddTool(mcp.NewTool("set_status",
		mcp.WithDescription("Force a node's execution status (operator override, bypasses the state machine)."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("status", mcp.Required(), mcp.Description("One of pending, queued, running, completed, failed, unknown")),
	), func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		status := domain.ExecutionStatus(stringArg(args, "status"))
		if !status.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
		}
		if err := s.engine.OverrideStatus(stringArg(args, "node_id"), status); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("set status failed: %v", err)), nil
		}
		return mcp.NewToolResultText("ok"), nil
	})

	// TOOL: load_template
	s.mcpServer.AddTool(mcp.NewTool("load_template",
		mcp.WithDescription("Instantiate a named template, replacing the current graph."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Template name")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idMap, err := s.engine.LoadTemplate(ctx, stringArg(request.GetArguments(), "name"))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load template failed: %v", err)), nil
		}
		return jsonResult(map[string]any{"id_map": idMap})
	})
}

func (s *Server) registerResources() {
	// EXPOSE: weft://graph
	s.mcpServer.AddResource(mcp.NewResource("weft://graph", "Current Workflow Graph",
		mcp.WithMIMEType("application/json"),
	), func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Graph())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "weft://graph",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
