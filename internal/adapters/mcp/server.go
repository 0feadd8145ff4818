// Package mcp exposes the tour search tools over the Model Context Protocol
// so external agents can query the catalog with the same tools the
// recommendation agent uses.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/core/usecase"
)

const (
	serverName    = "tourai-search"
	serverVersion = "1.0.0"
)

// ToolCatalog is the subset of the search tool set the MCP server needs.
type ToolCatalog interface {
	Descriptors() []usecase.ToolDescriptor
	Invoke(ctx context.Context, name string, args map[string]any) (usecase.ToolResult, error)
}

type Option func(*Server)

// WithCallObserver is notified with the tool name of every served call.
func WithCallObserver(observe func(tool string)) Option {
	return func(s *Server) {
		s.observe = observe
	}
}

type Server struct {
	tools   ToolCatalog
	mcp     *server.MCPServer
	observe func(tool string)
}

func NewServer(tools ToolCatalog, opts ...Option) *Server {
	s := &Server{
		tools: tools,
		mcp:   server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, descriptor := range tools.Descriptors() {
		s.mcp.AddTool(toolFromDescriptor(descriptor), s.handlerFor(descriptor.Name))
	}
	return s
}

// HTTPHandler serves the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}

func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		result, err := s.tools.Invoke(ctx, name, args)
		if err != nil {
			slog.Warn("mcp_tool_call_failed", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		if s.observe != nil {
			s.observe(name)
		}
		return mcp.NewToolResultText(result.JSON()), nil
	}
}

func toolFromDescriptor(d usecase.ToolDescriptor) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(d.Description)}
	for _, param := range d.Parameters {
		opts = append(opts, parameterOption(param))
	}
	return mcp.NewTool(d.Name, opts...)
}

func parameterOption(p domain.ToolParameter) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(p.Description)}
	if p.Required {
		props = append(props, mcp.Required())
	}
	switch p.Type {
	case "number", "integer":
		return mcp.WithNumber(p.Name, props...)
	case "boolean":
		return mcp.WithBoolean(p.Name, props...)
	default:
		return mcp.WithString(p.Name, props...)
	}
}
