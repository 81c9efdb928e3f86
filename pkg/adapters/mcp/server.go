// Package mcp exposes the read side of a workspace.Service as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/grove/internal/logging"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// WorkspaceArgs addresses a workspace of a provider.
type WorkspaceArgs struct {
	Provider  string `json:"provider"`
	Workspace string `json:"workspace"`
}

// HandleArgs addresses a collection or request handle of a provider.
type HandleArgs struct {
	Provider string `json:"provider"`
	Handle   string `json:"handle"`
}

// Server exposes a workspace.Service as an MCP server.
type Server struct {
	workspaces *workspace.Service
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server reporting version.
func NewServer(svc *workspace.Service, version string, opts ...Option) *Server {
	s := &Server{
		workspaces: svc,
		mcpServer:  server.NewMCPServer("grove-mcp", version),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_workspace",
		mcp.WithDescription("Resolve a workspace handle to its metadata."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id, e.g. personal")),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace handle")),
	), mcp.NewStructuredToolHandler(s.handleGetWorkspace))

	s.mcpServer.AddTool(mcp.NewTool("list_root_collections",
		mcp.WithDescription("List the root collections of a workspace with their handles."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id, e.g. personal")),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace handle")),
	), mcp.NewStructuredToolHandler(s.handleListRootCollections))

	s.mcpServer.AddTool(mcp.NewTool("get_collection_children",
		mcp.WithDescription("List the direct folders and requests of a collection."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id, e.g. personal")),
		mcp.WithString("handle", mcp.Required(), mcp.Description("Collection handle")),
	), mcp.NewStructuredToolHandler(s.handleGetCollectionChildren))

	s.mcpServer.AddTool(mcp.NewTool("get_request",
		mcp.WithDescription("Resolve a request handle to the full request."),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id, e.g. personal")),
		mcp.WithString("handle", mcp.Required(), mcp.Description("Request handle")),
	), mcp.NewStructuredToolHandler(s.handleGetRequest))
}

func (s *Server) provider(id string) (domain.ProviderID, error) {
	pid := domain.ProviderID(id)
	if _, ok := s.workspaces.Lookup(pid); !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrProviderNotFound, id)
	}
	return pid, nil
}

func (s *Server) handleGetWorkspace(ctx context.Context, request mcp.CallToolRequest, args WorkspaceArgs) (domain.Resource[domain.WorkspaceMeta], error) {
	pid, err := s.provider(args.Provider)
	if err != nil {
		return domain.Resource[domain.WorkspaceMeta]{}, err
	}
	return s.workspaces.GetWorkspace(pid, domain.WorkspaceHandle(args.Workspace)), nil
}

func (s *Server) handleListRootCollections(ctx context.Context, request mcp.CallToolRequest, args WorkspaceArgs) (domain.Resource[domain.RootCollections], error) {
	pid, err := s.provider(args.Provider)
	if err != nil {
		return domain.Resource[domain.RootCollections]{}, err
	}
	return s.workspaces.GetRootCollections(pid, domain.WorkspaceHandle(args.Workspace)), nil
}

func (s *Server) handleGetCollectionChildren(ctx context.Context, request mcp.CallToolRequest, args HandleArgs) (domain.Resource[domain.CollectionChildren], error) {
	pid, err := s.provider(args.Provider)
	if err != nil {
		return domain.Resource[domain.CollectionChildren]{}, err
	}
	return s.workspaces.GetCollectionChildren(pid, domain.CollectionHandle(args.Handle)), nil
}

func (s *Server) handleGetRequest(ctx context.Context, request mcp.CallToolRequest, args HandleArgs) (domain.Resource[domain.Request], error) {
	pid, err := s.provider(args.Provider)
	if err != nil {
		return domain.Resource[domain.Request]{}, err
	}
	return s.workspaces.GetRequest(pid, domain.RequestHandle(args.Handle)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: grove://providers
	s.mcpServer.AddResource(mcp.NewResource("grove://providers", "Registered workspace providers",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.providersView())
		if err != nil {
			return nil, errors.New("failed to encode providers")
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "grove://providers",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// providerView pairs a provider id with its current workspace, if any.
type providerView struct {
	ID      domain.ProviderID      `json:"id"`
	Current domain.WorkspaceHandle `json:"current,omitempty"`
}

func (s *Server) providersView() []providerView {
	sel, hasSel := s.workspaces.CurrentWorkspace()
	ids := s.workspaces.Providers()
	out := make([]providerView, len(ids))
	for i, id := range ids {
		out[i] = providerView{ID: id}
		if hasSel && sel.Provider == id {
			out[i].Current = sel.Workspace
		}
	}
	return out
}
