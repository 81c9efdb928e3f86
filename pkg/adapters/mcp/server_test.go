package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/grove/pkg/adapters/memory"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/workspace"
	"github.com/aretw0/grove/pkg/workspace/personal"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	a := domain.NewCollection("A")
	a.Folders = append(a.Folders, domain.NewCollection("A0"))
	a.Requests = append(a.Requests, domain.NewRequest("list", "GET", "https://example.test/items"))
	store := memory.NewStore(memory.WithInitialState([]domain.Collection{a}))

	p := personal.New(store)
	t.Cleanup(func() { _ = p.Close() })
	svc := workspace.NewService()
	svc.RegisterWorkspaceProvider(p)
	return NewServer(svc, "test")
}

func TestTools_WalkTheTree(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()
	call := mcp.CallToolRequest{}

	ws, err := s.handleGetWorkspace(ctx, call, WorkspaceArgs{Provider: "personal", Workspace: "personal"})
	require.NoError(t, err)
	meta, ok := ws.Data()
	require.True(t, ok)
	assert.Equal(t, personal.WorkspaceName, meta.Name)

	rootsRes, err := s.handleListRootCollections(ctx, call, WorkspaceArgs{Provider: "personal", Workspace: "personal"})
	require.NoError(t, err)
	roots, ok := rootsRes.Data()
	require.True(t, ok)
	require.Len(t, roots, 1)

	childrenRes, err := s.handleGetCollectionChildren(ctx, call, HandleArgs{Provider: "personal", Handle: string(roots[0].Handle)})
	require.NoError(t, err)
	children, ok := childrenRes.Data()
	require.True(t, ok)
	require.Len(t, children.Requests, 1)

	reqRes, err := s.handleGetRequest(ctx, call, HandleArgs{Provider: "personal", Handle: string(children.Requests[0].Handle)})
	require.NoError(t, err)
	req, ok := reqRes.Data()
	require.True(t, ok)
	assert.Equal(t, "GET", req.Method)
}

func TestTools_Failures(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.handleGetRequest(ctx, mcp.CallToolRequest{}, HandleArgs{Provider: "team", Handle: "x"})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	ws, err := s.handleGetWorkspace(ctx, mcp.CallToolRequest{}, WorkspaceArgs{Provider: "personal", Workspace: "other"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceError, ws.Kind())

	children, err := s.handleGetCollectionChildren(ctx, mcp.CallToolRequest{}, HandleArgs{Provider: "personal", Handle: "missing"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceUnavailable, children.Kind())
}

func TestServer_ListsTools(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "grove-test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	res, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_workspace", "list_root_collections", "get_collection_children", "get_request"}, names)

	call := mcp.CallToolRequest{}
	call.Params.Name = "list_root_collections"
	call.Params.Arguments = map[string]any{"provider": "personal", "workspace": "personal"}
	out, err := c.CallTool(ctx, call)
	require.NoError(t, err)
	assert.False(t, out.IsError)
	require.NotEmpty(t, out.Content)
	text, ok := out.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"type":"available"`)
}
