package workspace_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/grove/pkg/adapters/memory"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/aretw0/grove/pkg/workspace"
	"github.com/aretw0/grove/pkg/workspace/personal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readOnly is a provider without editor support.
type readOnly struct {
	ports.WorkspaceProvider
	id domain.ProviderID
}

func (r readOnly) ProviderID() domain.ProviderID { return r.id }

func newService(t *testing.T) (*workspace.Service, *personal.Provider) {
	t.Helper()
	store := memory.NewStore(memory.WithInitialState([]domain.Collection{domain.NewCollection("Home")}))
	p := personal.New(store)
	t.Cleanup(func() { _ = p.Close() })

	svc := workspace.NewService()
	svc.RegisterWorkspaceProvider(p)
	return svc, p
}

func TestService_ForwardsToProvider(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	meta, ok := svc.GetWorkspace(personal.ProviderID, personal.WorkspaceHandle).Data()
	require.True(t, ok)
	assert.Equal(t, personal.WorkspaceName, meta.Name)

	roots, ok := svc.GetRootCollections(personal.ProviderID, personal.WorkspaceHandle).Data()
	require.True(t, ok)
	require.Len(t, roots, 1)

	folder, err := svc.CreateCollection(ctx, personal.ProviderID, personal.WorkspaceHandle, roots[0].Handle, domain.CreateCollectionInput{Name: "child"})
	require.NoError(t, err)
	req, err := svc.CreateRequest(ctx, personal.ProviderID, personal.WorkspaceHandle, folder, domain.NewRequest("r", "GET", "https://example.test"))
	require.NoError(t, err)

	kids, ok := svc.GetCollectionChildren(personal.ProviderID, roots[0].Handle).Data()
	require.True(t, ok)
	assert.Equal(t, folder, kids.Folders[0].Handle)
	assert.True(t, svc.GetRequest(personal.ProviderID, req).IsAvailable())

	require.NoError(t, svc.DeleteRequest(ctx, personal.ProviderID, req))
	assert.Equal(t, domain.ResourceUnavailable, svc.GetRequest(personal.ProviderID, req).Kind())
	require.NoError(t, svc.DeleteCollection(ctx, personal.ProviderID, folder))
	assert.Equal(t, domain.ResourceUnavailable, svc.GetCollectionChildren(personal.ProviderID, folder).Kind())
}

func TestService_UnknownProviderPanics(t *testing.T) {
	svc := workspace.NewService()

	assert.PanicsWithError(t, `provider not found: "team"`, func() {
		svc.GetWorkspace("team", "personal")
	})

	_, ok := svc.Lookup("team")
	assert.False(t, ok)
}

func TestService_DuplicateRegistrationIsIgnored(t *testing.T) {
	var logs bytes.Buffer
	svc := workspace.NewService(workspace.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	first := personal.New(memory.NewStore())
	defer first.Close()
	second := personal.New(memory.NewStore())
	defer second.Close()

	svc.RegisterWorkspaceProvider(first)
	svc.RegisterWorkspaceProvider(second)

	got, ok := svc.Lookup(personal.ProviderID)
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Contains(t, logs.String(), "duplicate workspace provider")
	assert.Equal(t, []domain.ProviderID{personal.ProviderID}, svc.Providers())
}

func TestService_CurrentWorkspace(t *testing.T) {
	svc, _ := newService(t)

	_, ok := svc.CurrentWorkspace()
	assert.False(t, ok)

	err := svc.SetCurrentWorkspace(personal.ProviderID, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidWorkspace)
	err = svc.SetCurrentWorkspace("team", personal.WorkspaceHandle)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	require.NoError(t, svc.SetCurrentWorkspace(personal.ProviderID, personal.WorkspaceHandle))
	sel, ok := svc.CurrentWorkspace()
	require.True(t, ok)
	assert.Equal(t, workspace.Selection{Provider: personal.ProviderID, Workspace: personal.WorkspaceHandle}, sel)
}

func TestService_Editor(t *testing.T) {
	svc, p := newService(t)
	svc.RegisterWorkspaceProvider(readOnly{WorkspaceProvider: p, id: "readonly"})

	ed, err := svc.Editor(personal.ProviderID)
	require.NoError(t, err)
	assert.NotNil(t, ed)

	_, err = svc.Editor("readonly")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedOperation))
	assert.Equal(t, []domain.ProviderID{"personal", "readonly"}, svc.Providers())
}
