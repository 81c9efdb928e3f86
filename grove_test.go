package grove_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/grove"
	"github.com/aretw0/grove/pkg/adapters/memory"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/mirror"
	"github.com/aretw0/grove/pkg/observability"
	"github.com/aretw0/grove/pkg/workspace/personal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsPersonalWorkspace(t *testing.T) {
	g, err := grove.New(grove.WithSeed([]domain.Collection{domain.NewCollection("A")}))
	require.NoError(t, err)
	defer g.Close()

	sel, ok := g.Service().CurrentWorkspace()
	require.True(t, ok)
	assert.Equal(t, personal.ProviderID, sel.Provider)
	assert.Equal(t, personal.WorkspaceHandle, sel.Workspace)

	roots, ok := g.Service().GetRootCollections(sel.Provider, sel.Workspace).Data()
	require.True(t, ok)
	require.Len(t, roots, 1)
	assert.Equal(t, "A", roots[0].Data.Name)
	assert.Nil(t, g.Syncer())
}

func TestNew_FansHooksOut(t *testing.T) {
	var reconciles int
	m := observability.NewMetrics()
	g, err := grove.New(
		grove.WithMetrics(m),
		grove.WithLifecycleHooks(domain.LifecycleHooks{
			OnReconcile: func(context.Context, *domain.ReconcileEvent) { reconciles++ },
		}),
	)
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Provider().CreateCollection(context.Background(), personal.WorkspaceHandle, domain.NoParent, domain.CreateCollectionInput{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, 1, reconciles)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "grove_reconcile_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRun_PushesToSnapshotStore(t *testing.T) {
	snaps := memory.NewSnapshotStore()
	g, err := grove.New(
		grove.WithSeed([]domain.Collection{domain.NewCollection("A")}),
		grove.WithSnapshotStore(snaps, "team"),
	)
	require.NoError(t, err)
	defer g.Close()
	require.NotNil(t, g.Syncer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	assert.Eventually(t, func() bool {
		tree, err := snaps.Load(context.Background(), "team")
		return err == nil && len(tree) == 1 && tree[0].Name == "A"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err = snaps.Load(context.Background(), mirror.DefaultKey)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"name":"A","folders":[],"requests":[{"name":"r","method":"GET","endpoint":"https://example.test"}]}]`), 0644))
	yamlPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- name: B\n  folders: []\n  requests: []\n"), 0644))

	ctx := context.Background()
	tree, err := grove.LoadSeed(ctx, jsonPath)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.NotEmpty(t, tree[0].RefID, "ref ids are backfilled")
	assert.NotEmpty(t, tree[0].Requests[0].RefID)

	tree, err = grove.LoadSeed(ctx, yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "B", tree[0].Name)

	_, err = grove.LoadSeed(ctx, filepath.Join(dir, "seed.toml"))
	assert.Error(t, err)
	_, err = grove.LoadSeed(ctx, filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, grove.Version)
}
