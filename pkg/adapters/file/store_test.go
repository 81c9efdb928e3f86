package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/grove/pkg/adapters/file"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	tests.RunSnapshotStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_YAMLContract(t *testing.T) {
	tests.RunSnapshotStoreContract(t, file.New(t.TempDir(), file.WithFormat(file.FormatYAML)))
}

func TestFileStore_BackfillsRefIDs(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"v": 1, "name": "legacy", "folders": [{"name": "inner"}], "requests": [{"name": "r"}]}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.json"), []byte(legacy), 0644))

	tree, err := file.New(dir).Load(context.Background(), "old")
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.NotEmpty(t, tree[0].RefID)
	assert.NotEmpty(t, tree[0].Folders[0].RefID)
	assert.NotEmpty(t, tree[0].Requests[0].RefID)
	assert.Equal(t, domain.CollectionSchemaVersion, tree[0].Version)
}

func TestFileStore_ListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "a", []domain.Collection{domain.NewCollection("a")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-b-123.json"), []byte("[]"), 0644))

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}

func TestFileStore_Watch(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "personal", []domain.Collection{domain.NewCollection("x")}))

	select {
	case key := <-keys:
		assert.Equal(t, "personal", key)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a watch event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-keys:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
