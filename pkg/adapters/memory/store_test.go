package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/grove/pkg/adapters/memory"
	"github.com/aretw0/grove/pkg/domain"
	"github.com/aretw0/grove/pkg/ports"
	"github.com/aretw0/grove/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunCollectionStoreContract(t, func() ports.CollectionStore {
		return memory.NewStore()
	})
}

func TestMemorySnapshotStore_Contract(t *testing.T) {
	tests.RunSnapshotStoreContract(t, memory.NewSnapshotStore())
}

func names(colls []domain.Collection) []string {
	out := make([]string, len(colls))
	for i, c := range colls {
		out[i] = c.Name
	}
	return out
}

func requestNames(reqs []domain.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Name
	}
	return out
}

// seed builds:
//
//	A
//	├── A0
//	│   └── A00
//	├── A1
//	└── r0 r1 r2 r3
//	B
func seed() []domain.Collection {
	a := domain.NewCollection("A")
	a0 := domain.NewCollection("A0")
	a0.Folders = append(a0.Folders, domain.NewCollection("A00"))
	a.Folders = append(a.Folders, a0, domain.NewCollection("A1"))
	for _, n := range []string{"r0", "r1", "r2", "r3"} {
		a.Requests = append(a.Requests, domain.NewRequest(n, "GET", "https://example.test/"+n))
	}
	return []domain.Collection{a, domain.NewCollection("B")}
}

func dispatch(t *testing.T, s *memory.Store, p domain.Payload) {
	t.Helper()
	require.NoError(t, s.Dispatch(context.Background(), domain.NewDispatch(p)))
}

func TestStore_Reducers(t *testing.T) {
	two := 2
	cases := []struct {
		name    string
		payload domain.Payload
		check   func(t *testing.T, tree []domain.Collection)
	}{
		{
			name:    "addFolder appends to parent",
			payload: domain.AddFolderPayload{Path: domain.IndexPath{0}, Folder: domain.NewCollection("A2")},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"A0", "A1", "A2"}, names(tree[0].Folders))
				assert.NotEmpty(t, tree[0].Folders[2].RefID)
			},
		},
		{
			name:    "removeCollection shifts roots",
			payload: domain.RemoveCollectionPayload{CollectionIndex: 0},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"B"}, names(tree))
			},
		},
		{
			name:    "removeRequest shifts siblings",
			payload: domain.RemoveRequestPayload{Path: domain.IndexPath{0}, RequestIndex: 1},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"r0", "r2", "r3"}, requestNames(tree[0].Requests))
			},
		},
		{
			name:    "moveFolder into later root sibling",
			payload: domain.MoveFolderPayload{Path: domain.IndexPath{0}, DestinationPath: domain.IndexPath{1}},
			check: func(t *testing.T, tree []domain.Collection) {
				require.Equal(t, []string{"B"}, names(tree))
				assert.Equal(t, []string{"A"}, names(tree[0].Folders))
			},
		},
		{
			name:    "moveFolder to root",
			payload: domain.MoveFolderPayload{Path: domain.IndexPath{0, 0, 0}},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"A", "B", "A00"}, names(tree))
				assert.Empty(t, tree[0].Folders[0].Folders)
			},
		},
		{
			name: "moveRequest to another collection",
			payload: domain.MoveRequestPayload{
				Path: domain.IndexPath{0}, RequestIndex: 0, DestinationPath: domain.IndexPath{1},
			},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"r1", "r2", "r3"}, requestNames(tree[0].Requests))
				assert.Equal(t, []string{"r0"}, requestNames(tree[1].Requests))
			},
		},
		{
			name:    "duplicateCollection appends a renamed copy",
			payload: domain.DuplicateCollectionPayload{Path: domain.IndexPath{0, 0}},
			check: func(t *testing.T, tree []domain.Collection) {
				require.Equal(t, []string{"A0", "A1", "A0 - Duplicate"}, names(tree[0].Folders))
				assert.NotEqual(t, tree[0].Folders[0].RefID, tree[0].Folders[2].RefID)
				assert.NotEqual(t, tree[0].Folders[0].Folders[0].RefID, tree[0].Folders[2].Folders[0].RefID)
			},
		},
		{
			name:    "saveRequestAs appends a request",
			payload: domain.SaveRequestAsPayload{Path: domain.IndexPath{1}, Request: domain.Request{Name: "new"}},
			check: func(t *testing.T, tree []domain.Collection) {
				require.Len(t, tree[1].Requests, 1)
				assert.NotEmpty(t, tree[1].Requests[0].RefID)
				assert.Equal(t, domain.RequestSchemaVersion, tree[1].Requests[0].Version)
			},
		},
		{
			name:    "updateRequestOrder forward",
			payload: domain.UpdateRequestOrderPayload{RequestIndex: 0, DestinationRequestIndex: &two, DestinationCollectionPath: domain.IndexPath{0}},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"r1", "r2", "r0", "r3"}, requestNames(tree[0].Requests))
			},
		},
		{
			name:    "updateRequestOrder to end",
			payload: domain.UpdateRequestOrderPayload{RequestIndex: 1, DestinationCollectionPath: domain.IndexPath{0}},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"r0", "r2", "r3", "r1"}, requestNames(tree[0].Requests))
			},
		},
		{
			name:    "updateCollectionOrder backward",
			payload: domain.UpdateCollectionOrderPayload{CollectionIndex: domain.IndexPath{1}, DestinationCollectionIndex: domain.IndexPath{0}},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, []string{"B", "A"}, names(tree))
			},
		},
		{
			name:    "editFolder keeps children",
			payload: domain.EditFolderPayload{Path: domain.IndexPath{0, 0}, Folder: domain.Collection{Name: "renamed"}},
			check: func(t *testing.T, tree []domain.Collection) {
				assert.Equal(t, "renamed", tree[0].Folders[0].Name)
				assert.Len(t, tree[0].Folders[0].Folders, 1)
			},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.NewStore(memory.WithInitialState(seed()))
			dispatch(t, s, tt.payload)
			tt.check(t, s.State())
		})
	}
}

func TestStore_EditRequestKeepsRefID(t *testing.T) {
	s := memory.NewStore(memory.WithInitialState(seed()))
	original := s.State()[0].Requests[2].RefID

	dispatch(t, s, domain.EditRequestPayload{
		Path:         domain.IndexPath{0},
		RequestIndex: 2,
		Request:      domain.Request{RefID: "other", Name: "edited", Method: "POST"},
	})

	got := s.State()[0].Requests[2]
	assert.Equal(t, original, got.RefID)
	assert.Equal(t, "edited", got.Name)
}

func TestStore_RejectsInvalidDispatches(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		payload domain.Payload
		want    error
	}{
		{"move into own subtree", domain.MoveFolderPayload{Path: domain.IndexPath{0}, DestinationPath: domain.IndexPath{0, 0}}, domain.ErrInvalidDispatch},
		{"reorder across parents", domain.UpdateCollectionOrderPayload{CollectionIndex: domain.IndexPath{0, 0}, DestinationCollectionIndex: domain.IndexPath{1}}, domain.ErrInvalidDispatch},
		{"remove missing request", domain.RemoveRequestPayload{Path: domain.IndexPath{1}, RequestIndex: 0}, domain.ErrInvalidPath},
		{"empty folder path", domain.RemoveFolderPayload{}, domain.ErrInvalidPath},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.NewStore(memory.WithInitialState(seed()))
			before := s.State()
			err := s.Dispatch(ctx, domain.NewDispatch(tt.payload))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, s.State())
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := memory.NewStore()
	err := s.Dispatch(ctx, domain.NewDispatch(domain.AddCollectionPayload{Collection: domain.NewCollection("x")}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.State())
}
