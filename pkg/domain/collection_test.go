package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone_IsDeep(t *testing.T) {
	tree := fixture()
	tree[0].Headers = []KeyValue{{Key: "X-Team", Value: "core"}}
	tree[0].Auth = &Auth{Type: "bearer", Active: true, Options: map[string]string{"token": "t"}}

	clone := CloneTree(tree)
	clone[0].Name = "changed"
	clone[0].Headers[0].Value = "other"
	clone[0].Auth.Options["token"] = "u"
	clone[0].Folders[0].Requests[0].Name = "changed"

	assert.Equal(t, "A", tree[0].Name)
	assert.Equal(t, "core", tree[0].Headers[0].Value)
	assert.Equal(t, "t", tree[0].Auth.Options["token"])
	assert.Equal(t, "deep", tree[0].Folders[0].Requests[0].Name)
	assert.Equal(t, tree[0].RefID, clone[0].RefID, "clones keep identity")
}

func TestCloneWithFreshRefIDs(t *testing.T) {
	src := fixture()[0]
	dup := src.CloneWithFreshRefIDs()

	assert.Equal(t, src.Name, dup.Name)
	assert.NotEqual(t, src.RefID, dup.RefID)
	assert.NotEqual(t, src.Folders[0].RefID, dup.Folders[0].RefID)
	assert.NotEqual(t, src.Folders[0].Requests[0].RefID, dup.Folders[0].Requests[0].RefID)
	assert.NotEqual(t, src.Requests[1].RefID, dup.Requests[1].RefID)
}

func TestEnsureRefIDs_Backfills(t *testing.T) {
	tree := []Collection{{
		Name:     "legacy",
		Folders:  []Collection{{Name: "child"}},
		Requests: []Request{{Name: "r"}},
	}}
	EnsureRefIDs(tree)

	assert.NotEmpty(t, tree[0].RefID)
	assert.Equal(t, CollectionSchemaVersion, tree[0].Version)
	assert.NotEmpty(t, tree[0].Folders[0].RefID)
	assert.NotNil(t, tree[0].Folders[0].Folders)
	assert.NotNil(t, tree[0].Folders[0].Requests)
	assert.NotEmpty(t, tree[0].Requests[0].RefID)
	assert.Equal(t, RequestSchemaVersion, tree[0].Requests[0].Version)

	id := tree[0].RefID
	EnsureRefIDs(tree)
	assert.Equal(t, id, tree[0].RefID, "existing ref ids are kept")
}

func TestDispatcher_Structural(t *testing.T) {
	assert.True(t, NewDispatch(MoveFolderPayload{}).Dispatcher.Structural())
	assert.True(t, NewDispatch(SetCollectionsPayload{}).Dispatcher.Structural())
	assert.False(t, NewDispatch(EditRequestPayload{}).Dispatcher.Structural())
	assert.Equal(t, DispatchSaveRequestAs, NewDispatch(SaveRequestAsPayload{}).Dispatcher)
}

func TestDispatch_Expectations(t *testing.T) {
	tree := fixture()
	folder := tree[0].Folders[0]
	pinned := Expectation{Path: IndexPath{0, 0}, RefID: folder.RefID}
	pinnedReq := Expectation{Path: IndexPath{0, 0, 0}, Request: true, RefID: folder.Requests[0].RefID}

	assert.True(t, pinned.Holds(tree))
	assert.True(t, pinnedReq.Holds(tree))
	assert.False(t, Expectation{Path: IndexPath{0, 9}, RefID: folder.RefID}.Holds(tree))
	assert.False(t, Expectation{Path: IndexPath{0, 0}, Request: true, RefID: folder.RefID}.Holds(tree))

	base := NewDispatch(RemoveFolderPayload{Path: IndexPath{0, 0}})
	assert.NoError(t, base.Check(tree))

	guarded := base.Expecting(pinned, pinnedReq)
	assert.Empty(t, base.Expect, "Expecting must not alias the receiver")
	assert.NoError(t, guarded.Check(tree))

	tree[0].Folders = tree[0].Folders[1:]
	assert.ErrorIs(t, guarded.Check(tree), ErrStaleTarget)
}
