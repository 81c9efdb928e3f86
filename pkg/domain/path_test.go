package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []Collection {
	a := NewCollection("A")
	a0 := NewCollection("A0")
	a0.Requests = append(a0.Requests, NewRequest("deep", "GET", "https://example.test/deep"))
	a.Folders = append(a.Folders, a0, NewCollection("A1"))
	a.Requests = append(a.Requests, NewRequest("r0", "GET", "https://example.test/0"), NewRequest("r1", "POST", "https://example.test/1"))
	return []Collection{a, NewCollection("B")}
}

func TestIndexPath_StringAndParse(t *testing.T) {
	p := IndexPath{0, 2, 1}
	assert.Equal(t, "0/2/1", p.String())

	parsed, err := ParseIndexPath(" 0/2/1 ")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(p))

	for _, bad := range []string{"", "a/1", "0//1", "-1", "1/-2"} {
		_, err := ParseIndexPath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestIndexPath_Helpers(t *testing.T) {
	p := IndexPath{3, 1}
	assert.Equal(t, IndexPath{3}, p.Parent())
	assert.Empty(t, IndexPath{3}.Parent())
	assert.Equal(t, 1, p.Last())
	assert.Equal(t, -1, IndexPath{}.Last())
	assert.True(t, IndexPath{3}.IsRoot())
	assert.False(t, p.IsRoot())

	q := p.Append(4)
	assert.Equal(t, IndexPath{3, 1, 4}, q)
	assert.Equal(t, IndexPath{3, 1}, p, "Append leaves the receiver alone")

	assert.True(t, q.HasPrefix(p))
	assert.True(t, p.HasPrefix(p))
	assert.False(t, p.HasPrefix(q))
	assert.False(t, p.Equal(q))
}

func TestNavigateToFolder(t *testing.T) {
	tree := fixture()

	c, ok := NavigateToFolder(tree, IndexPath{0, 1})
	require.True(t, ok)
	assert.Equal(t, "A1", c.Name)

	c.Name = "renamed"
	assert.Equal(t, "renamed", tree[0].Folders[1].Name, "the result points into the tree")

	for _, p := range []IndexPath{nil, {2}, {-1}, {0, 2}, {1, 0}} {
		_, ok := NavigateToFolder(tree, p)
		assert.False(t, ok, p.String())
	}
}

func TestRequestAt(t *testing.T) {
	tree := fixture()

	r, ok := RequestAt(tree, IndexPath{0, 1})
	require.True(t, ok)
	assert.Equal(t, "r1", r.Name)

	r, ok = RequestAt(tree, IndexPath{0, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "deep", r.Name)

	for _, p := range []IndexPath{{0}, {0, 2}, {1, 0}, {3, 0}} {
		_, ok := RequestAt(tree, p)
		assert.False(t, ok, p.String())
	}
}

func TestFolderCount(t *testing.T) {
	tree := fixture()

	n, ok := FolderCount(tree, nil)
	require.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = FolderCount(tree, IndexPath{0})
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = FolderCount(tree, IndexPath{5})
	assert.False(t, ok)
}

func TestFindByRefID(t *testing.T) {
	tree := fixture()

	p, ok := FindCollection(tree, tree[0].Folders[1].RefID)
	require.True(t, ok)
	assert.Equal(t, IndexPath{0, 1}, p)

	p, ok = FindRequest(tree, tree[0].Folders[0].Requests[0].RefID)
	require.True(t, ok)
	assert.Equal(t, IndexPath{0, 0, 0}, p)

	_, ok = FindCollection(tree, "missing")
	assert.False(t, ok)
	_, ok = FindRequest(tree, "missing")
	assert.False(t, ok)
}
