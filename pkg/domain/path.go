package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexPath locates a node by descending from the tree root. The first
// element selects a root collection, each following element a folder.
// For a request path, the last element is the index in the owner's requests.
type IndexPath []int

// String renders the path in the slash form used by dispatch payloads ("0/2/1").
func (p IndexPath) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// ParseIndexPath parses the slash form back into an IndexPath.
func ParseIndexPath(s string) (IndexPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(s, "/")
	out := make(IndexPath, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		out[i] = n
	}
	return out, nil
}

// Parent returns the path without its last element. The parent of a root
// path is empty.
func (p IndexPath) Parent() IndexPath {
	if len(p) == 0 {
		return nil
	}
	return append(IndexPath(nil), p[:len(p)-1]...)
}

// Last returns the final index of the path, or -1 for an empty path.
func (p IndexPath) Last() int {
	if len(p) == 0 {
		return -1
	}
	return p[len(p)-1]
}

// Append returns a new path with idx appended; p is left untouched.
func (p IndexPath) Append(idx int) IndexPath {
	out := make(IndexPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, idx)
}

// IsRoot reports whether the path addresses a root-level collection.
func (p IndexPath) IsRoot() bool {
	return len(p) == 1
}

// HasPrefix reports whether prefix is an ancestor-or-self of p.
func (p IndexPath) HasPrefix(prefix IndexPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal compares two paths element-wise.
func (p IndexPath) Equal(other IndexPath) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// NavigateToFolder resolves a collection path against the tree.
// It is pure; a false result means some index was out of bounds, which is
// how a stale handle shows up.
func NavigateToFolder(tree []Collection, path IndexPath) (*Collection, bool) {
	if len(path) == 0 {
		return nil, false
	}
	if path[0] < 0 || path[0] >= len(tree) {
		return nil, false
	}
	current := &tree[path[0]]
	for _, idx := range path[1:] {
		if idx < 0 || idx >= len(current.Folders) {
			return nil, false
		}
		current = &current.Folders[idx]
	}
	return current, true
}

// RequestAt resolves a request path: everything but the last element is the
// owning collection, the last element the request index.
func RequestAt(tree []Collection, path IndexPath) (*Request, bool) {
	if len(path) < 2 {
		return nil, false
	}
	owner, ok := NavigateToFolder(tree, path[:len(path)-1])
	if !ok {
		return nil, false
	}
	idx := path[len(path)-1]
	if idx < 0 || idx >= len(owner.Requests) {
		return nil, false
	}
	return &owner.Requests[idx], true
}

// FolderCount returns how many child folders live under parent. An empty
// parent path addresses the root sequence.
func FolderCount(tree []Collection, parent IndexPath) (int, bool) {
	if len(parent) == 0 {
		return len(tree), true
	}
	coll, ok := NavigateToFolder(tree, parent)
	if !ok {
		return 0, false
	}
	return len(coll.Folders), true
}

// FindCollection returns the path of the collection carrying refID.
func FindCollection(tree []Collection, refID RefID) (IndexPath, bool) {
	var found IndexPath
	visit(tree, nil, func(path IndexPath, c *Collection) bool {
		if c.RefID == refID {
			found = path
			return true
		}
		return false
	})
	return found, found != nil
}

// FindRequest returns the request path (owner path plus request index) of
// the request carrying refID.
func FindRequest(tree []Collection, refID RefID) (IndexPath, bool) {
	var found IndexPath
	visit(tree, nil, func(path IndexPath, c *Collection) bool {
		for i := range c.Requests {
			if c.Requests[i].RefID == refID {
				found = path.Append(i)
				return true
			}
		}
		return false
	})
	return found, found != nil
}

// visit walks the tree parents first until fn reports true.
func visit(colls []Collection, prefix IndexPath, fn func(IndexPath, *Collection) bool) bool {
	for i := range colls {
		path := prefix.Append(i)
		if fn(path, &colls[i]) || visit(colls[i].Folders, path, fn) {
			return true
		}
	}
	return false
}
