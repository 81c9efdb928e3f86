package domain

import (
	"github.com/google/uuid"
)

// RefID is the persistable identity token embedded in every tree node.
// It survives serialization and import/export and is the only thing that
// ties a node across two unrelated tree states.
type RefID = string

// KeyValue is an ordered header/param entry.
type KeyValue struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Active bool   `json:"active" yaml:"active"`
}

// Auth describes how a collection or request authenticates.
// Only the discriminator is modelled; the payload is opaque to the engine.
type Auth struct {
	Type    string            `json:"authType" yaml:"authType"`
	Active  bool              `json:"authActive" yaml:"authActive"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Request is a leaf node of the collection tree.
type Request struct {
	Version  string     `json:"v" yaml:"v"`
	RefID    RefID      `json:"_ref_id" yaml:"_ref_id"`
	Name     string     `json:"name" yaml:"name"`
	Method   string     `json:"method" yaml:"method"`
	Endpoint string     `json:"endpoint" yaml:"endpoint"`
	Headers  []KeyValue `json:"headers,omitempty" yaml:"headers,omitempty"`
	Params   []KeyValue `json:"params,omitempty" yaml:"params,omitempty"`
	Body     string     `json:"body,omitempty" yaml:"body,omitempty"`
	Auth     *Auth      `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// Collection is a folder-like node. Root-level entries of the tree are
// Collections too; nested ones are usually called folders.
type Collection struct {
	Version  int          `json:"v" yaml:"v"`
	RefID    RefID        `json:"_ref_id" yaml:"_ref_id"`
	Name     string       `json:"name" yaml:"name"`
	Folders  []Collection `json:"folders" yaml:"folders"`
	Requests []Request    `json:"requests" yaml:"requests"`
	Headers  []KeyValue   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Auth     *Auth        `json:"auth,omitempty" yaml:"auth,omitempty"`
}

const (
	// CollectionSchemaVersion is the first collection version carrying a ref id.
	CollectionSchemaVersion = 3
	// RequestSchemaVersion is the first request version carrying a ref id.
	RequestSchemaVersion = "7"
)

// NewRefID mints a fresh ref id.
func NewRefID() RefID {
	return uuid.NewString()
}

// NewCollection returns an empty collection with a fresh ref id.
func NewCollection(name string) Collection {
	return Collection{
		Version:  CollectionSchemaVersion,
		RefID:    NewRefID(),
		Name:     name,
		Folders:  []Collection{},
		Requests: []Request{},
	}
}

// NewRequest returns a request with a fresh ref id.
func NewRequest(name, method, endpoint string) Request {
	return Request{
		Version:  RequestSchemaVersion,
		RefID:    NewRefID(),
		Name:     name,
		Method:   method,
		Endpoint: endpoint,
	}
}

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := c
	out.Headers = cloneKV(c.Headers)
	out.Auth = c.Auth.clone()
	out.Folders = make([]Collection, len(c.Folders))
	for i, f := range c.Folders {
		out.Folders[i] = f.Clone()
	}
	out.Requests = make([]Request, len(c.Requests))
	for i, r := range c.Requests {
		out.Requests[i] = r.Clone()
	}
	return out
}

// Clone returns a deep copy of the request.
func (r Request) Clone() Request {
	out := r
	out.Headers = cloneKV(r.Headers)
	out.Params = cloneKV(r.Params)
	out.Auth = r.Auth.clone()
	return out
}

// CloneWithFreshRefIDs deep-copies the collection and gives every node in
// the copy a new ref id.
func (c Collection) CloneWithFreshRefIDs() Collection {
	out := c.Clone()
	out.walk(func(coll *Collection) {
		coll.RefID = NewRefID()
		for i := range coll.Requests {
			coll.Requests[i].RefID = NewRefID()
		}
	})
	return out
}

// CloneTree deep-copies a whole tree.
func CloneTree(tree []Collection) []Collection {
	out := make([]Collection, len(tree))
	for i, c := range tree {
		out[i] = c.Clone()
	}
	return out
}

// EnsureRefIDs backfills missing ref ids and schema versions in place.
// Trees loaded from older exports have none.
func EnsureRefIDs(tree []Collection) {
	for i := range tree {
		tree[i].walk(func(coll *Collection) {
			if coll.RefID == "" {
				coll.RefID = NewRefID()
			}
			if coll.Version < CollectionSchemaVersion {
				coll.Version = CollectionSchemaVersion
			}
			if coll.Folders == nil {
				coll.Folders = []Collection{}
			}
			if coll.Requests == nil {
				coll.Requests = []Request{}
			}
			for j := range coll.Requests {
				if coll.Requests[j].RefID == "" {
					coll.Requests[j].RefID = NewRefID()
				}
				if coll.Requests[j].Version == "" {
					coll.Requests[j].Version = RequestSchemaVersion
				}
			}
		})
	}
}

// walk visits the collection and every descendant folder, parents first.
func (c *Collection) walk(fn func(*Collection)) {
	fn(c)
	for i := range c.Folders {
		c.Folders[i].walk(fn)
	}
}

func (a *Auth) clone() *Auth {
	if a == nil {
		return nil
	}
	out := *a
	if a.Options != nil {
		out.Options = make(map[string]string, len(a.Options))
		for k, v := range a.Options {
			out.Options[k] = v
		}
	}
	return &out
}

func cloneKV(kv []KeyValue) []KeyValue {
	if kv == nil {
		return nil
	}
	out := make([]KeyValue, len(kv))
	copy(out, kv)
	return out
}
