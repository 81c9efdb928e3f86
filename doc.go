/*
Package grove issues stable handles for a tree of API request collections
and keeps them pointing at the same nodes while the tree is edited.

The collection tree lives in a reactive store and is addressed by index
paths, which shift whenever a sibling is added, removed or moved. Grove
gives consumers opaque handles instead: a workspace provider observes every
structural change, rewrites the index paths behind its handles, and
answers reactive getters that return a tagged Resource (loading,
available, unavailable or error).

# Architecture

The module follows a hexagonal layout:

  - pkg/domain: tree model, index paths, dispatches, handles, Resource.
  - pkg/ports: the store, snapshot and provider contracts.
  - pkg/registry: handle tables keyed by (parent, index).
  - pkg/reconcile: one handler per dispatcher, rewriting the registry.
  - pkg/workspace: the provider service and the personal provider.
  - pkg/adapters: memory, file and Redis stores, HTTP and MCP surfaces.
  - pkg/mirror: pushes local changes to a snapshot store and pulls remote ones.

# Usage

	g, err := grove.New(grove.WithSeed(tree))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	svc := g.Service()
	roots := svc.GetRootCollections(personal.ProviderID, personal.WorkspaceHandle)
	domain.Match(roots,
		func() string { return "loading" },
		func(rc domain.RootCollections) string { return fmt.Sprint(len(rc)) },
		func() string { return "gone" },
		func(human string, err error) string { return human },
	)

Handles are not persistable: they are valid for the lifetime of the
provider that issued them.
*/
package grove
