package core

import (
	"context"

	"github.com/foresthq/forest/internal/store"
)

// Resolve dispatches ref against the progressive-id reference grammar:
// prefix, `@N` recency, `#tag`, or `"fragment"` title search.
func (v *Vault) Resolve(ctx context.Context, ref string, selectHint int) (*store.Node, error) {
	return v.Resolver.ResolveNode(ctx, ref, selectHint)
}
