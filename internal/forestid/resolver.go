package forestid

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/store"
)

// Resolver implements the reference grammar against one Forest
// store: progressive id prefixes for nodes and edges, `@N` recency,
// `#tag`, and `"fragment"` title search.
type Resolver struct {
	store *store.SQLiteStore
	cache *Cache
}

// NewResolver constructs a resolver over an already-open store.
func NewResolver(s *store.SQLiteStore) *Resolver {
	return &Resolver{store: s, cache: NewCache()}
}

// Invalidate must be called after any node or edge mutation so the next
// resolution rebuilds its prefix map instead of reusing a stale one.
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
}

// ResolveNode resolves ref against the node reference grammar. selectHint
// is a 1-based pick among an ambiguous match, applied after the matches
// are ordered by updatedAt desc, id asc; 0 means no hint was given.
func (r *Resolver) ResolveNode(ctx context.Context, ref string, selectHint int) (*store.Node, error) {
	switch {
	case ref == "":
		return nil, ferrors.Validation("empty node reference", nil)
	case ref == "@" || isRecencyRef(ref):
		return r.resolveRecency(ctx, ref)
	case strings.HasPrefix(ref, "#"):
		return r.resolveTag(ctx, strings.TrimPrefix(ref, "#"))
	case isQuotedFragment(ref):
		return r.resolveFragment(ctx, strings.Trim(ref, `"`))
	default:
		return r.resolveNodePrefix(ctx, ref, selectHint)
	}
}

// ResolveEdge resolves ref against the edge progressive-id hash space,
// with the same selectHint convention as ResolveNode.
func (r *Resolver) ResolveEdge(ctx context.Context, ref string, selectHint int) (*store.Edge, error) {
	if len(ref) < MinPrefixLength {
		return nil, ferrors.Validation("edge reference must be at least "+strconv.Itoa(MinPrefixLength)+" characters", nil)
	}

	idx, table, err := r.cache.EdgeIndex(func() ([]store.EdgePair, error) {
		return r.store.ListEdgePairs(ctx, nil)
	})
	if err != nil {
		return nil, err
	}

	hashes := idx.Matches(ref)
	if len(hashes) == 0 {
		return nil, ferrors.NotFound("edge "+ref+" matched no id", nil)
	}

	edges := make([]*store.Edge, 0, len(hashes))
	for _, h := range hashes {
		pair, ok := table[h]
		if !ok {
			continue
		}
		e, err := r.store.GetEdge(ctx, nil, pair.SourceID, pair.TargetID)
		if err != nil {
			return nil, err
		}
		if e != nil {
			edges = append(edges, e)
		}
	}
	if len(edges) == 0 {
		return nil, ferrors.NotFound("edge not found: "+ref, nil)
	}
	if len(edges) == 1 {
		return edges[0], nil
	}

	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].UpdatedAt.Equal(edges[j].UpdatedAt) {
			return edges[i].UpdatedAt.After(edges[j].UpdatedAt)
		}
		si, ti := edges[i].Key()
		sj, tj := edges[j].Key()
		if si != sj {
			return si < sj
		}
		return ti < tj
	})

	if selectHint <= 0 {
		ids := make([]string, len(edges))
		for i, e := range edges {
			s, t := e.Key()
			ids[i] = EdgeHash(s, t)
		}
		return nil, ferrors.Ambiguous("edge "+ref+" is ambiguous", ids)
	}
	if selectHint > len(edges) {
		return nil, ferrors.Validation("edge "+ref+": select hint out of range", nil)
	}
	return edges[selectHint-1], nil
}

func (r *Resolver) resolveNodePrefix(ctx context.Context, prefix string, selectHint int) (*store.Node, error) {
	if len(prefix) < MinPrefixLength {
		return nil, ferrors.Validation("node reference must be at least "+strconv.Itoa(MinPrefixLength)+" characters", nil)
	}

	idx, err := r.cache.NodeIndex(func() ([]string, error) {
		return r.store.ListNodeIDs(ctx, nil)
	})
	if err != nil {
		return nil, err
	}

	matches := idx.Matches(prefix)
	if len(matches) == 0 {
		return nil, ferrors.NotFound("node "+prefix+" matched no id", nil)
	}
	if len(matches) == 1 {
		return r.store.GetNode(ctx, nil, matches[0])
	}

	nodes := make([]*store.Node, 0, len(matches))
	for _, id := range matches {
		n, err := r.store.GetNode(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	sortByRecencyThenID(nodes)

	if selectHint <= 0 {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		return nil, ferrors.Ambiguous("node "+prefix+" is ambiguous", ids)
	}
	if selectHint > len(nodes) {
		return nil, ferrors.Validation("node "+prefix+": select hint out of range", nil)
	}
	return nodes[selectHint-1], nil
}

func (r *Resolver) resolveRecency(ctx context.Context, ref string) (*store.Node, error) {
	n := 0
	if ref != "@" {
		var err error
		n, err = strconv.Atoi(strings.TrimPrefix(ref, "@"))
		if err != nil || n < 0 {
			return nil, ferrors.Validation("invalid recency reference: "+ref, nil)
		}
	}

	nodes, err := r.store.ListRecentNodes(ctx, nil, n+1)
	if err != nil {
		return nil, err
	}
	if n >= len(nodes) {
		return nil, ferrors.NotFound("no node at recency index "+strconv.Itoa(n), nil)
	}
	return nodes[n], nil
}

func (r *Resolver) resolveTag(ctx context.Context, tag string) (*store.Node, error) {
	if tag == "" {
		return nil, ferrors.Validation("empty tag reference", nil)
	}
	nodes, err := r.store.FindNodesByTag(ctx, nil, tag)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ferrors.NotFound("no node carries tag "+tag, nil)
	}
	return nodes[0], nil
}

func (r *Resolver) resolveFragment(ctx context.Context, fragment string) (*store.Node, error) {
	if fragment == "" {
		return nil, ferrors.Validation("empty title fragment", nil)
	}
	nodes, err := r.store.SearchNodesByTitleFragment(ctx, nil, fragment)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ferrors.NotFound("no node title matches "+strconv.Quote(fragment), nil)
	}
	if len(nodes) > 1 {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		return nil, ferrors.Ambiguous("title fragment "+strconv.Quote(fragment)+" matches multiple nodes", ids)
	}
	return nodes[0], nil
}

// sortByRecencyThenID orders nodes by updatedAt descending, id ascending.
// Resolution must not depend on map or result-set iteration order.
func sortByRecencyThenID(nodes []*store.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].UpdatedAt.Equal(nodes[j].UpdatedAt) {
			return nodes[i].UpdatedAt.After(nodes[j].UpdatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func isRecencyRef(ref string) bool {
	if len(ref) < 2 || ref[0] != '@' {
		return false
	}
	for _, r := range ref[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isQuotedFragment(ref string) bool {
	return len(ref) >= 2 && strings.HasPrefix(ref, `"`) && strings.HasSuffix(ref, `"`)
}
