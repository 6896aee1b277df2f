package forestid

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/foresthq/forest/internal/store"
)

// cacheSlots bounds how many past generations' bundles the LRU retains.
// Only the current generation is ever looked up, so 2 is enough headroom
// for a build racing an invalidation; older entries fall out on their own.
const cacheSlots = 2

// edgeBundle pairs an edge prefix index with the hash-to-pair table
// needed to turn a resolved hash back into endpoint ids.
type edgeBundle struct {
	index *PrefixIndex
	table map[string]store.EdgePair
}

// Cache holds the most recently built node and edge prefix indexes,
// keyed by generation. Invalidate bumps the generation so the next
// resolution rebuilds instead of ever returning a stale map; consumers
// must invalidate after any node or edge mutation.
type Cache struct {
	mu    sync.Mutex
	gen   uint64
	nodes *lru.Cache[uint64, *PrefixIndex]
	edges *lru.Cache[uint64, *edgeBundle]
}

// NewCache constructs an empty cache at generation 0.
func NewCache() *Cache {
	nodes, _ := lru.New[uint64, *PrefixIndex](cacheSlots)
	edges, _ := lru.New[uint64, *edgeBundle](cacheSlots)
	return &Cache{nodes: nodes, edges: edges}
}

// Invalidate bumps the generation. Call this after any node or edge
// mutation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// NodeIndex returns the cached node prefix index for the current
// generation, building it from build() on a miss.
func (c *Cache) NodeIndex(build func() ([]string, error)) (*PrefixIndex, error) {
	gen := c.generation()
	if idx, ok := c.nodes.Get(gen); ok {
		return idx, nil
	}
	ids, err := build()
	if err != nil {
		return nil, err
	}
	idx := BuildPrefixIndex(ids)
	c.nodes.Add(gen, idx)
	return idx, nil
}

// EdgeIndex returns the cached edge prefix index for the current
// generation plus the hash-to-pair table needed to resolve a matched
// hash back to its endpoints, building both from build() on a miss.
func (c *Cache) EdgeIndex(build func() ([]store.EdgePair, error)) (*PrefixIndex, map[string]store.EdgePair, error) {
	gen := c.generation()
	if b, ok := c.edges.Get(gen); ok {
		return b.index, b.table, nil
	}

	pairs, err := build()
	if err != nil {
		return nil, nil, err
	}

	hashes := make([]string, len(pairs))
	table := make(map[string]store.EdgePair, len(pairs))
	for i, p := range pairs {
		h := EdgeHash(p.SourceID, p.TargetID)
		hashes[i] = h
		table[h] = p
	}

	bundle := &edgeBundle{index: BuildPrefixIndex(hashes), table: table}
	c.edges.Add(gen, bundle)
	return bundle.index, bundle.table, nil
}

// EdgeHash derives an edge's progressive-id hash from its ordered
// endpoint pair.
func EdgeHash(sourceID, targetID string) string {
	source, target := store.OrderedPair(sourceID, targetID)
	sum := sha256.Sum256([]byte(source + ":" + target))
	return hex.EncodeToString(sum[:])
}
