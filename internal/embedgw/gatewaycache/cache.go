// Package gatewaycache wraps an embedgw.Gateway with an LRU cache for
// repeated query embeddings, keyed by SHA-256 of the text plus the
// wrapped gateway's provider name.
package gatewaycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the default number of cached query embeddings.
const DefaultSize = 512

// Gateway is the subset of embedgw.Gateway that Cached wraps, declared
// locally to avoid an import cycle (embedgw.New wraps gateways with this
// package's cache).
type Gateway interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Provider() string
	Close() error
}

// Cached wraps a Gateway, caching Embed results keyed by text+provider.
type Cached struct {
	inner Gateway
	cache *lru.Cache[string, []float32]
}

// New wraps inner with an LRU cache of the given size (DefaultSize if <= 0).
func New(inner Gateway, size int) *Cached {
	if size <= 0 {
		size = DefaultSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + c.inner.Provider()))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector if present, otherwise computes and caches it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		c.cache.Add(key, vec)
	}
	return vec, nil
}

// EmbedBatch checks the cache per-item, embeds the misses in one batch
// call, then caches the fresh results.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		results[idx] = fresh[j]
		if fresh[j] != nil {
			c.cache.Add(c.key(texts[idx]), fresh[j])
		}
	}
	return results, nil
}

func (c *Cached) Dimensions() int  { return c.inner.Dimensions() }
func (c *Cached) Provider() string { return c.inner.Provider() }
func (c *Cached) Close() error     { return c.inner.Close() }

var _ Gateway = (*Cached)(nil)
