package core

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/scoring"
	"github.com/foresthq/forest/internal/store"
	"github.com/foresthq/forest/internal/textproc"
)

// MetadataSearchOptions filters and scores nodes by metadata and text.
// The fused dual-score engine is reserved for edges; this is a weaker,
// read-only ranking over the token-count provenance every node already
// stores.
type MetadataSearchOptions struct {
	// Tags, if non-empty, requires every listed tag (case-insensitive) to
	// be present on a matching node.
	Tags []string
	Limit int
}

// MetadataResult pairs a node with its lexical match score.
type MetadataResult struct {
	Node  *store.Node
	Score float64
}

// SearchMetadata ranks nodes against query by token overlap with each
// node's stored TokenCounts, after applying opts.Tags as a hard filter.
// Lexical token cosine is only ever a weak secondary signal here, never
// an edge-scoring input.
func (v *Vault) SearchMetadata(ctx context.Context, query string, opts MetadataSearchOptions) ([]MetadataResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	candidates, err := v.taggedCandidates(ctx, opts.Tags)
	if err != nil {
		return nil, err
	}

	queryCounts := textproc.Tokenize(query)
	var out []MetadataResult
	for _, n := range candidates {
		score := tokenCosine(queryCounts, n.TokenCounts)
		if score <= 0 && query != "" {
			continue
		}
		out = append(out, MetadataResult{Node: n, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node.UpdatedAt.After(out[j].Node.UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// taggedCandidates returns every node carrying all of tags, or every node
// if tags is empty.
func (v *Vault) taggedCandidates(ctx context.Context, tags []string) ([]*store.Node, error) {
	if len(tags) == 0 {
		return v.Store.ListAllNodes(ctx, nil)
	}

	byID := make(map[string]*store.Node)
	for i, tag := range tags {
		matches, err := v.Store.FindNodesByTag(ctx, nil, textproc.NormalizeTag(tag))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			for _, n := range matches {
				byID[n.ID] = n
			}
			continue
		}
		present := make(map[string]struct{}, len(matches))
		for _, n := range matches {
			present[n.ID] = struct{}{}
		}
		for id := range byID {
			if _, ok := present[id]; !ok {
				delete(byID, id)
			}
		}
	}
	out := make([]*store.Node, 0, len(byID))
	for _, n := range byID {
		out = append(out, n)
	}
	return out, nil
}

// tokenCosine is plain cosine similarity over two token->count maps,
// the lexical scoring primitive backing SearchMetadata.
func tokenCosine(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for tok, ca := range a {
		normA += float64(ca) * float64(ca)
		if cb, ok := b[tok]; ok {
			dot += float64(ca) * float64(cb)
		}
	}
	for _, cb := range b {
		normB += float64(cb) * float64(cb)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return scoring.Clamp01(dot / math.Sqrt(normA*normB))
}

// SemanticResult pairs a node with its cosine similarity to a search query.
type SemanticResult struct {
	Node  *store.Node
	Score float64
}

// SearchSemantic embeds query and ranks every node carrying an embedding
// of matching dimension by exact cosine similarity, returning the top k.
// Unlike bulk-link's ANN acceleration, a live search query runs exact
// cosine since it scores one query against the corpus once, not every
// node against every other node.
func (v *Vault) SearchSemantic(ctx context.Context, query string, k int) ([]SemanticResult, error) {
	if k <= 0 {
		k = 10
	}
	if strings.TrimSpace(query) == "" {
		return nil, ferrors.Validation("semantic search query must not be empty", nil)
	}

	qvec, err := v.Gateway.Embed(ctx, query)
	if err != nil {
		return nil, ferrors.EmbeddingFailure("embed search query", err)
	}
	if qvec == nil {
		return nil, ferrors.Validation("active embedding provider returns no vectors; semantic search unavailable", nil)
	}

	projection, err := v.Store.ListScoringProjection(ctx, nil)
	if err != nil {
		return nil, err
	}

	var out []SemanticResult
	for _, p := range projection {
		vec := store.DecodeEmbedding(p.Embedding)
		sim, ok := scoring.Cosine(qvec, vec)
		if !ok {
			continue
		}
		n, err := v.Store.GetNode(ctx, nil, p.ID)
		if err != nil {
			continue
		}
		out = append(out, SemanticResult{Node: n, Score: sim})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
