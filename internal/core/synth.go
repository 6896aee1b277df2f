package core

import (
	"context"
	"strings"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/store"
	"github.com/foresthq/forest/internal/textproc"
)

// Synthesizer produces the title and body of a new node from its source
// nodes. The callback is the caller's, typically an LLM summarization
// call; the core only owns persistence and linking of the result.
type Synthesizer func(sources []*store.Node) (title, body string, err error)

// Synthesize loads sourceIDs, invokes fn to produce the new node's text,
// and persists a node whose metadata records origin=synthesis and the
// source node list, then auto-links it against the corpus.
func (v *Vault) Synthesize(ctx context.Context, sourceIDs []string, fn Synthesizer) (*store.Node, error) {
	if len(sourceIDs) < 2 {
		return nil, ferrors.Validation("synthesize requires at least 2 source nodes", nil)
	}

	sources := make([]*store.Node, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		n, err := v.Store.GetNode(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, n)
	}

	title, body, err := fn(sources)
	if err != nil {
		return nil, err
	}

	at := now()
	tokenCounts := textproc.Tokenize(title + "\n" + body)
	tags := textproc.ExtractTags(title+"\n"+body, tokenCounts, v.Config.Scoring.MaxAutoTags)

	n := &store.Node{
		ID:          newNodeID(),
		Title:       title,
		Body:        body,
		Tags:        tags,
		TokenCounts: tokenCounts,
		Metadata: map[string]string{
			"origin":      "synthesis",
			"sourceNodes": strings.Join(sourceIDs, ","),
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
	if vec, embErr := v.Gateway.Embed(ctx, title+"\n"+body); embErr == nil && vec != nil {
		n.Embedding = store.EncodeEmbedding(vec)
		n.EmbeddingDim = len(vec)
	}

	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	if err := v.Store.PutNode(ctx, b, n); err != nil {
		_ = b.Rollback()
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	v.Resolver.Invalidate()

	if err := v.Engine.LinkNode(ctx, n.ID, nil, at); err != nil {
		return n, err
	}
	v.Resolver.Invalidate()
	return n, nil
}
