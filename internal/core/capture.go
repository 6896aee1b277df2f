package core

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/foresthq/forest/internal/store"
	"github.com/foresthq/forest/internal/textproc"
)

// newNodeID returns a random 32-character hex identifier, the same
// dashes-stripped-uuid scheme internal/document uses for node/segment/
// document ids (ids must survive edits, so they are assigned once rather
// than derived from content).
func newNodeID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CaptureInput is the text-in half of the capture operation.
type CaptureInput struct {
	Title string
	Body  string
	// ExtraTags are appended to the extracted tag set (explicit `#tags` in
	// the text plus auto-extracted tokens), e.g. tags supplied by a CLI
	// flag rather than typed into the body.
	ExtraTags []string
	Metadata  map[string]string
	// AutoLink runs incremental linking against the whole corpus after
	// insert. Capture callers almost always want this; it
	// is a field rather than always-on so bulk importers can insert many
	// nodes and defer linking to one LinkBulk call.
	AutoLink bool
}

// Capture creates a new node from text in = in.Title/in.Body, deriving its
// token counts, tags, and embedding, persisting it, and, when
// in.AutoLink is set, running incremental auto-link against the rest of
// the corpus.
func (v *Vault) Capture(ctx context.Context, in CaptureInput) (*store.Node, error) {
	at := now()
	tokenCounts := textproc.Tokenize(in.Title + "\n" + in.Body)
	tags := textproc.ExtractTags(in.Title+"\n"+in.Body, tokenCounts, v.Config.Scoring.MaxAutoTags)
	tags = mergeTags(tags, in.ExtraTags)

	n := &store.Node{
		ID:          newNodeID(),
		Title:       in.Title,
		Body:        in.Body,
		Tags:        tags,
		TokenCounts: tokenCounts,
		Metadata:    in.Metadata,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if n.Metadata == nil {
		n.Metadata = map[string]string{}
	}

	if vec, err := v.Gateway.Embed(ctx, in.Title+"\n"+in.Body); err == nil && vec != nil {
		n.Embedding = store.EncodeEmbedding(vec)
		n.EmbeddingDim = len(vec)
	}
	// On embed error the node is persisted without an embedding and
	// linking degrades to tag score only; no error surfaces.

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

	if in.AutoLink {
		if err := v.Engine.LinkNode(ctx, n.ID, nil, at); err != nil {
			return n, err
		}
		v.Resolver.Invalidate()
	}
	return n, nil
}

// mergeTags appends extra to base, deduplicating case-insensitively and
// preserving base's ordering first, the same insertion-order contract
// tag extraction itself follows.
func mergeTags(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, t := range base {
		key := textproc.NormalizeTag(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	for _, t := range extra {
		key := textproc.NormalizeTag(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Update replaces node id's title/body, re-deriving tokens, tags, and
// embedding the same way Capture does, then re-links it.
func (v *Vault) Update(ctx context.Context, id, title, body string) (*store.Node, error) {
	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	n, err := v.Store.GetNode(ctx, b, id)
	if err != nil {
		_ = b.Rollback()
		return nil, err
	}

	at := now()
	n.Title = title
	n.Body = body
	n.TokenCounts = textproc.Tokenize(title + "\n" + body)
	n.Tags = textproc.ExtractTags(title+"\n"+body, n.TokenCounts, v.Config.Scoring.MaxAutoTags)
	n.UpdatedAt = at

	if vec, err := v.Gateway.Embed(ctx, title+"\n"+body); err == nil && vec != nil {
		n.Embedding = store.EncodeEmbedding(vec)
		n.EmbeddingDim = len(vec)
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

// DeleteNode removes a node. Cascading deletes of node_tags, edges, and
// document_chunks rows are enforced by the schema's ON DELETE CASCADE
// foreign keys (internal/store/schema.go); the one cascade the schema
// cannot express, a parent document whose last chunk disappears goes
// with it, is handled here explicitly.
func (v *Vault) DeleteNode(ctx context.Context, id string) error {
	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = b.Rollback()
		}
	}()

	n, err := v.Store.GetNode(ctx, b, id)
	if err != nil {
		return err
	}

	if err := v.Store.DeleteNode(ctx, b, id); err != nil {
		return err
	}

	var emptyDocID string
	if n.IsChunk && n.ParentDocumentID != "" {
		remaining, err := v.Store.ListDocumentChunks(ctx, b, n.ParentDocumentID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			emptyDocID = n.ParentDocumentID
		}
	}
	if emptyDocID != "" {
		if err := v.Store.DeleteDocument(ctx, b, emptyDocID); err != nil {
			return err
		}
	}

	if err := b.Commit(); err != nil {
		return err
	}
	committed = true
	v.Resolver.Invalidate()
	return nil
}
