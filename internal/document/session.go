package document

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/foresthq/forest/internal/embedgw"
	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/linking"
	"github.com/foresthq/forest/internal/store"
	"github.com/foresthq/forest/internal/textproc"
)

// Session orchestrates Forest's Document Session: import chunking, the
// editor buffer round trip, and the save pipeline. Saves only touch the
// segments whose content actually changed.
type Session struct {
	store       *store.SQLiteStore
	gateway     embedgw.Gateway
	engine      *linking.Engine
	maxAutoTags int
}

// NewSession constructs a Document Session over an already-open store,
// embedding gateway, and linking engine. engine may be nil to disable
// auto-linking (useful in tests exercising the buffer format alone).
func NewSession(s *store.SQLiteStore, gw embedgw.Gateway, engine *linking.Engine, maxAutoTags int) *Session {
	if maxAutoTags <= 0 {
		maxAutoTags = 8
	}
	return &Session{store: s, gateway: gw, engine: engine, maxAutoTags: maxAutoTags}
}

// Import splits body into segments per opts.Strategy and materializes a
// root node (unless suppressed), one node per segment, parent-child and
// sequential edges, and the owning Document row, all in one transactional
// batch. Optional semantic auto-linking against the pre-existing corpus
// runs after the batch commits, since the linking engine brackets its own
// transactional scope.
func (sess *Session) Import(ctx context.Context, title, body string, opts ChunkingOptions, now time.Time) (*store.Document, error) {
	opts = opts.withDefaults()
	switch opts.Strategy {
	case StrategyHeaders, StrategySize, StrategyHybrid:
	default:
		return nil, ferrors.Validation("unknown chunking strategy: "+string(opts.Strategy), nil)
	}
	raw := chunkBody(body, opts)
	if len(raw) == 0 {
		return nil, fmt.Errorf("document import: no segments produced from body")
	}

	docID := newID()
	var rootNodeID string

	b, err := sess.store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = b.Rollback()
		}
	}()

	if !opts.SuppressRoot {
		rootNodeID = newID()
		rootNode, err := sess.buildNode(ctx, rootNodeID, title, body, "", 0, false, now)
		if err != nil {
			return nil, err
		}
		if err := sess.store.PutNode(ctx, b, rootNode); err != nil {
			return nil, err
		}
	}

	segments := make([]Segment, len(raw))
	chunks := make([]*store.DocumentChunk, len(raw))
	var offset int
	var prevNodeID string

	for i, r := range raw {
		segID := newID()
		nodeID := newID()

		node, err := sess.buildNode(ctx, nodeID, r.Title, r.Body, docID, i, true, now)
		if err != nil {
			return nil, err
		}
		if err := sess.store.PutNode(ctx, b, node); err != nil {
			return nil, err
		}

		if rootNodeID != "" {
			if err := sess.store.UpsertEdge(ctx, b, structuralEdge(rootNodeID, nodeID, store.EdgeTypeParentChild, now), store.EdgeEventCreate, nil); err != nil {
				return nil, err
			}
		}
		if prevNodeID != "" {
			if err := sess.store.UpsertEdge(ctx, b, structuralEdge(prevNodeID, nodeID, store.EdgeTypeSequential, now), store.EdgeEventCreate, nil); err != nil {
				return nil, err
			}
		}
		prevNodeID = nodeID

		segments[i] = Segment{SegmentID: segID, NodeID: nodeID, Title: r.Title, Body: r.Body, Order: i}
		chunks[i] = &store.DocumentChunk{
			DocumentID: docID,
			SegmentID:  segID,
			NodeID:     nodeID,
			Offset:     offset,
			Length:     len(r.Body),
			ChunkOrder: i,
			Checksum:   checksum(r.Body),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		offset += len(r.Body) + 2 // +2: the blank-line separator in the canonical body
	}

	doc := &store.Document{
		ID:         docID,
		Title:      title,
		Body:       joinSegments(raw),
		Metadata:   map[string]string{},
		Version:    1,
		RootNodeID: rootNodeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := sess.store.PutDocument(ctx, b, doc); err != nil {
		return nil, err
	}
	if err := sess.store.ReplaceDocumentChunks(ctx, b, docID, chunks); err != nil {
		return nil, err
	}

	if err := b.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if sess.engine != nil {
		for _, seg := range segments {
			if err := sess.engine.LinkNode(ctx, seg.NodeID, nil, now); err != nil {
				return doc, fmt.Errorf("document import: committed but auto-link failed for segment %s: %w", seg.SegmentID, err)
			}
		}
	}

	return doc, nil
}

// OpenBuffer renders documentID's current chunks as a full-document editor
// buffer, optionally marking focusSegmentID.
func (sess *Session) OpenBuffer(ctx context.Context, documentID, focusSegmentID string) (string, error) {
	doc, err := sess.store.GetDocument(ctx, nil, documentID)
	if err != nil {
		return "", err
	}
	chunks, err := sess.store.ListDocumentChunks(ctx, nil, documentID)
	if err != nil {
		return "", err
	}

	segments := make([]Segment, len(chunks))
	for i, c := range chunks {
		n, err := sess.store.GetNode(ctx, nil, c.NodeID)
		if err != nil {
			return "", err
		}
		segments[i] = Segment{SegmentID: c.SegmentID, NodeID: c.NodeID, Title: n.Title, Body: n.Body, Order: c.ChunkOrder}
	}

	return BuildBuffer(doc.Title, doc.RootNodeID, segments, focusSegmentID), nil
}

// SaveBuffer parses buf, reconciles it against documentID's current chunks,
// and writes the updated document/nodes/chunks in one transactional batch.
// Segments whose body checksum is unchanged are left untouched: not
// re-embedded, edges not touched. Parsing happens before the batch opens,
// so a malformed buffer never mutates the database; the caller is
// responsible for retaining the temp editor file for recovery in that case.
func (sess *Session) SaveBuffer(ctx context.Context, documentID string, buf string, now time.Time) error {
	parsed, err := ParseBuffer(buf)
	if err != nil {
		return fmt.Errorf("document save: %w", err)
	}

	b, err := sess.store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = b.Rollback()
		}
	}()

	doc, err := sess.store.GetDocument(ctx, b, documentID)
	if err != nil {
		return err
	}
	existing, err := sess.store.ListDocumentChunks(ctx, b, documentID)
	if err != nil {
		return err
	}

	existingBySeg := make(map[string]*store.DocumentChunk, len(existing))
	for _, c := range existing {
		existingBySeg[c.SegmentID] = c
	}
	if err := validateSegmentSet(parsed, existingBySeg); err != nil {
		return fmt.Errorf("document save: %w", err)
	}

	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].Order < parsed[j].Order })

	var changedNodeIDs []string
	chunks := make([]*store.DocumentChunk, len(parsed))
	bodies := make([]string, len(parsed))
	var offset int

	for i, p := range parsed {
		prior := existingBySeg[p.SegmentID]
		sum := checksum(p.Body)
		bodyChanged := sum != prior.Checksum

		n, err := sess.store.GetNode(ctx, b, p.NodeID)
		if err != nil {
			return err
		}
		orderChanged := n.ChunkOrder != p.Order
		n.ChunkOrder = p.Order

		if bodyChanged {
			n.Title = p.Title
			n.Body = p.Body
			n.TokenCounts = textproc.Tokenize(p.Title + "\n" + p.Body)
			n.Tags = textproc.ExtractTags(p.Title+"\n"+p.Body, n.TokenCounts, sess.maxAutoTags)
			n.UpdatedAt = now
			if sess.gateway != nil {
				if vec, embErr := sess.gateway.Embed(ctx, p.Body); embErr == nil && vec != nil {
					n.Embedding = store.EncodeEmbedding(vec)
					n.EmbeddingDim = len(vec)
				}
			}
			changedNodeIDs = append(changedNodeIDs, p.NodeID)
		}

		if bodyChanged || orderChanged {
			if err := sess.store.PutNode(ctx, b, n); err != nil {
				return err
			}
		}

		bodies[i] = p.Body
		chunks[i] = &store.DocumentChunk{
			DocumentID: documentID,
			SegmentID:  p.SegmentID,
			NodeID:     p.NodeID,
			Offset:     offset,
			Length:     len(p.Body),
			ChunkOrder: p.Order,
			Checksum:   sum,
			CreatedAt:  prior.CreatedAt,
			UpdatedAt:  now,
		}
		offset += len(p.Body) + 2
	}

	doc.Body = strings.Join(bodies, "\n\n")
	doc.Version++
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	doc.Metadata["lastEditedAt"] = now.Format(time.RFC3339)
	if len(changedNodeIDs) > 0 {
		doc.Metadata["lastEditedNodeId"] = changedNodeIDs[len(changedNodeIDs)-1]
	}
	doc.UpdatedAt = now

	if err := sess.store.PutDocument(ctx, b, doc); err != nil {
		return err
	}
	if err := sess.store.ReplaceDocumentChunks(ctx, b, documentID, chunks); err != nil {
		return err
	}

	if err := b.Commit(); err != nil {
		return err
	}
	committed = true

	if sess.engine != nil {
		for _, nodeID := range changedNodeIDs {
			if err := sess.engine.LinkNode(ctx, nodeID, nil, now); err != nil {
				return fmt.Errorf("document save: committed but incremental link failed for node %s: %w", nodeID, err)
			}
		}
	}
	return nil
}

func validateSegmentSet(parsed []ParsedSegment, existing map[string]*store.DocumentChunk) error {
	seen := make(map[string]bool, len(parsed))
	for _, p := range parsed {
		if _, ok := existing[p.SegmentID]; !ok {
			return fmt.Errorf("segment %s is not part of this document", p.SegmentID)
		}
		seen[p.SegmentID] = true
	}
	for segID := range existing {
		if !seen[segID] {
			return fmt.Errorf("segment %s is missing from the buffer", segID)
		}
	}
	return nil
}

func (sess *Session) buildNode(ctx context.Context, id, title, body, parentDocID string, order int, isChunk bool, now time.Time) (*store.Node, error) {
	tokenCounts := textproc.Tokenize(title + "\n" + body)
	tags := textproc.ExtractTags(title+"\n"+body, tokenCounts, sess.maxAutoTags)

	n := &store.Node{
		ID:               id,
		Title:            title,
		Body:             body,
		Tags:             tags,
		TokenCounts:      tokenCounts,
		IsChunk:          isChunk,
		ParentDocumentID: parentDocID,
		ChunkOrder:       order,
		Metadata:         map[string]string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if sess.gateway == nil {
		return n, nil
	}
	vec, err := sess.gateway.Embed(ctx, body)
	if err != nil {
		// A failed embed call leaves the node persisted without an
		// embedding; linking falls back to tag score alone.
		return n, nil
	}
	if vec != nil {
		n.Embedding = store.EncodeEmbedding(vec)
		n.EmbeddingDim = len(vec)
	}
	return n, nil
}

func structuralEdge(a, c string, t store.EdgeType, now time.Time) *store.Edge {
	source, target := store.OrderedPair(a, c)
	return &store.Edge{
		SourceID:  source,
		TargetID:  target,
		Status:    store.StatusAccepted,
		Type:      t,
		Metadata:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
