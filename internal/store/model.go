// Package store is Forest's persistence layer: a transactional relational
// store over SQLite (nodes, tags, edges, edge history, documents) plus an
// HNSW-backed vector index used as an ANN accelerator for candidate
// generation.
package store

import (
	"time"
)

// EdgeType enumerates the kinds of edge Forest maintains. Only EdgeTypeSemantic
// is produced by the scoring kernel; the others come from the Document
// Session and explicit user linking.
type EdgeType string

const (
	EdgeTypeSemantic    EdgeType = "semantic"
	EdgeTypeParentChild EdgeType = "parent-child"
	EdgeTypeSequential  EdgeType = "sequential"
	EdgeTypeManual      EdgeType = "manual"
)

// EdgeStatus enumerates edge lifecycle states. StatusSuggested is retained
// only so legacy rows can be deserialized; no code path ever writes it.
type EdgeStatus string

const (
	StatusAccepted  EdgeStatus = "accepted"
	StatusSuggested EdgeStatus = "suggested"
)

// EdgeEventKind enumerates the kinds of state transition recorded in
// edge_events.
type EdgeEventKind string

const (
	EdgeEventCreate       EdgeEventKind = "create"
	EdgeEventStatusChange EdgeEventKind = "status_change"
	EdgeEventDelete       EdgeEventKind = "delete"
	EdgeEventScoreChange  EdgeEventKind = "score_change"
)

// Node is a captured note or document segment participating in the graph.
type Node struct {
	ID     string
	Title  string
	Body   string
	Tags   []string // case-preserved for display; compared case-insensitively
	TokenCounts map[string]int

	// Embedding is packed little-endian float32, nil/empty meaning "no
	// embedding". EmbeddingDim records the provider dimension it was
	// produced with so dimension changes can be detected without decoding.
	Embedding    []byte
	EmbeddingDim int

	CreatedAt time.Time
	UpdatedAt time.Time

	IsChunk          bool
	ParentDocumentID string // non-empty iff IsChunk
	ChunkOrder       int

	Metadata map[string]string
}

// Dims returns the number of float32 components packed into Embedding.
func (n *Node) Dims() int {
	if len(n.Embedding) == 0 {
		return 0
	}
	return len(n.Embedding) / 4
}

// HasEmbedding reports whether the node carries a usable embedding.
func (n *Node) HasEmbedding() bool {
	return len(n.Embedding) > 0
}

// Edge is one row per unordered pair of nodes, keyed by the lexicographically
// ordered pair (SourceID, TargetID) with SourceID < TargetID.
type Edge struct {
	SourceID string // min(a, b)
	TargetID string // max(a, b)

	SemanticScore *float64 // nil when unavailable
	TagScore      *float64 // nil when no shared tags
	SharedTags    []string // sorted by Unicode code point

	Score  float64 // fused display score
	Status EdgeStatus
	Type   EdgeType

	Metadata map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the canonical ordered pair (source, target) for e.
func (e *Edge) Key() (string, string) {
	return OrderedPair(e.SourceID, e.TargetID)
}

// OrderedPair returns (a, b) reordered so the first element sorts first
// lexicographically. All edge storage and lookups use this normalization.
func OrderedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// EdgeEvent is an append-only record of one mutation to one edge.
type EdgeEvent struct {
	ID         int64
	EdgeSource string
	EdgeTarget string
	Kind       EdgeEventKind
	PrevStatus EdgeStatus // zero value if the edge did not previously exist
	NextStatus EdgeStatus // zero value if the edge was deleted
	Payload    string     // JSON pre-image of the edge before this event
	CreatedAt  time.Time
	Undone     bool
}

// Document is a canonical document owning ordered chunk nodes.
type Document struct {
	ID          string
	Title       string
	Body        string // canonical: chunk bodies joined by one blank line
	Metadata    map[string]string
	Version     int
	RootNodeID  string // optional
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentChunk maps one ordered segment of a Document to its graph node.
type DocumentChunk struct {
	DocumentID string
	SegmentID  string
	NodeID     string
	Offset     int
	Length     int
	ChunkOrder int
	Checksum   string // SHA-256 of the segment body
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ScoringProjection is the lightweight "no bodies" read used by bulk link
// and full rescore.
type ScoringProjection struct {
	ID        string
	Tags      []string
	Embedding []byte // nil if absent
}

// TagIDFEntry is one row of the tag_idf cache.
type TagIDFEntry struct {
	Tag       string
	DocFreq   int
	IDF       float64
	UpdatedAt time.Time
}
