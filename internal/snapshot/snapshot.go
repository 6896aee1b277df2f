// Package snapshot implements temporal analysis over the graph: a
// node-and-edge diff between two points in time, layered over
// internal/store rather than the graph's live APIs so a diff never
// mutates anything it inspects. Diff order is always sorted, never left
// to map iteration.
package snapshot

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/foresthq/forest/internal/store"
)

// Snapshot is a point-in-time view of the graph's identity and freshness,
// not its full content: enough to compute what changed, not what changed
// to. Capturing bodies/embeddings for every node would make Snapshot as
// large as the graph itself; callers that need the new content look it up
// by id after the diff.
type Snapshot struct {
	takenAt time.Time
	nodes   map[string]time.Time // node id -> updatedAt
	edges   map[string]time.Time // "source|target" -> updatedAt
}

// Take captures a Snapshot of every node and edge currently in s.
func Take(ctx context.Context, s *store.SQLiteStore, now time.Time) (*Snapshot, error) {
	nodes, err := s.ListAllNodes(ctx, nil)
	if err != nil {
		return nil, err
	}
	pairs, err := s.ListEdgePairs(ctx, nil)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		takenAt: now,
		nodes:   make(map[string]time.Time, len(nodes)),
		edges:   make(map[string]time.Time, len(pairs)),
	}
	for _, n := range nodes {
		snap.nodes[n.ID] = n.UpdatedAt
	}
	for _, p := range pairs {
		e, err := s.GetEdge(ctx, nil, p.SourceID, p.TargetID)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		snap.edges[edgeKey(p.SourceID, p.TargetID)] = e.UpdatedAt
	}
	return snap, nil
}

// TakenAt reports when this snapshot was captured.
func (snap *Snapshot) TakenAt() time.Time {
	return snap.takenAt
}

// snapshotWire is Snapshot's on-disk form, letting a snapshot taken by one
// invocation of the CLI be compared against one taken by a later
// invocation (`forest admin diff`).
type snapshotWire struct {
	TakenAt time.Time            `json:"taken_at"`
	Nodes   map[string]time.Time `json:"nodes"`
	Edges   map[string]time.Time `json:"edges"`
}

// MarshalJSON encodes the snapshot for persistence to disk.
func (snap *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotWire{TakenAt: snap.takenAt, Nodes: snap.nodes, Edges: snap.edges})
}

// UnmarshalJSON decodes a snapshot previously written by MarshalJSON.
func (snap *Snapshot) UnmarshalJSON(data []byte) error {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	snap.takenAt = w.TakenAt
	snap.nodes = w.Nodes
	snap.edges = w.Edges
	return nil
}

// Diff is the result of comparing two snapshots: what node and edge ids
// were added, removed, or touched (same id present in both, but a newer
// UpdatedAt in after). Every slice is sorted for deterministic
// output.
type Diff struct {
	AddedNodes   []string
	RemovedNodes []string
	TouchedNodes []string

	AddedEdges   [][2]string
	RemovedEdges [][2]string
	TouchedEdges [][2]string
}

// Compare reports what changed between before and after. A node or edge
// counts as touched only if its UpdatedAt strictly advanced; an id present
// in both snapshots with an identical timestamp is considered unchanged.
func Compare(before, after *Snapshot) *Diff {
	d := &Diff{}

	for id, beforeAt := range before.nodes {
		afterAt, ok := after.nodes[id]
		if !ok {
			d.RemovedNodes = append(d.RemovedNodes, id)
			continue
		}
		if afterAt.After(beforeAt) {
			d.TouchedNodes = append(d.TouchedNodes, id)
		}
	}
	for id := range after.nodes {
		if _, ok := before.nodes[id]; !ok {
			d.AddedNodes = append(d.AddedNodes, id)
		}
	}

	for key, beforeAt := range before.edges {
		afterAt, ok := after.edges[key]
		if !ok {
			d.RemovedEdges = append(d.RemovedEdges, splitEdgeKey(key))
			continue
		}
		if afterAt.After(beforeAt) {
			d.TouchedEdges = append(d.TouchedEdges, splitEdgeKey(key))
		}
	}
	for key := range after.edges {
		if _, ok := before.edges[key]; !ok {
			d.AddedEdges = append(d.AddedEdges, splitEdgeKey(key))
		}
	}

	sort.Strings(d.AddedNodes)
	sort.Strings(d.RemovedNodes)
	sort.Strings(d.TouchedNodes)
	sortEdgePairs(d.AddedEdges)
	sortEdgePairs(d.RemovedEdges)
	sortEdgePairs(d.TouchedEdges)

	return d
}

// IsEmpty reports whether nothing changed between the two snapshots.
func (d *Diff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.TouchedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.TouchedEdges) == 0
}

func edgeKey(source, target string) string {
	return source + "|" + target
}

func splitEdgeKey(key string) [2]string {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return [2]string{key[:i], key[i+1:]}
		}
	}
	return [2]string{key, ""}
}

func sortEdgePairs(pairs [][2]string) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
}
