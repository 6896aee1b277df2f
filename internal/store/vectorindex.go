package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/foresthq/forest/internal/ferrors"
)

// VectorIndex is Forest's ANN accelerator for bulk-link candidate
// generation. It is never the primary retrieval path. Exact scoring
// always re-evaluates candidates it returns, so approximate results here
// cannot produce a wrong acceptance decision, only a slower one if it
// under-recalls.
type VectorIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

type vectorIndexMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Dims    int
}

// NewVectorIndex creates an empty ANN index for dims-dimensional vectors.
func NewVectorIndex(dims int) *VectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &VectorIndex{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Add inserts or replaces (lazy-deleted then re-added) vectors for node
// ids. All vectors are normalized in place for cosine comparison.
func (v *VectorIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return ferrors.Validation(fmt.Sprintf("ids/vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ferrors.Internal("vector index is closed", nil)
	}

	for _, vec := range vectors {
		if len(vec) != v.dims {
			return ferrors.DimensionMismatch(v.dims, len(vec))
		}
	}

	for i, id := range ids {
		if existingKey, exists := v.idMap[id]; exists {
			delete(v.keyMap, existingKey)
			delete(v.idMap, id)
		}

		key := v.nextKey
		v.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		v.graph.Add(hnsw.MakeNode(key, vec))
		v.idMap[id] = key
		v.keyMap[key] = id
	}
	return nil
}

// CandidateResult is one approximate-neighbor hit.
type CandidateResult struct {
	ID    string
	Score float32 // cosine similarity in [0,1] after distance conversion
}

// Search returns up to k approximate nearest neighbors to query, used as
// the semantic candidate set for bulk link (ANN_CANDIDATES default 100).
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]*CandidateResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ferrors.Internal("vector index is closed", nil)
	}
	if len(query) != v.dims {
		return nil, ferrors.DimensionMismatch(v.dims, len(query))
	}
	if v.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := v.graph.Search(normalized, k)
	results := make([]*CandidateResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := v.graph.Distance(normalized, node.Value)
		results = append(results, &CandidateResult{ID: id, Score: 1 - distance/2})
	}
	return results, nil
}

// Delete lazily removes ids from the index. Mapping only: coder/hnsw
// mishandles removing the last remaining graph node.
func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ferrors.Internal("vector index is closed", nil)
	}
	for _, id := range ids {
		if key, exists := v.idMap[id]; exists {
			delete(v.keyMap, key)
			delete(v.idMap, id)
		}
	}
	return nil
}

// Contains reports whether id currently has a live mapping.
func (v *VectorIndex) Contains(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.idMap[id]
	return ok
}

// Count returns the number of live (non-orphaned) vectors.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idMap)
}

// Dims returns the fixed vector dimensionality this index was built for.
func (v *VectorIndex) Dims() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dims
}

// Save persists the graph and id mappings to path (+".meta"), atomically
// via temp-file-then-rename.
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return ferrors.Internal("vector index is closed", nil)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ferrors.New(ferrors.ErrCodeStorageTransient, "create vector index directory", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "create vector index file", err)
	}
	if err := v.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return ferrors.New(ferrors.ErrCodeStorageTransient, "export vector graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ferrors.New(ferrors.ErrCodeStorageTransient, "close vector index file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ferrors.New(ferrors.ErrCodeStorageTransient, "rename vector index file", err)
	}

	return v.saveMetadata(path + ".meta")
}

func (v *VectorIndex) saveMetadata(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "create vector index metadata", err)
	}
	meta := vectorIndexMetadata{IDMap: v.idMap, NextKey: v.nextKey, Dims: v.dims}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return ferrors.New(ferrors.ErrCodeStorageTransient, "encode vector index metadata", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ferrors.New(ferrors.ErrCodeStorageTransient, "close vector index metadata", err)
	}
	return os.Rename(tmp, path)
}

// Load restores the graph and id mappings from path.
func (v *VectorIndex) Load(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ferrors.Internal("vector index is closed", nil)
	}

	if err := v.loadMetadata(path + ".meta"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "open vector index file", err)
	}
	defer f.Close()

	if err := v.graph.Import(bufio.NewReader(f)); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "import vector graph", err)
	}
	return nil
}

func (v *VectorIndex) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "open vector index metadata", err)
	}
	defer f.Close()

	var meta vectorIndexMetadata
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "decode vector index metadata", err)
	}

	v.idMap = meta.IDMap
	v.dims = meta.Dims
	v.keyMap = make(map[uint64]string, len(meta.IDMap))
	v.nextKey = meta.NextKey
	for id, key := range v.idMap {
		v.keyMap[key] = id
	}
	return nil
}

// Close marks the index unusable. The underlying graph is not explicitly
// released; coder/hnsw needs no teardown.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.graph = nil
	return nil
}

func normalizeInPlace(vec []float32) {
	var sumSquares float64
	for _, x := range vec {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] *= inv
	}
}
