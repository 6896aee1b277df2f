// Package linking is Forest's stateful linking engine: the coordinator
// that turns node changes into edge mutations via the scoring kernel.
// Operations are serialized behind one mutex; the engine is logically
// single-writer.
package linking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foresthq/forest/internal/embedgw"
	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/scoring"
	"github.com/foresthq/forest/internal/store"
)

// Config configures the linking engine's thresholds and operational
// knobs (mirrors fconfig.ScoringConfig/LinkingConfig without importing
// fconfig, so this package stays usable from tests without a config
// layer).
type Config struct {
	Thresholds       scoring.Thresholds
	ANNCandidates    int
	BulkStrategy     string // "brute-force" | "optimized"
	MaxHistoryEvents int
}

// Engine is the stateful coordinator over one vault's store, vector
// index, and embedding gateway.
type Engine struct {
	mu sync.Mutex

	store   *store.SQLiteStore
	vectors *store.VectorIndex
	gateway embedgw.Gateway
	cfg     Config
}

// New constructs a linking engine over an already-open store, vector
// index, and embedding gateway.
func New(s *store.SQLiteStore, vectors *store.VectorIndex, gw embedgw.Gateway, cfg Config) *Engine {
	return &Engine{store: s, vectors: vectors, gateway: gw, cfg: cfg}
}

// idfContext bundles the tag_idf table and total node count for one
// linking operation; building it is O(N) so it is cached per operation.
type idfContext struct {
	table *scoring.IDFTable
}

func (e *Engine) loadIDFContext(ctx context.Context, b *store.Batch) (*idfContext, error) {
	total, err := e.store.NodeCount(ctx, b)
	if err != nil {
		return nil, err
	}
	values, err := e.store.LoadTagIDF(ctx, b)
	if err != nil {
		return nil, err
	}
	return &idfContext{table: scoring.NewIDFTable(values, scoring.MaxIDF(total))}, nil
}

// rebuildIDF recomputes tag_idf from scratch and reloads it, used at the
// start of bulk operations where the cache may be stale.
func (e *Engine) rebuildIDF(ctx context.Context, b *store.Batch, now time.Time) (*idfContext, error) {
	if err := e.store.RebuildTagIDF(ctx, b, now); err != nil {
		return nil, err
	}
	return e.loadIDFContext(ctx, b)
}

// syncVectorIndex keeps the engine's long-lived ANN index current with
// embeddings from the scoring projection, skipping any whose dimension
// doesn't match the index (a re-embed under a new provider leaves stale
// dimensions behind until the next full rescore reconciles them).
func (e *Engine) syncVectorIndex(ctx context.Context, projection []*store.ScoringProjection) {
	if e.vectors == nil {
		return
	}
	dims := e.vectors.Dims()
	var ids []string
	var vecs [][]float32
	for _, p := range projection {
		vec := store.DecodeEmbedding(p.Embedding)
		if len(vec) != dims {
			continue
		}
		ids = append(ids, p.ID)
		vecs = append(vecs, vec)
	}
	if len(ids) == 0 {
		return
	}
	if err := e.vectors.Add(ctx, ids, vecs); err != nil {
		slog.Warn("linking engine: vector index sync skipped a batch", slog.String("error", err.Error()))
	}
}

func decodedTags(n *store.Node) []string {
	if n == nil {
		return nil
	}
	return n.Tags
}

func pairInput(a, b *store.Node) scoring.PairInput {
	return scoring.PairInput{
		EmbeddingA: store.DecodeEmbedding(a.Embedding),
		EmbeddingB: store.DecodeEmbedding(b.Embedding),
		TagsA:      decodedTags(a),
		TagsB:      decodedTags(b),

		TitleA:       a.Title,
		TitleB:       b.Title,
		TokenCountsA: a.TokenCounts,
		TokenCountsB: b.TokenCounts,
	}
}

// withTransientRetry runs fn, retrying a transient storage failure once
// with backoff before surfacing. Anything else surfaces immediately
// without delay.
func withTransientRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !ferrors.IsRetryable(err) {
		return err
	}
	return ferrors.Retry(ctx, ferrors.SingleRetryConfig(), fn)
}
