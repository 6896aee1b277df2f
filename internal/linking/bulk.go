package linking

import (
	"context"
	"log/slog"
	"time"

	"github.com/foresthq/forest/internal/store"
)

// pairKey is the canonical ordered-pair key used to dedupe candidate sets.
type pairKey struct {
	a, b string
}

func newPairKey(a, b string) pairKey {
	x, y := store.OrderedPair(a, b)
	return pairKey{a: x, b: y}
}

// LinkBulk runs pairwise bulk link over queryIDs against the full node
// population, dispatching to the brute-force or optimized strategy per
// Config.BulkStrategy. Both produce an identical accepted-edge set;
// only performance differs.
func (e *Engine) LinkBulk(ctx context.Context, queryIDs []string, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = b.Rollback()
		}
	}()

	idf, err := e.rebuildIDF(ctx, b, now)
	if err != nil {
		return err
	}

	// An empty query set means the whole corpus.
	if len(queryIDs) == 0 {
		queryIDs, err = e.store.ListNodeIDs(ctx, b)
		if err != nil {
			return err
		}
	}

	var pairs []pairKey
	if e.cfg.BulkStrategy == "optimized" {
		pairs, err = e.optimizedCandidates(ctx, b, queryIDs, idf)
	} else {
		pairs, err = e.bruteForceCandidates(ctx, b, queryIDs)
	}
	if err != nil {
		return err
	}

	if err := e.reconcilePairs(ctx, b, pairs, idf, now); err != nil {
		return err
	}

	if err := b.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// bruteForceCandidates pairs every query node with every other node,
// considering each Q x Q pair exactly once.
func (e *Engine) bruteForceCandidates(ctx context.Context, b *store.Batch, queryIDs []string) ([]pairKey, error) {
	projection, err := e.store.ListScoringProjection(ctx, b)
	if err != nil {
		return nil, err
	}
	query := make(map[string]bool, len(queryIDs))
	for _, id := range queryIDs {
		query[id] = true
	}

	var pairs []pairKey
	for _, q := range projection {
		if !query[q.ID] {
			continue
		}
		for _, x := range projection {
			if q.ID == x.ID {
				continue
			}
			if query[x.ID] && q.ID >= x.ID {
				continue // each Q x Q pair considered exactly once
			}
			pairs = append(pairs, newPairKey(q.ID, x.ID))
		}
	}
	return pairs, nil
}

// optimizedCandidates builds the semantic candidate set from the engine's
// long-lived ANN index (synced with the current scoring projection first),
// unions it with the tag-inverted-index candidate set, and returns the
// union for exact re-scoring. The in-memory tag index is built once per
// operation instead of querying node_tags from SQLite per candidate.
func (e *Engine) optimizedCandidates(ctx context.Context, b *store.Batch, queryIDs []string, idf *idfContext) ([]pairKey, error) {
	projection, err := e.store.ListScoringProjection(ctx, b)
	if err != nil {
		return nil, err
	}
	query := make(map[string]bool, len(queryIDs))
	for _, id := range queryIDs {
		query[id] = true
	}

	byID := make(map[string]*store.ScoringProjection, len(projection))
	for _, p := range projection {
		byID[p.ID] = p
	}

	seen := make(map[pairKey]bool)
	var pairs []pairKey
	add := func(a, c string) {
		if a == c {
			return
		}
		k := newPairKey(a, c)
		if seen[k] {
			return
		}
		seen[k] = true
		pairs = append(pairs, k)
	}

	if e.vectors != nil {
		e.syncVectorIndex(ctx, projection)
		dims := e.vectors.Dims()
		k := e.cfg.ANNCandidates
		if k <= 0 {
			k = 100
		}
		for _, qid := range queryIDs {
			q, ok := byID[qid]
			if !ok {
				continue
			}
			qvec := store.DecodeEmbedding(q.Embedding)
			if len(qvec) != dims {
				continue
			}
			results, err := e.vectors.Search(ctx, qvec, k)
			if err != nil {
				slog.Warn("bulk link: ann search failed", slog.String("query_id", qid), slog.String("error", err.Error()))
				continue
			}
			for _, r := range results {
				add(qid, r.ID)
			}
		}
	}

	tagIndex := make(map[string][]string)
	for _, p := range projection {
		for _, tag := range p.Tags {
			tagIndex[tag] = append(tagIndex[tag], p.ID)
		}
	}
	for _, qid := range queryIDs {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		sharing := make(map[string]bool)
		for _, tag := range q.Tags {
			for _, id := range tagIndex[tag] {
				if id != qid {
					sharing[id] = true
				}
			}
		}
		for id := range sharing {
			add(qid, id)
		}
	}

	return pairs, nil
}

func (e *Engine) reconcilePairs(ctx context.Context, b *store.Batch, pairs []pairKey, idf *idfContext, now time.Time) error {
	var errCount int
	for _, k := range pairs {
		n, err := e.store.GetNode(ctx, b, k.a)
		if err != nil {
			errCount++
			continue
		}
		if err := e.scoreAndReconcile(ctx, b, n, k.b, idf, now); err != nil {
			slog.Warn("bulk link: failed to reconcile pair",
				slog.String("a", k.a), slog.String("b", k.b), slog.String("error", err.Error()))
			errCount++
			continue
		}
	}
	if errCount > 0 {
		slog.Warn("bulk link completed with errors", slog.Int("error_count", errCount), slog.Int("pair_count", len(pairs)))
	}
	return nil
}
