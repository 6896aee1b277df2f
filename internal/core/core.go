// Package core wires Forest's internal packages (store, embedgw, linking,
// document, forestid) into the operations the CLI and MCP front ends bind
// to: capture, read/resolve, search, edges, tags, import, synthesize,
// admin. A Vault is assembled once per process and holds every component
// an operation needs.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/foresthq/forest/internal/document"
	"github.com/foresthq/forest/internal/embedgw"
	"github.com/foresthq/forest/internal/fconfig"
	"github.com/foresthq/forest/internal/forestid"
	"github.com/foresthq/forest/internal/linking"
	"github.com/foresthq/forest/internal/scoring"
	"github.com/foresthq/forest/internal/store"
)

// Vault is Forest's assembled core: one open store, one embedding gateway,
// the linking engine and document session built over them, and the
// progressive-id resolver. It is the single thing cmd/forest and
// internal/mcp construct per process.
type Vault struct {
	Config   *fconfig.Config
	Store    *store.SQLiteStore
	Gateway  embedgw.Gateway
	Vectors  *store.VectorIndex
	Engine   *linking.Engine
	Session  *document.Session
	Resolver *forestid.Resolver
}

// Open assembles a Vault from cfg: opens the SQLite store at
// cfg.Storage.DataDir, constructs the embedding gateway, and wires the
// linking engine and document session over them. One entry point, since
// every Forest operation needs the same three components.
func Open(ctx context.Context, cfg *fconfig.Config) (*Vault, error) {
	if cfg == nil {
		cfg = fconfig.NewConfig()
	}

	dbPath := filepath.Join(cfg.Storage.DataDir, "forest.db")
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gw, err := embedgw.New(cfg.Embeddings)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open embedding gateway: %w", err)
	}

	dims := gw.Dimensions()
	if dims <= 0 {
		dims = cfg.Embeddings.Dimensions
	}
	if err := recordEmbeddingProvider(ctx, s, gw); err != nil {
		_ = s.Close()
		return nil, err
	}
	vectors := store.NewVectorIndex(dims)

	engine := linking.New(s, vectors, gw, linking.Config{
		Thresholds: scoring.Thresholds{
			SemThreshold: cfg.Scoring.SemThreshold,
			TagThreshold: cfg.Scoring.TagThreshold,
			ProjectFloor: cfg.Scoring.ProjectFloor,
		},
		ANNCandidates:    cfg.Scoring.ANNCandidates,
		BulkStrategy:     cfg.Linking.BulkStrategy,
		MaxHistoryEvents: cfg.Linking.MaxHistoryEvents,
	})

	sess := document.NewSession(s, gw, engine, cfg.Scoring.MaxAutoTags)

	return &Vault{
		Config:   cfg,
		Store:    s,
		Gateway:  gw,
		Vectors:  vectors,
		Engine:   engine,
		Session:  sess,
		Resolver: forestid.NewResolver(s),
	}, nil
}

// recordEmbeddingProvider compares the active gateway against the
// provider recorded in the store and warns when the dimension changed:
// existing embeddings of the old dimension score as absent until an
// admin re-embed rebuilds them. The active provider always wins; the
// store never forces a gateway choice.
func recordEmbeddingProvider(ctx context.Context, s *store.SQLiteStore, gw embedgw.Gateway) error {
	dims := gw.Dimensions()
	stored, ok, err := s.GetState(ctx, store.StateKeyEmbeddingDims)
	if err != nil {
		return fmt.Errorf("read embedding state: %w", err)
	}
	if ok && dims > 0 {
		if prev, convErr := strconv.Atoi(stored); convErr == nil && prev > 0 && prev != dims {
			prevProvider, _, _ := s.GetState(ctx, store.StateKeyEmbeddingProvider)
			slog.Warn("embedding dimension changed; existing embeddings will be ignored until re-embed",
				slog.String("previous_provider", prevProvider),
				slog.Int("previous_dims", prev),
				slog.String("active_provider", gw.Provider()),
				slog.Int("active_dims", dims))
		}
	}
	if dims > 0 {
		if err := s.SetState(ctx, store.StateKeyEmbeddingProvider, gw.Provider()); err != nil {
			return fmt.Errorf("record embedding provider: %w", err)
		}
		if err := s.SetState(ctx, store.StateKeyEmbeddingDims, strconv.Itoa(dims)); err != nil {
			return fmt.Errorf("record embedding dims: %w", err)
		}
	}
	return nil
}

// Close releases the store and embedding gateway.
func (v *Vault) Close() error {
	gwErr := v.Gateway.Close()
	storeErr := v.Store.Close()
	if storeErr != nil {
		return storeErr
	}
	return gwErr
}

// now is the single place a Vault operation reads the wall clock, so
// callers that need a fixed timestamp across several operations (tests,
// batch scripts) can do so by constructing their own Vault methods that
// thread a time.Time through instead.
var now = time.Now
