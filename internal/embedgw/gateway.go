// Package embedgw is Forest's embedding gateway: a uniform interface over
// four provider variants (local, remote, mock, none). Provider selection
// happens once at startup; the choice is immutable for the run.
package embedgw

import "context"

// Gateway generates vector embeddings for node/document text. Dimensions
// is stable for the process lifetime once a Gateway is constructed:
// callers never see it change mid-run.
type Gateway interface {
	// Embed returns a vector of length Dimensions(), or nil if the
	// provider is "none" or the single embed failed; callers degrade
	// to tag-only scoring.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one entry per input text, same length and
	// order; an entry may be nil on a per-item failure without failing
	// the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length this gateway produces, or 0 for
	// the "none" provider.
	Dimensions() int

	// Provider identifies which variant is active (local/remote/mock/none).
	Provider() string

	Close() error
}
