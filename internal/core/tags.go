package core

import (
	"context"
	"math"
	"sort"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/textproc"
)

// TagInfo summarizes one tag across the corpus.
type TagInfo struct {
	Tag     string
	DocFreq int
	IDF     float64
}

// ListTags returns every distinct tag with its document frequency and IDF,
// sorted by document frequency descending then alphabetically.
func (v *Vault) ListTags(ctx context.Context) ([]TagInfo, error) {
	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Rollback()

	if err := v.Store.RebuildTagIDF(ctx, b, now()); err != nil {
		return nil, err
	}
	idf, err := v.Store.LoadTagIDF(ctx, b)
	if err != nil {
		return nil, err
	}
	n, err := v.Store.NodeCount(ctx, b)
	if err != nil {
		return nil, err
	}

	out := make([]TagInfo, 0, len(idf))
	for tag, val := range idf {
		df := docFreqFromIDF(val, n)
		out = append(out, TagInfo{Tag: tag, DocFreq: df, IDF: val})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocFreq != out[j].DocFreq {
			return out[i].DocFreq > out[j].DocFreq
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// docFreqFromIDF inverts store.IDF(n, df) = ln(n/df) back to df, since
// LoadTagIDF only returns the cached IDF value. Rounds to the nearest
// integer to absorb floating-point error from the ln/exp round trip.
func docFreqFromIDF(idf float64, n int) int {
	if n <= 0 {
		return 0
	}
	df := float64(n) / math.Exp(idf)
	rounded := int(df + 0.5)
	if rounded < 1 {
		rounded = 1
	}
	return rounded
}

// RenameTag replaces oldTag with newTag on every node carrying it,
// case-insensitively, then invalidates the tag-IDF cache by rebuilding
// it and re-links nothing. Renaming does not
// change semantic content, only the tag-score inputs for future scoring
// passes, so existing edges are left as-is until the next rescore.
func (v *Vault) RenameTag(ctx context.Context, oldTag, newTag string) error {
	if newTag == "" {
		return ferrors.Validation("new tag name must not be empty", nil)
	}
	nodes, err := v.Store.FindNodesByTag(ctx, nil, textproc.NormalizeTag(oldTag))
	if err != nil {
		return err
	}

	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		n.Tags = renameInSlice(n.Tags, oldTag, newTag)
		if err := v.Store.PutNode(ctx, b, n); err != nil {
			_ = b.Rollback()
			return err
		}
	}
	if err := v.Store.RebuildTagIDF(ctx, b, now()); err != nil {
		_ = b.Rollback()
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}
	return nil
}

func renameInSlice(tags []string, oldTag, newTag string) []string {
	out := make([]string, len(tags))
	old := textproc.NormalizeTag(oldTag)
	for i, t := range tags {
		if textproc.NormalizeTag(t) == old {
			out[i] = newTag
		} else {
			out[i] = t
		}
	}
	return out
}

// AddTag appends tag to nodeID's tag set if not already present
// case-insensitively, then re-links the node since its tag-score
// candidates may have changed.
func (v *Vault) AddTag(ctx context.Context, nodeID, tag string) error {
	return v.mutateNodeTags(ctx, nodeID, func(tags []string) []string {
		for _, t := range tags {
			if textproc.NormalizeTag(t) == textproc.NormalizeTag(tag) {
				return tags
			}
		}
		return append(tags, tag)
	})
}

// RemoveTag removes tag from nodeID's tag set case-insensitively, then
// re-links the node.
func (v *Vault) RemoveTag(ctx context.Context, nodeID, tag string) error {
	return v.mutateNodeTags(ctx, nodeID, func(tags []string) []string {
		out := tags[:0:0]
		for _, t := range tags {
			if textproc.NormalizeTag(t) != textproc.NormalizeTag(tag) {
				out = append(out, t)
			}
		}
		return out
	})
}

func (v *Vault) mutateNodeTags(ctx context.Context, nodeID string, mutate func([]string) []string) error {
	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	n, err := v.Store.GetNode(ctx, b, nodeID)
	if err != nil {
		_ = b.Rollback()
		return err
	}
	at := now()
	n.Tags = mutate(n.Tags)
	n.UpdatedAt = at
	if err := v.Store.PutNode(ctx, b, n); err != nil {
		_ = b.Rollback()
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}
	v.Resolver.Invalidate()

	if err := v.Engine.LinkNode(ctx, nodeID, nil, at); err != nil {
		return err
	}
	v.Resolver.Invalidate()
	return nil
}
