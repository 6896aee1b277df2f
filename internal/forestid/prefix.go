// Package forestid implements Forest's progressive id resolution:
// Git-style ambiguous-prefix lookup for nodes and edges, plus the `@N`
// recency, `#tag`, and `"fragment"` reference forms.
package forestid

import (
	"sort"
	"strings"
)

// MinPrefixLength is the minimum number of hex characters a progressive
// reference must supply.
const MinPrefixLength = 4

// PrefixIndex resolves minimum-length unique prefixes against a fixed id
// set, snapshotted at build time.
type PrefixIndex struct {
	sorted []string
}

// BuildPrefixIndex sorts ids once so prefix lookups are a binary search.
func BuildPrefixIndex(ids []string) *PrefixIndex {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return &PrefixIndex{sorted: sorted}
}

// Matches returns every id in the index carrying prefix, in sorted order.
func (idx *PrefixIndex) Matches(prefix string) []string {
	if idx == nil || prefix == "" {
		return nil
	}
	i := sort.SearchStrings(idx.sorted, prefix)
	var out []string
	for ; i < len(idx.sorted) && strings.HasPrefix(idx.sorted[i], prefix); i++ {
		out = append(out, idx.sorted[i])
	}
	return out
}

// Len reports how many ids the index was built from.
func (idx *PrefixIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.sorted)
}
