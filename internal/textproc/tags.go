package textproc

import (
	"regexp"
	"sort"
	"strings"
)

var explicitTagRegex = regexp.MustCompile(`#([A-Za-z0-9_/-]+)`)

// ExtractTags returns the explicit tags found in text (matching
// `#[A-Za-z0-9_/-]+`, the leading `#` stripped) followed by at most maxAuto
// auto-extracted tags drawn from tokenCounts: the highest-frequency
// non-stopword tokens of length >= 3, ordered by count descending then
// alphabetically. The result preserves insertion order and deduplicates
// case-insensitively.
func ExtractTags(text string, tokenCounts map[string]int, maxAuto int) []string {
	var ordered []string
	seen := make(map[string]struct{})

	for _, m := range explicitTagRegex.FindAllStringSubmatch(text, -1) {
		tag := m[1]
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, tag)
	}

	for _, auto := range autoTagCandidates(tokenCounts, maxAuto) {
		key := strings.ToLower(auto)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, auto)
	}

	return ordered
}

func autoTagCandidates(tokenCounts map[string]int, maxAuto int) []string {
	type candidate struct {
		token string
		count int
	}

	var candidates []candidate
	for token, count := range tokenCounts {
		if len(token) < 3 {
			continue
		}
		candidates = append(candidates, candidate{token: token, count: count})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].token < candidates[j].token
	})

	if maxAuto < 0 {
		maxAuto = 0
	}
	if len(candidates) > maxAuto {
		candidates = candidates[:maxAuto]
	}

	result := make([]string, len(candidates))
	for i, c := range candidates {
		result[i] = c.token
	}
	return result
}

// NormalizeTag lowercases a tag for case-insensitive comparison. Tags are
// stored in node_tags with their original case.
func NormalizeTag(tag string) string {
	return strings.ToLower(tag)
}

// IsBridgeTag reports whether tag (case-insensitive) begins with "link/".
func IsBridgeTag(tag string) bool {
	return strings.HasPrefix(strings.ToLower(tag), "link/")
}
