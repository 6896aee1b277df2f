package scoring

import "strings"

// Thresholds bundles the three classification cutoffs (fconfig's
// ScoringConfig values, passed in rather than imported to keep this
// package dependency-free).
type Thresholds struct {
	SemThreshold float64
	TagThreshold float64
	ProjectFloor float64
}

// Verdict is the outcome of classifying one pair. There is
// no "suggested" class here; the scoring kernel only ever accepts or
// discards.
type Verdict struct {
	Accepted bool
	Fused    float64
}

// Classify decides whether a pair should be linked. sem and tag carry
// their own presence flags (null components never satisfy a threshold).
// sharedTags is the tag result's SharedTags, used to detect a shared
// "project:*" tag for the project-floor acceptance path.
func Classify(sem, tag Component, sharedTags []string, th Thresholds) Verdict {
	fused := Fuse(sem, tag)

	if sem.OK && sem.Value >= th.SemThreshold {
		return Verdict{Accepted: true, Fused: fused}
	}
	if tag.OK && tag.Value >= th.TagThreshold {
		return Verdict{Accepted: true, Fused: fused}
	}
	if hasProjectTag(sharedTags) && fused >= th.ProjectFloor {
		return Verdict{Accepted: true, Fused: fused}
	}
	return Verdict{Accepted: false, Fused: fused}
}

func hasProjectTag(tags []string) bool {
	for _, t := range tags {
		if strings.HasPrefix(strings.ToLower(t), "project:") {
			return true
		}
	}
	return false
}
