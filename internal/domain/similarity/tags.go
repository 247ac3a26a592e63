package similarity

// TagSet is a collapsed set of tags.
type TagSet map[string]struct{}

// NewTagSet collapses duplicates. A nil or empty slice yields an empty set.
func NewTagSet(tags []string) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// TagSimilarity is the Jaccard index of the two tag sets. It is 0 when either
// set is empty, so untagged events never gain score from tags.
func TagSimilarity(a, b []string) float64 {
	return jaccard(NewTagSet(a), NewTagSet(b))
}

func jaccard(a, b TagSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
