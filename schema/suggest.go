package schema

// normalizedIndex maps normalized names back to their raw spelling and
// position. When two raw names normalize identically the last one wins;
// order keeps the first appearance of each normalized name so fuzzy ties
// resolve deterministically.
type normalizedIndex struct {
	raw   map[string]string
	pos   map[string]int
	order []string
}

func newNormalizedIndex(names []string) normalizedIndex {
	idx := normalizedIndex{
		raw: make(map[string]string, len(names)),
		pos: make(map[string]int, len(names)),
	}
	for i, name := range names {
		norm := Normalize(name)
		if _, seen := idx.raw[norm]; !seen {
			idx.order = append(idx.order, norm)
		}
		idx.raw[norm] = name
		idx.pos[norm] = i
	}
	return idx
}

// lookup returns the raw name and column position matching name after
// normalization.
func (idx normalizedIndex) lookup(name string) (string, int, bool) {
	norm := Normalize(name)
	raw, ok := idx.raw[norm]
	if !ok {
		return "", -1, false
	}
	return raw, idx.pos[norm], true
}

// Suggest proposes an uploaded column for every required column. An exact
// match after normalization always wins; otherwise the most similar
// normalized detected name is used when its Similarity reaches
// SimilarityThreshold. Required columns without a confident candidate map to
// "". The result has a key for every required column.
func Suggest(required, detected []string) Mapping {
	idx := newNormalizedIndex(detected)

	suggestions := make(Mapping, len(required))
	for _, req := range required {
		if raw, _, ok := idx.lookup(req); ok {
			suggestions[req] = raw
			continue
		}
		suggestions[req] = idx.closest(Normalize(req))
	}
	return suggestions
}

// closest returns the raw name of the best fuzzy candidate for norm, or "".
func (idx normalizedIndex) closest(norm string) string {
	var (
		best      string
		bestScore float64
		found     bool
	)
	for _, candidate := range idx.order {
		score := Similarity(norm, candidate)
		if score >= SimilarityThreshold && (!found || score > bestScore) {
			best, bestScore, found = candidate, score, true
		}
	}
	if !found {
		return ""
	}
	return idx.raw[best]
}
