package suggest

import "strings"

// SimilarityDetector flags candidates that copy chat or history lines
type SimilarityDetector struct {
	minLen          int
	bigramMinLen    int
	bigramThreshold float64
}

// NewSimilarityDetector creates a detector from the pipeline options
func NewSimilarityDetector(opts Options) *SimilarityDetector {
	opts = opts.withDefaults()
	return &SimilarityDetector{
		minLen:          opts.MinSubstringLen,
		bigramMinLen:    opts.BigramMinLen,
		bigramThreshold: opts.BigramThreshold,
	}
}

// IsTooSimilarToSources reports whether candidate shares a long substring
// with, or mostly reuses the bigrams of, any single source.
func (d *SimilarityDetector) IsTooSimilarToSources(candidate string, sources []string) bool {
	cand := []rune(NormalizeForCompare(candidate))
	if len(cand) < d.minLen {
		return false
	}

	var candBigrams map[string]struct{}
	if len(cand) >= d.bigramMinLen {
		candBigrams = bigrams(cand)
	}

	for _, source := range sources {
		src := NormalizeForCompare(source)
		if src == "" {
			continue
		}
		if d.sharesSubstring(cand, src) {
			return true
		}
		if candBigrams != nil && overlapRatio(candBigrams, bigrams([]rune(src))) >= d.bigramThreshold {
			return true
		}
	}
	return false
}

func (d *SimilarityDetector) sharesSubstring(cand []rune, src string) bool {
	if len(cand) < d.minLen || len([]rune(src)) < d.minLen {
		return false
	}
	for i := 0; i+d.minLen <= len(cand); i++ {
		if strings.Contains(src, string(cand[i:i+d.minLen])) {
			return true
		}
	}
	return false
}

func bigrams(runes []rune) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i+1 < len(runes); i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

// overlapRatio is the share of distinct candidate bigrams found in source
func overlapRatio(cand, source map[string]struct{}) float64 {
	if len(cand) == 0 || len(source) == 0 {
		return 0
	}
	hits := 0
	for bg := range cand {
		if _, ok := source[bg]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(cand))
}
