package pipeline

// DefaultSegmenter creates a rule-based sentence segmenter over tokens.
// A sentence ends after a sentence-final punctuation token. The returned
// boundaries always start at 0 and, for a non-empty token sequence, end at
// the token count, so the sentences cover every token exactly once.
func DefaultSegmenter() SegmentFunc {
	return func(tokens []string) ([]int, error) {
		boundaries := []int{0}
		for i, token := range tokens {
			if isSentenceFinal(token) && i+1 < len(tokens) {
				boundaries = append(boundaries, i+1)
			}
		}
		if len(tokens) > 0 {
			boundaries = append(boundaries, len(tokens))
		}
		return boundaries, nil
	}
}

func isSentenceFinal(token string) bool {
	switch token {
	case ".", "!", "?":
		return true
	}
	return false
}
