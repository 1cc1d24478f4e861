package pipeline

import (
	"strings"
	"unicode"
)

// DefaultTagger creates a suffix and character class based part-of-speech
// tagger. It is deliberately coarse; swap in a model-backed TagFunc for real
// tagging quality.
func DefaultTagger() TagFunc {
	return func(tokens []string) ([]string, error) {
		tags := make([]string, len(tokens))
		for i, token := range tokens {
			tags[i] = tagToken(token, i == 0 || isSentenceFinal(tokens[i-1]))
		}
		return tags, nil
	}
}

func tagToken(token string, sentenceInitial bool) string {
	runes := []rune(token)
	if len(runes) == 0 {
		return "NN"
	}

	switch {
	case !unicode.IsLetter(runes[0]) && !unicode.IsDigit(runes[0]):
		return "PUNCT"
	case isNumeric(token):
		return "NUM"
	case strings.HasSuffix(token, "ly"):
		return "ADV"
	case strings.HasSuffix(token, "ing") || strings.HasSuffix(token, "ed"):
		return "VB"
	case unicode.IsUpper(runes[0]) && !sentenceInitial:
		return "NNP"
	default:
		return "NN"
	}
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// DefaultLabeler creates a capitalization-based per-token entity labeler
// producing BIO labels. A capitalized token opens an entity span unless it is
// sentence-initial; following capitalized tokens continue the span. When
// part-of-speech tags are available, proper noun tags are used as the signal
// instead of raw capitalization.
func DefaultLabeler() LabelFunc {
	return func(tokens []string, tags []string) ([]string, error) {
		labels := make([]string, len(tokens))
		inSpan := false
		for i, token := range tokens {
			var entityLike bool
			if len(tags) == len(tokens) {
				entityLike = tags[i] == "NNP"
			} else {
				sentenceInitial := i == 0 || isSentenceFinal(tokens[i-1])
				entityLike = !sentenceInitial && startsUpper(token)
			}

			switch {
			case entityLike && inSpan:
				labels[i] = "I-ENT"
			case entityLike:
				labels[i] = "B-ENT"
				inSpan = true
			default:
				labels[i] = "O"
				inSpan = false
			}
		}
		return labels, nil
	}
}

func startsUpper(token string) bool {
	for _, r := range token {
		return unicode.IsUpper(r)
	}
	return false
}
