package pipeline

import "unicode"

// DefaultTokenizer creates a rule-based tokenizer. Every non-space character
// of the input ends up in exactly one token: runs of word characters form one
// token, any other character is a token of its own. Hyphens and apostrophes
// inside a word stay attached, so "don't" and "well-known" are single tokens.
func DefaultTokenizer() TokenizeFunc {
	return func(text string) ([]string, error) {
		var tokens []string
		var current []rune

		flush := func() {
			if len(current) > 0 {
				tokens = append(tokens, string(current))
				current = current[:0]
			}
		}

		for _, r := range text {
			switch {
			case unicode.IsSpace(r):
				flush()
			case isWordRune(r):
				current = append(current, r)
			default:
				flush()
				tokens = append(tokens, string(r))
			}
		}
		flush()

		return tokens, nil
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\''
}
