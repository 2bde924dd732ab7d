package textutil

import "unicode"

// HasSourceScript reports whether s contains Japanese script (hiragana,
// katakana, or Han ideographs). Titles without it are already readable in the
// target language and skip translation.
func HasSourceScript(s string) bool {
	for _, r := range s {
		if isSourceRune(r) {
			return true
		}
	}
	return false
}

func isSourceRune(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han)
}
