package textutil

import (
	"strings"
	"unicode"
)

// WordCount returns the number of whitespace-separated words in s that contain
// at least one letter or digit. Standalone punctuation does not count.
func WordCount(s string) int {
	count := 0
	for _, field := range strings.Fields(s) {
		if strings.IndexFunc(field, isWordRune) >= 0 {
			count++
		}
	}
	return count
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
