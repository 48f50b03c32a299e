package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes an uploaded name safe to use as an artifact prefix.
// Path separators, colons and asterisks become dashes. Quotes, wildcards,
// redirection characters and control characters are dropped, as are leading
// dots so an upload never produces a hidden file.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimSpace(strings.TrimLeft(cleaned, "."))
}
