package pipeline

import (
	"sort"
	"strings"
)

// dedupeLanguages trims codes and drops blanks and repeats, keeping the
// first occurrence's position.
func dedupeLanguages(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		key := strings.ToLower(code)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, code)
	}
	return out
}

// mergeTerms combines stored glossary terms with per-job terms. Glossary
// terms come first; case-insensitive repeats are dropped.
func mergeTerms(stored, extra []string) []string {
	seen := make(map[string]struct{}, len(stored)+len(extra))
	var out []string
	for _, list := range [][]string{stored, extra} {
		for _, term := range list {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			key := strings.ToLower(term)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

// sortIssues orders issues by language position, then row, then column, so
// recorded errors do not depend on completion order.
func sortIssues(issues []issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.lang != b.lang {
			return a.lang < b.lang
		}
		if a.row != b.row {
			return a.row < b.row
		}
		return a.col < b.col
	})
}
