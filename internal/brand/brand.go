package brand

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Placeholder maps a synthetic token to the exact substring it replaced.
type Placeholder struct {
	Token    string
	Original string
}

// ProtectedText is a text with protected terms masked out.
type ProtectedText struct {
	Text         string
	Placeholders []Placeholder
}

// Collision reports a placeholder that did not survive translation exactly
// once. Count is the number of occurrences found.
type Collision struct {
	Token    string
	Original string
	Count    int
}

func (c Collision) String() string {
	return fmt.Sprintf("%s (%q) found %d times", c.Token, c.Original, c.Count)
}

// Token returns the placeholder for index i.
func Token(i int) string {
	return fmt.Sprintf("__BRAND_%d__", i)
}

// Normalize trims terms, drops blanks and case-insensitive duplicates, and
// orders the rest longest first so overlapping terms match whole.
func Normalize(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
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
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(out[i]) > utf8.RuneCountInString(out[j])
	})
	return out
}

// Matcher masks a fixed set of terms. It is safe for concurrent use.
type Matcher struct {
	pattern *regexp.Regexp
}

// NewMatcher compiles terms into a case-insensitive matcher. It returns nil
// when there is nothing to protect.
func NewMatcher(terms []string) *Matcher {
	terms = Normalize(terms)
	if len(terms) == 0 {
		return nil
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	return &Matcher{pattern: regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)}
}

// Protect replaces every occurrence of a term with its own placeholder.
// Placeholder indices skip any token already present in text.
func (m *Matcher) Protect(text string) ProtectedText {
	if m == nil {
		return ProtectedText{Text: text}
	}
	matches := m.pattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return ProtectedText{Text: text}
	}

	var b strings.Builder
	placeholders := make([]Placeholder, 0, len(matches))
	next := 0
	last := 0
	for _, loc := range matches {
		for strings.Contains(text, Token(next)) {
			next++
		}
		token := Token(next)
		next++
		b.WriteString(text[last:loc[0]])
		b.WriteString(token)
		placeholders = append(placeholders, Placeholder{Token: token, Original: text[loc[0]:loc[1]]})
		last = loc[1]
	}
	b.WriteString(text[last:])
	return ProtectedText{Text: b.String(), Placeholders: placeholders}
}

// Protect masks terms in text. Callers protecting many strings with the same
// terms should build a Matcher once.
func Protect(text string, terms []string) ProtectedText {
	return NewMatcher(terms).Protect(text)
}

// Restore puts the original substrings back into translated. Each expected
// placeholder must appear exactly once; any that does not is left literal and
// reported as a Collision.
func Restore(translated string, p ProtectedText) (string, []Collision) {
	if len(p.Placeholders) == 0 {
		return translated, nil
	}
	var collisions []Collision
	pairs := make([]string, 0, len(p.Placeholders)*2)
	for _, ph := range p.Placeholders {
		count := strings.Count(translated, ph.Token)
		if count != 1 {
			collisions = append(collisions, Collision{Token: ph.Token, Original: ph.Original, Count: count})
			continue
		}
		pairs = append(pairs, ph.Token, ph.Original)
	}
	if len(pairs) == 0 {
		return translated, collisions
	}
	return strings.NewReplacer(pairs...).Replace(translated), collisions
}
