package markup

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind distinguishes markup tags from human-readable text.
type Kind int

const (
	KindText Kind = iota
	KindTag
)

func (k Kind) String() string {
	if k == KindTag {
		return "tag"
	}
	return "text"
}

// Segment is a contiguous slice of a cell. Offset is the byte offset of
// Content in the source string.
type Segment struct {
	Kind    Kind
	Content string
	Offset  int
}

// Translatable reports whether the segment carries text worth sending to a
// translator. Whitespace-only text is kept for reassembly but never sent.
func (s Segment) Translatable() bool {
	return s.Kind == KindText && strings.TrimSpace(s.Content) != ""
}

// Split cuts s into alternating text and tag segments. A tag runs from "<" to
// the next ">" that is neither escaped with a backslash nor inside a quoted
// attribute value. A "<" with no closing ">" is ordinary text.
func Split(s string) []Segment {
	var segs []Segment
	textStart := 0
	for i := 0; i < len(s); {
		if s[i] != '<' {
			i++
			continue
		}
		end := tagEnd(s, i)
		if end < 0 {
			i++
			continue
		}
		if i > textStart {
			segs = append(segs, Segment{Kind: KindText, Content: s[textStart:i], Offset: textStart})
		}
		segs = append(segs, Segment{Kind: KindTag, Content: s[i : end+1], Offset: i})
		i = end + 1
		textStart = i
	}
	if textStart < len(s) {
		segs = append(segs, Segment{Kind: KindText, Content: s[textStart:], Offset: textStart})
	}
	return segs
}

// tagEnd returns the index of the ">" closing the tag opened at start, or -1.
func tagEnd(s string, start int) int {
	var quote byte
	for j := start + 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '\\':
			j++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return j
		}
	}
	return -1
}

// Join concatenates segment contents in order.
func Join(segs []Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(seg.Content)
	}
	return b.String()
}

// HasText reports whether any segment is translatable.
func HasText(segs []Segment) bool {
	for _, seg := range segs {
		if seg.Translatable() {
			return true
		}
	}
	return false
}

// SplitSpace separates leading and trailing whitespace from the core of s so
// a translation can be spliced back without disturbing surrounding layout.
func SplitSpace(s string) (lead, core, trail string) {
	start := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	if start < 0 {
		return s, "", ""
	}
	end := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	_, size := utf8.DecodeRuneInString(s[end:])
	end += size
	return s[:start], s[start:end], s[end:]
}
