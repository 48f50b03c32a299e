package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"sheetlingo/internal/table"
)

// Role marks whether a column carries translatable prose.
type Role int

const (
	RoleNonText Role = iota
	RoleText
)

func (r Role) String() string {
	if r == RoleText {
		return "text"
	}
	return "non-text"
}

// TextThreshold is the prose fraction a column must exceed to be translated.
const TextThreshold = 0.6

const minProseRunes = 10

var (
	identifierPattern = regexp.MustCompile(`^[A-Z0-9_-]+$`)
	pricePattern      = regexp.MustCompile(`^\$?\d+(\.\d{2})?$`)
)

// LooksLikeProse reports whether a single cell value reads like human text:
// it has an internal space or more than 10 characters, at least one letter,
// and is neither an identifier nor a price.
func LooksLikeProse(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if !strings.ContainsFunc(value, unicode.IsSpace) && utf8.RuneCountInString(value) <= minProseRunes {
		return false
	}
	if !strings.ContainsFunc(value, unicode.IsLetter) {
		return false
	}
	if identifierPattern.MatchString(value) || pricePattern.MatchString(value) {
		return false
	}
	return true
}

// Column summarizes one column's classification.
type Column struct {
	Index    int
	Header   string
	NonEmpty int
	Prose    int
	Role     Role
}

// Fraction returns the prose share of non-empty cells.
func (c Column) Fraction() float64 {
	if c.NonEmpty == 0 {
		return 0
	}
	return float64(c.Prose) / float64(c.NonEmpty)
}

// Summarize classifies every column of t and keeps the counts behind each
// decision.
func Summarize(t *table.Table) []Column {
	out := make([]Column, len(t.Headers))
	for i, header := range t.Headers {
		out[i] = Column{Index: i, Header: header}
	}
	for _, row := range t.Rows {
		for i := range out {
			if i >= len(row) {
				continue
			}
			cell := row[i]
			if strings.TrimSpace(cell) == "" {
				continue
			}
			out[i].NonEmpty++
			if LooksLikeProse(cell) {
				out[i].Prose++
			}
		}
	}
	for i := range out {
		if out[i].NonEmpty > 0 && out[i].Fraction() > TextThreshold {
			out[i].Role = RoleText
		}
	}
	return out
}

// Columns returns one Role per header.
func Columns(t *table.Table) []Role {
	summary := Summarize(t)
	roles := make([]Role, len(summary))
	for i, col := range summary {
		roles[i] = col.Role
	}
	return roles
}

// TextColumns returns the indices of text columns in header order.
func TextColumns(roles []Role) []int {
	var out []int
	for i, role := range roles {
		if role == RoleText {
			out = append(out, i)
		}
	}
	return out
}
