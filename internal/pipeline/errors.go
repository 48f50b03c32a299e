package pipeline

import (
	"fmt"
	"strings"

	"sheetlingo/internal/brand"
)

// ClassificationDegenerate means no column qualified as translatable text.
type ClassificationDegenerate struct {
	Columns int
}

func (e *ClassificationDegenerate) Error() string {
	return fmt.Sprintf("no translatable text columns found among %d columns", e.Columns)
}

// InsufficientCreditsError means the user's balance does not cover the
// estimated word count. Nothing is translated or billed.
type InsufficientCreditsError struct {
	UserID   string
	Required int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for user %q: %d words required", e.UserID, e.Required)
}

// CellTranslationError records a cell that kept its original content because
// translation failed. Row is the 1-based data row.
type CellTranslationError struct {
	Row      int
	Column   string
	Language string
	Err      error
}

func (e *CellTranslationError) Error() string {
	return fmt.Sprintf("row %d, column %q, language %s: %v", e.Row, e.Column, e.Language, e.Err)
}

func (e *CellTranslationError) Unwrap() error { return e.Err }

// PlaceholderCollisionWarning records a cell whose translation lost or
// duplicated protected-term placeholders. The literal tokens stay in the
// output so the cell can be fixed by hand.
type PlaceholderCollisionWarning struct {
	Row      int
	Column   string
	Language string
	Tokens   []brand.Collision
}

func (e *PlaceholderCollisionWarning) Error() string {
	parts := make([]string, len(e.Tokens))
	for i, c := range e.Tokens {
		parts[i] = c.String()
	}
	return fmt.Sprintf("row %d, column %q, language %s: placeholder collision: %s",
		e.Row, e.Column, e.Language, strings.Join(parts, "; "))
}

// JobCanceledError records cells never dispatched because the job was
// canceled.
type JobCanceledError struct {
	Remaining int
	Total     int
}

func (e *JobCanceledError) Error() string {
	return fmt.Sprintf("job canceled: %d of %d cells not processed", e.Remaining, e.Total)
}
