package pipeline

import (
	"time"

	"github.com/google/uuid"

	"sheetlingo/internal/classify"
	"sheetlingo/internal/table"
)

// Status tracks a job through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPartial    Status = "partial"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusPartial, StatusCompleted, StatusFailed}
}

// Job is one catalog translated into one or more target languages. It is
// mutated only by the Runner; callers read it once Run returns.
type Job struct {
	ID              string
	UserID          string
	SourceName      string
	Format          table.Format
	Status          Status
	SourceLanguage  string
	TargetLanguages []string
	Tone            string
	ProtectedTerms  []string

	Source      *table.Table
	Roles       []classify.Role
	TextColumns []int

	TotalUnits          int
	CompletedUnits      int
	TotalWordsEstimated int
	WordsTranslated     int

	ErrorCount int
	Errors     []string
	// Issues holds the typed form of each entry in Errors, in the same order.
	Issues []error

	ResultsByLanguage map[string]*table.Table

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// TextHeaders returns the header names of the text columns.
func (j *Job) TextHeaders() []string {
	if j.Source == nil {
		return nil
	}
	out := make([]string, 0, len(j.TextColumns))
	for _, idx := range j.TextColumns {
		out = append(out, j.Source.Headers[idx])
	}
	return out
}

// Input is everything needed to prepare a job from an uploaded file.
type Input struct {
	JobID           string // generated when empty
	UserID          string
	FileName        string
	MIMEType        string
	Format          table.Format // detected from FileName/MIMEType when empty
	Data            []byte
	SourceLanguage  string
	TargetLanguages []string
	Tone            string
	ProtectedTerms  []string
}

// Progress is reported while a job runs.
type Progress struct {
	Completed int
	Total     int
	Percent   float64
	Message   string
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return uuid.NewString()
}
