package store

import (
	"time"

	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/table"
)

// Job is the persisted form of a translation job.
type Job struct {
	ID              string
	UserID          string
	SourceName      string
	Format          table.Format
	Status          pipeline.Status
	SourceLanguage  string
	TargetLanguages []string
	Tone            string
	ProtectedTerms  []string
	UploadPath      string
	OutputDir       string

	TotalUnits          int
	CompletedUnits      int
	TotalWordsEstimated int
	WordsTranslated     int
	ErrorCount          int
	ProgressPercent     float64
	ProgressMessage     string
	ErrorMessage        string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Error kinds recorded in job_errors.
const (
	ErrorKindCell        = "cell"
	ErrorKindPlaceholder = "placeholder"
	ErrorKindCanceled    = "canceled"
	ErrorKindJob         = "job"
)

// JobError is one recorded error. Row is the 1-based data row, or 0 when
// the error is not tied to a cell.
type JobError struct {
	Position int
	Kind     string
	Language string
	Row      int
	Column   string
	Message  string
}

// Artifact is an output file produced for a job. Language is empty for the
// combined file.
type Artifact struct {
	Name     string
	Language string
	Path     string
	Size     int64
}

// GlossaryTerm is a protected term owned by a user.
type GlossaryTerm struct {
	ID        int64
	UserID    string
	Term      string
	Position  int
	CreatedAt time.Time
}

// Credit transaction kinds.
const (
	TransactionGrant = "grant"
	TransactionDebit = "debit"
)

// CreditTransaction records one change to a user's balance.
type CreditTransaction struct {
	ID           int64
	UserID       string
	Kind         string
	Amount       int64
	BalanceAfter int64
	JobID        string
	Note         string
	CreatedAt    time.Time
}

// CacheEntry is a stored translation.
type CacheEntry struct {
	SourceText     string
	SourceLanguage string
	TargetLanguage string
	Translation    string
	UpdatedAt      time.Time
}
