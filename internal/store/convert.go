package store

import (
	"errors"

	"sheetlingo/internal/pipeline"
)

// NewJobRecord builds the persisted form of a prepared or failed job.
func NewJobRecord(job *pipeline.Job, uploadPath string) *Job {
	rec := &Job{
		ID:              job.ID,
		UserID:          job.UserID,
		SourceName:      job.SourceName,
		Format:          job.Format,
		Status:          job.Status,
		SourceLanguage:  job.SourceLanguage,
		TargetLanguages: append([]string(nil), job.TargetLanguages...),
		Tone:            job.Tone,
		ProtectedTerms:  append([]string(nil), job.ProtectedTerms...),
		UploadPath:      uploadPath,
		CreatedAt:       job.CreatedAt,
	}
	rec.Apply(job)
	return rec
}

// Apply copies a job's counters, status, and timestamps onto the record.
func (j *Job) Apply(job *pipeline.Job) {
	j.Status = job.Status
	if job.Format != "" {
		j.Format = job.Format
	}
	if len(job.ProtectedTerms) > 0 {
		j.ProtectedTerms = append([]string(nil), job.ProtectedTerms...)
	}
	j.TotalUnits = job.TotalUnits
	j.CompletedUnits = job.CompletedUnits
	j.TotalWordsEstimated = job.TotalWordsEstimated
	j.WordsTranslated = job.WordsTranslated
	j.ErrorCount = job.ErrorCount
	if job.TotalUnits > 0 {
		j.ProgressPercent = float64(job.CompletedUnits) / float64(job.TotalUnits) * 100
	}
	if job.Status.Terminal() {
		j.ProgressMessage = string(job.Status)
	}
	if job.Status == pipeline.StatusFailed && len(job.Errors) > 0 {
		j.ErrorMessage = job.Errors[len(job.Errors)-1]
	}
	j.StartedAt = job.StartedAt
	j.FinishedAt = job.FinishedAt
}

// ErrorsFromJob flattens a job's recorded issues into rows for job_errors.
func ErrorsFromJob(job *pipeline.Job) []JobError {
	out := make([]JobError, 0, len(job.Issues))
	for i, issue := range job.Issues {
		e := JobError{Position: i, Kind: ErrorKindJob, Message: issue.Error()}
		var (
			cell     *pipeline.CellTranslationError
			warn     *pipeline.PlaceholderCollisionWarning
			canceled *pipeline.JobCanceledError
		)
		switch {
		case errors.As(issue, &cell):
			e.Kind, e.Language, e.Row, e.Column = ErrorKindCell, cell.Language, cell.Row, cell.Column
		case errors.As(issue, &warn):
			e.Kind, e.Language, e.Row, e.Column = ErrorKindPlaceholder, warn.Language, warn.Row, warn.Column
		case errors.As(issue, &canceled):
			e.Kind = ErrorKindCanceled
		}
		out = append(out, e)
	}
	return out
}
