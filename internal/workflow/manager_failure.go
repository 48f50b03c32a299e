package workflow

import (
	"context"
	"log/slog"

	"sheetlingo/internal/logging"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services"
	"sheetlingo/internal/store"
)

// handleJobFailure records a job that failed before the pipeline produced a
// job of its own, such as a missing upload.
func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, rec *store.Job, jobErr error) error {
	message := "failed without error detail"
	if jobErr != nil {
		message = jobErr.Error()
	}
	rec.Status = pipeline.StatusFailed
	rec.ErrorMessage = message
	rec.ErrorCount = 1
	rec.ProgressMessage = string(pipeline.StatusFailed)
	rec.FinishedAt = m.now()

	m.setLastError(jobErr)
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String(logging.FieldErrorKind, services.Kind(jobErr)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, "inspect the job with 'sheetlingo jobs show' and retry"),
	)

	jobErrors := []store.JobError{{Kind: store.ErrorKindJob, Message: message}}
	return m.finish(ctx, logger, rec, jobErrors, nil)
}
