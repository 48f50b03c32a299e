package workflow

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"sheetlingo/internal/assemble"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/notifications"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services"
	"sheetlingo/internal/store"
)

const persistTimeout = 30 * time.Second

// processJob runs one claimed job to a terminal state and persists the
// outcome. Only persistence failures are returned.
func (m *Manager) processJob(ctx context.Context, rec *store.Job) error {
	m.setActiveJob(rec.ID)
	defer m.setActiveJob("")

	logger := m.logger.With(logging.String(logging.FieldJobID, rec.ID))
	logger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_claimed"),
		logging.String("source", rec.SourceName),
		logging.Any("target_languages", rec.TargetLanguages),
	)

	data, err := os.ReadFile(rec.UploadPath)
	if err != nil {
		return m.handleJobFailure(ctx, logger, rec, uploadNotFound(rec, err))
	}

	job, err := m.runner.Prepare(ctx, pipeline.Input{
		JobID:           rec.ID,
		UserID:          rec.UserID,
		FileName:        rec.SourceName,
		Format:          rec.Format,
		Data:            data,
		SourceLanguage:  rec.SourceLanguage,
		TargetLanguages: rec.TargetLanguages,
		Tone:            rec.Tone,
		ProtectedTerms:  rec.ProtectedTerms,
	})
	if err == nil {
		job.CreatedAt = rec.CreatedAt
		err = m.runner.Run(ctx, job)
	}
	if job == nil {
		return m.handleJobFailure(ctx, logger, rec, err)
	}

	rec.Apply(job)
	jobErrors := store.ErrorsFromJob(job)
	var artifacts []store.Artifact
	if job.Status == pipeline.StatusCompleted || job.Status == pipeline.StatusPartial {
		var writeErr error
		artifacts, writeErr = m.writeArtifacts(rec, job)
		if writeErr != nil {
			writeErr = services.Wrap(services.ErrTransient, "assemble", "write artifacts", "", writeErr)
			rec.Status = pipeline.StatusFailed
			rec.ErrorMessage = writeErr.Error()
			rec.ErrorCount++
			jobErrors = append(jobErrors, store.JobError{Position: len(jobErrors), Kind: store.ErrorKindJob, Message: writeErr.Error()})
			err = writeErr
		}
	}

	if err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
	}
	return m.finish(ctx, logger, rec, jobErrors, artifacts)
}

func (m *Manager) writeArtifacts(rec *store.Job, job *pipeline.Job) ([]store.Artifact, error) {
	dir := filepath.Join(m.cfg.Paths.OutputDir, rec.ID)
	written, err := assemble.WriteArtifacts(dir, assemble.BaseName(rec.SourceName), job.Format, job.Source, job.ResultsByLanguage, job.TargetLanguages)
	if err != nil {
		return nil, err
	}
	rec.OutputDir = dir
	out := make([]store.Artifact, 0, len(written))
	for _, a := range written {
		out = append(out, store.Artifact{Name: a.Name, Language: a.Language, Path: a.Path, Size: a.Size})
	}
	return out, nil
}

// finish persists the terminal state even when ctx was canceled, so a
// shutdown mid-job still leaves a partial record behind.
func (m *Manager) finish(ctx context.Context, logger *slog.Logger, rec *store.Job, jobErrors []store.JobError, artifacts []store.Artifact) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := m.store.FinishJob(persistCtx, rec, jobErrors, artifacts); err != nil {
		logger.Error("failed to persist job result", logging.Error(err))
		return err
	}
	m.setLastJob(rec)
	m.publishOutcome(persistCtx, logger, rec)
	return nil
}

// publishOutcome sends the job's terminal state to the notifier. Delivery
// failures are logged and never fail the job.
func (m *Manager) publishOutcome(ctx context.Context, logger *slog.Logger, rec *store.Job) {
	payload := notifications.Payload{
		"jobID":     rec.ID,
		"source":    rec.SourceName,
		"languages": rec.TargetLanguages,
	}
	var event notifications.Event
	switch rec.Status {
	case pipeline.StatusCompleted:
		event = notifications.EventJobCompleted
		payload["words"] = humanize.Comma(int64(rec.WordsTranslated))
	case pipeline.StatusPartial:
		event = notifications.EventJobPartial
		payload["errors"] = rec.ErrorCount
	case pipeline.StatusFailed:
		event = notifications.EventJobFailed
		payload["error"] = rec.ErrorMessage
	default:
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger.Warn("job notification failed",
			logging.String(logging.FieldEventType, string(event)),
			logging.Error(err),
		)
	}
}

// recordProgress persists a progress report and forwards it to the
// observer.
func (m *Manager) recordProgress(job *pipeline.Job, p pipeline.Progress) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.UpdateProgress(ctx, job.ID, p); err != nil {
		m.logger.Warn("failed to persist job progress",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
	if m.observer != nil {
		m.observer(job, p)
	}
}
