package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"sheetlingo/internal/fileutil"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services"
	"sheetlingo/internal/store"
	"sheetlingo/internal/textutil"
)

// Submit validates an upload and records it as a pending job for the queue.
// Uploads that cannot be parsed or classified are recorded as failed jobs;
// the returned record is then non-nil together with the preparation error.
func (m *Manager) Submit(ctx context.Context, in pipeline.Input) (*store.Job, error) {
	if strings.TrimSpace(in.JobID) == "" {
		in.JobID = pipeline.NewJobID()
	}
	if strings.TrimSpace(in.UserID) == "" {
		in.UserID = store.DefaultUser
	}
	if strings.TrimSpace(in.SourceLanguage) == "" {
		in.SourceLanguage = m.cfg.Translation.SourceLanguage
	}
	if strings.TrimSpace(in.Tone) == "" {
		in.Tone = m.cfg.Translation.DefaultTone
	}

	job, prepErr := m.runner.Prepare(ctx, in)
	if job == nil {
		return nil, prepErr
	}

	uploadPath := ""
	if len(in.Data) > 0 {
		path, err := m.saveUpload(job, in)
		if err != nil {
			return nil, err
		}
		uploadPath = path
	}

	rec := store.NewJobRecord(job, uploadPath)
	if err := m.store.CreateJob(ctx, rec); err != nil {
		return nil, services.Wrap(services.ErrTransient, "submit", "create job", "", err)
	}
	logger := m.logger.With(logging.String(logging.FieldJobID, rec.ID))

	if prepErr != nil {
		if err := m.store.FinishJob(ctx, rec, store.ErrorsFromJob(job), nil); err != nil {
			logger.Error("failed to persist rejected job", logging.Error(err))
		}
		m.setLastJob(rec)
		return rec, prepErr
	}

	logger.Info("job queued",
		logging.String(logging.FieldEventType, "job_queued"),
		logging.String("source", rec.SourceName),
		logging.Any("target_languages", rec.TargetLanguages),
		logging.Int("estimated_words", rec.TotalWordsEstimated),
	)
	m.notify()
	return rec, nil
}

func (m *Manager) saveUpload(job *pipeline.Job, in pipeline.Input) (string, error) {
	name := textutil.SanitizeFileName(filepath.Base(strings.TrimSpace(in.FileName)))
	if name == "" || name == "." {
		name = "catalog"
		if job.Format != "" {
			name += "." + job.Format.Extension()
		}
	}
	path := filepath.Join(m.cfg.Paths.UploadDir, job.ID, name)
	if err := fileutil.WriteBytesAtomic(path, in.Data, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "submit", "save upload", "", err)
	}
	return path, nil
}

func uploadNotFound(rec *store.Job, err error) error {
	return services.Wrap(services.ErrNotFound, "workflow", "load upload", fmt.Sprintf("upload for job %s", rec.ID), err)
}
