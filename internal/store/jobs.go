package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/table"
)

const jobColumns = "id, user_id, source_name, format, status, source_language, target_languages, tone, protected_terms, upload_path, output_dir, total_units, completed_units, words_estimated, words_translated, error_count, progress_percent, progress_message, error_message, created_at, updated_at, started_at, finished_at"

// CreateJob inserts a new job. CreatedAt and UpdatedAt are set from the
// store clock when zero.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is required")
	}
	if job.Status == "" {
		job.Status = pipeline.StatusPending
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	targets, err := json.Marshal(emptyIfNil(job.TargetLanguages))
	if err != nil {
		return fmt.Errorf("marshal target languages: %w", err)
	}
	terms, err := json.Marshal(emptyIfNil(job.ProtectedTerms))
	if err != nil {
		return fmt.Errorf("marshal protected terms: %w", err)
	}

	stmt := s.sq.Insert("jobs").
		Columns(
			"id", "user_id", "source_name", "format", "status", "source_language",
			"target_languages", "tone", "protected_terms", "upload_path", "output_dir",
			"total_units", "completed_units", "words_estimated", "words_translated", "error_count",
			"progress_percent", "progress_message", "error_message",
			"created_at", "updated_at", "started_at", "finished_at",
		).
		Values(
			job.ID, job.UserID, job.SourceName, string(job.Format), string(job.Status), job.SourceLanguage,
			string(targets), nullableString(job.Tone), string(terms), nullableString(job.UploadPath), nullableString(job.OutputDir),
			job.TotalUnits, job.CompletedUnits, job.TotalWordsEstimated, job.WordsTranslated, job.ErrorCount,
			job.ProgressPercent, nullableString(job.ProgressMessage), nullableString(job.ErrorMessage),
			nullableTime(job.CreatedAt), nullableTime(job.UpdatedAt), nullableTime(job.StartedAt), nullableTime(job.FinishedAt),
		)
	if _, err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by id. It returns nil, nil when no job matches.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindJob resolves a full id or a unique id prefix.
func (s *Store) FindJob(ctx context.Context, idOrPrefix string) (*Job, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, nil
	}
	if job, err := s.GetJob(ctx, idOrPrefix); err != nil || job != nil {
		return job, err
	}
	query, args, err := s.sq.Select(jobColumns).From("jobs").
		Where(sq.Like{"id": escapeLike(idOrPrefix) + "%"}).
		Limit(2).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	jobs, err := s.queryJobs(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	switch len(jobs) {
	case 0:
		return nil, nil
	case 1:
		return jobs[0], nil
	default:
		return nil, fmt.Errorf("job id prefix %q is ambiguous", idOrPrefix)
	}
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, statuses ...pipeline.Status) ([]*Job, error) {
	stmt := s.sq.Select(jobColumns).From("jobs").OrderBy("created_at DESC", "id")
	if len(statuses) > 0 {
		stmt = stmt.Where(sq.Eq{"status": statusArgs(statuses)})
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.queryJobs(ctx, query, args...)
}

// ClaimNextPending moves the oldest pending job to processing and returns
// it, or nil when the queue is empty.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	var claimed *Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		claimed = nil
		row := tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`,
			pipeline.StatusPending,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		now := s.now()
		if _, err := txExec(ctx, tx, s.sq.Update("jobs").
			Set("status", string(pipeline.StatusProcessing)).
			Set("started_at", nullableTime(now)).
			Set("updated_at", nullableTime(now)).
			Set("progress_message", "claimed").
			Where(sq.Eq{"id": job.ID, "status": string(pipeline.StatusPending)})); err != nil {
			return err
		}
		job.Status = pipeline.StatusProcessing
		job.StartedAt = now
		job.UpdatedAt = now
		job.ProgressMessage = "claimed"
		claimed = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending job: %w", err)
	}
	return claimed, nil
}

// ClaimJob moves one specific pending job to processing. It returns nil
// when the job does not exist or is no longer pending.
func (s *Store) ClaimJob(ctx context.Context, id string) (*Job, error) {
	now := s.now()
	res, err := s.exec(ctx, s.sq.Update("jobs").
		Set("status", string(pipeline.StatusProcessing)).
		Set("started_at", nullableTime(now)).
		Set("updated_at", nullableTime(now)).
		Set("progress_message", "claimed").
		Where(sq.Eq{"id": id, "status": string(pipeline.StatusPending)}))
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return s.GetJob(ctx, id)
}

// UpdateProgress records the latest progress snapshot of a running job.
func (s *Store) UpdateProgress(ctx context.Context, id string, p pipeline.Progress) error {
	_, err := s.exec(ctx, s.sq.Update("jobs").
		Set("completed_units", p.Completed).
		Set("total_units", p.Total).
		Set("progress_percent", p.Percent).
		Set("progress_message", nullableString(p.Message)).
		Set("updated_at", s.timestamp()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// FinishJob stores a job's final counters together with its errors and
// artifacts, replacing any recorded by an earlier attempt.
func (s *Store) FinishJob(ctx context.Context, job *Job, jobErrors []JobError, artifacts []Artifact) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = s.now()
	if job.FinishedAt.IsZero() {
		job.FinishedAt = job.UpdatedAt
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := txExec(ctx, tx, s.sq.Update("jobs").
			Set("status", string(job.Status)).
			Set("format", string(job.Format)).
			Set("total_units", job.TotalUnits).
			Set("completed_units", job.CompletedUnits).
			Set("words_estimated", job.TotalWordsEstimated).
			Set("words_translated", job.WordsTranslated).
			Set("error_count", job.ErrorCount).
			Set("progress_percent", job.ProgressPercent).
			Set("progress_message", nullableString(job.ProgressMessage)).
			Set("error_message", nullableString(job.ErrorMessage)).
			Set("output_dir", nullableString(job.OutputDir)).
			Set("protected_terms", mustJSON(job.ProtectedTerms)).
			Set("updated_at", nullableTime(job.UpdatedAt)).
			Set("started_at", nullableTime(job.StartedAt)).
			Set("finished_at", nullableTime(job.FinishedAt)).
			Where(sq.Eq{"id": job.ID}))
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("job %s not found", job.ID)
		}
		if err := replaceJobErrors(ctx, tx, s.sq, job.ID, jobErrors); err != nil {
			return err
		}
		return replaceArtifacts(ctx, tx, s.sq, job.ID, artifacts)
	})
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// FailJob marks a job failed with message.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	now := s.timestamp()
	_, err := s.exec(ctx, s.sq.Update("jobs").
		Set("status", string(pipeline.StatusFailed)).
		Set("error_message", nullableString(message)).
		Set("updated_at", now).
		Set("finished_at", now).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// ResetStuckProcessing returns jobs left in processing by a previous daemon
// back to pending.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, s.sq.Update("jobs").
		Set("status", string(pipeline.StatusPending)).
		Set("completed_units", 0).
		Set("progress_percent", 0).
		Set("progress_message", "Reset from stuck processing").
		Set("started_at", nil).
		Set("updated_at", s.timestamp()).
		Where(sq.Eq{"status": string(pipeline.StatusProcessing)}))
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryJob moves a failed or partial job back to pending and drops the
// errors and artifacts of the previous attempt. It reports whether a job
// was reset.
func (s *Store) RetryJob(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := txExec(ctx, tx, s.sq.Update("jobs").
			Set("status", string(pipeline.StatusPending)).
			Set("completed_units", 0).
			Set("words_translated", 0).
			Set("error_count", 0).
			Set("progress_percent", 0).
			Set("progress_message", "Retry requested").
			Set("error_message", nil).
			Set("started_at", nil).
			Set("finished_at", nil).
			Set("updated_at", s.timestamp()).
			Where(sq.Eq{"id": id, "status": []string{string(pipeline.StatusFailed), string(pipeline.StatusPartial)}}))
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		if affected == 0 {
			return nil
		}
		if _, err := txExec(ctx, tx, s.sq.Delete("job_errors").Where(sq.Eq{"job_id": id})); err != nil {
			return err
		}
		_, err = txExec(ctx, tx, s.sq.Delete("job_artifacts").Where(sq.Eq{"job_id": id}))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("retry job: %w", err)
	}
	return affected > 0, nil
}

// RemoveJob deletes a job with its errors and artifacts records.
func (s *Store) RemoveJob(ctx context.Context, id string) (bool, error) {
	res, err := s.exec(ctx, s.sq.Delete("jobs").Where(sq.Eq{"id": id}))
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearJobs removes jobs with any of statuses, or every job when none are
// given.
func (s *Store) ClearJobs(ctx context.Context, statuses ...pipeline.Status) (int64, error) {
	stmt := s.sq.Delete("jobs")
	if len(statuses) > 0 {
		stmt = stmt.Where(sq.Eq{"status": statusArgs(statuses)})
	}
	res, err := s.exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts jobs by status.
func (s *Store) Stats(ctx context.Context) (map[pipeline.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[pipeline.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[pipeline.Status(status)] = count
	}
	return stats, rows.Err()
}

// JobErrors returns a job's recorded errors in order.
func (s *Store) JobErrors(ctx context.Context, id string) ([]JobError, error) {
	query, args, err := s.sq.Select("position", "kind", "language", "row_index", "column_name", "message").
		From("job_errors").Where(sq.Eq{"job_id": id}).OrderBy("position").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query job errors: %w", err)
	}
	defer rows.Close()

	var out []JobError
	for rows.Next() {
		var (
			e        JobError
			language sql.NullString
			row      sql.NullInt64
			column   sql.NullString
		)
		if err := rows.Scan(&e.Position, &e.Kind, &language, &row, &column, &e.Message); err != nil {
			return nil, err
		}
		e.Language = language.String
		e.Row = int(row.Int64)
		e.Column = column.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// JobArtifacts returns a job's output files, per-language first.
func (s *Store) JobArtifacts(ctx context.Context, id string) ([]Artifact, error) {
	query, args, err := s.sq.Select("name", "language", "path", "size_bytes").
		From("job_artifacts").Where(sq.Eq{"job_id": id}).
		OrderBy("language IS NULL", "rowid").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a        Artifact
			language sql.NullString
		)
		if err := rows.Scan(&a.Name, &language, &a.Path, &a.Size); err != nil {
			return nil, err
		}
		a.Language = language.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func replaceJobErrors(ctx context.Context, tx *sql.Tx, b sq.StatementBuilderType, jobID string, jobErrors []JobError) error {
	if _, err := txExec(ctx, tx, b.Delete("job_errors").Where(sq.Eq{"job_id": jobID})); err != nil {
		return err
	}
	if len(jobErrors) == 0 {
		return nil
	}
	insert := b.Insert("job_errors").Columns("job_id", "position", "kind", "language", "row_index", "column_name", "message")
	for i, e := range jobErrors {
		var row any
		if e.Row > 0 {
			row = e.Row
		}
		insert = insert.Values(jobID, i, e.Kind, nullableString(e.Language), row, nullableString(e.Column), e.Message)
	}
	_, err := txExec(ctx, tx, insert)
	return err
}

func replaceArtifacts(ctx context.Context, tx *sql.Tx, b sq.StatementBuilderType, jobID string, artifacts []Artifact) error {
	if _, err := txExec(ctx, tx, b.Delete("job_artifacts").Where(sq.Eq{"job_id": jobID})); err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return nil
	}
	insert := b.Insert("job_artifacts").Columns("job_id", "name", "language", "path", "size_bytes")
	for _, a := range artifacts {
		insert = insert.Values(jobID, a.Name, nullableString(a.Language), a.Path, a.Size)
	}
	_, err := txExec(ctx, tx, insert)
	return err
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		format          string
		status          string
		targets         string
		tone            sql.NullString
		terms           sql.NullString
		uploadPath      sql.NullString
		outputDir       sql.NullString
		progressMessage sql.NullString
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		startedRaw      sql.NullString
		finishedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.UserID,
		&job.SourceName,
		&format,
		&status,
		&job.SourceLanguage,
		&targets,
		&tone,
		&terms,
		&uploadPath,
		&outputDir,
		&job.TotalUnits,
		&job.CompletedUnits,
		&job.TotalWordsEstimated,
		&job.WordsTranslated,
		&job.ErrorCount,
		&job.ProgressPercent,
		&progressMessage,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	job.Format = table.Format(format)
	job.Status = pipeline.Status(status)
	if err := json.Unmarshal([]byte(targets), &job.TargetLanguages); err != nil {
		return nil, fmt.Errorf("decode target languages for job %s: %w", job.ID, err)
	}
	if terms.Valid && terms.String != "" {
		if err := json.Unmarshal([]byte(terms.String), &job.ProtectedTerms); err != nil {
			return nil, fmt.Errorf("decode protected terms for job %s: %w", job.ID, err)
		}
	}
	job.Tone = tone.String
	job.UploadPath = uploadPath.String
	job.OutputDir = outputDir.String
	job.ProgressMessage = progressMessage.String
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = parseTime(createdRaw)
	job.UpdatedAt = parseTime(updatedRaw)
	job.StartedAt = parseTime(startedRaw)
	job.FinishedAt = parseTime(finishedRaw)
	return &job, nil
}

func statusArgs(statuses []pipeline.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func mustJSON(values []string) string {
	data, err := json.Marshal(emptyIfNil(values))
	if err != nil {
		return "[]"
	}
	return string(data)
}

func escapeLike(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
