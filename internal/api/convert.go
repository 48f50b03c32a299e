package api

import (
	"net/url"
	"time"

	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/store"
	"sheetlingo/internal/workflow"
)

// FromJob converts a job record to its API representation.
func FromJob(job *store.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:              job.ID,
		UserID:          job.UserID,
		SourceName:      job.SourceName,
		Format:          string(job.Format),
		Status:          string(job.Status),
		SourceLanguage:  job.SourceLanguage,
		TargetLanguages: nonNil(job.TargetLanguages),
		Tone:            job.Tone,
		ProtectedTerms:  job.ProtectedTerms,
		Progress: JobProgress{
			Completed: job.CompletedUnits,
			Total:     job.TotalUnits,
			Percent:   job.ProgressPercent,
			Message:   job.ProgressMessage,
		},
		WordsEstimated:  job.TotalWordsEstimated,
		WordsTranslated: job.WordsTranslated,
		ErrorCount:      job.ErrorCount,
		ErrorMessage:    job.ErrorMessage,
		OutputDir:       job.OutputDir,
		CreatedAt:       formatTime(job.CreatedAt),
		StartedAt:       formatTime(job.StartedAt),
		FinishedAt:      formatTime(job.FinishedAt),
	}
}

// FromJobs converts a list of job records.
func FromJobs(jobs []*store.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromJobErrors converts recorded job errors.
func FromJobErrors(errs []store.JobError) []JobError {
	out := make([]JobError, 0, len(errs))
	for _, e := range errs {
		out = append(out, JobError{
			Kind:     e.Kind,
			Language: e.Language,
			Row:      e.Row,
			Column:   e.Column,
			Message:  e.Message,
		})
	}
	return out
}

// FromArtifacts converts job artifacts. Each artifact gets a download URL
// under the job's API path.
func FromArtifacts(jobID string, artifacts []store.Artifact) []Artifact {
	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, Artifact{
			Name:     a.Name,
			Language: a.Language,
			Size:     a.Size,
			URL:      ArtifactPath(jobID, a.Name),
		})
	}
	return out
}

// ArtifactPath returns the API path serving an artifact.
func ArtifactPath(jobID, name string) string {
	return "/api/jobs/" + url.PathEscape(jobID) + "/artifacts/" + url.PathEscape(name)
}

// FromStatusSummary converts the workflow summary.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	stats := make(map[string]int, len(pipeline.Statuses()))
	for _, status := range pipeline.Statuses() {
		stats[string(status)] = summary.JobStats[status]
	}
	health := make([]Health, 0, len(summary.Health))
	for _, h := range summary.Health {
		health = append(health, Health{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	out := WorkflowStatus{
		Running:   summary.Running,
		ActiveJob: summary.ActiveJob,
		JobStats:  stats,
		LastError: summary.LastError,
		Health:    health,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		out.LastJob = &last
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
