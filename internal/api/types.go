package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a translation job in a transport-friendly format.
type Job struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	SourceName      string      `json:"sourceName"`
	Format          string      `json:"format"`
	Status          string      `json:"status"`
	SourceLanguage  string      `json:"sourceLanguage"`
	TargetLanguages []string    `json:"targetLanguages"`
	Tone            string      `json:"tone,omitempty"`
	ProtectedTerms  []string    `json:"protectedTerms,omitempty"`
	Progress        JobProgress `json:"progress"`
	WordsEstimated  int         `json:"wordsEstimated"`
	WordsTranslated int         `json:"wordsTranslated"`
	ErrorCount      int         `json:"errorCount"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	OutputDir       string      `json:"outputDir,omitempty"`
	CreatedAt       string      `json:"createdAt,omitempty"`
	StartedAt       string      `json:"startedAt,omitempty"`
	FinishedAt      string      `json:"finishedAt,omitempty"`
}

// JobProgress captures cell progress for a job.
type JobProgress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message,omitempty"`
}

// JobError is one recorded job error. Row is 1-based; zero means the error
// is not tied to a cell.
type JobError struct {
	Kind     string `json:"kind"`
	Language string `json:"language,omitempty"`
	Row      int    `json:"row,omitempty"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
}

// Artifact is a downloadable output file.
type Artifact struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
}

// Health mirrors readiness reporting for workflow dependencies.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running   bool           `json:"running"`
	ActiveJob string         `json:"activeJob,omitempty"`
	JobStats  map[string]int `json:"jobStats"`
	LastError string         `json:"lastError,omitempty"`
	LastJob   *Job           `json:"lastJob,omitempty"`
	Health    []Health       `json:"health"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	APIAddress   string         `json:"apiAddress,omitempty"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse describes one job with its errors and artifacts.
type JobResponse struct {
	Job       Job        `json:"job"`
	Errors    []JobError `json:"errors"`
	Artifacts []Artifact `json:"artifacts"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
