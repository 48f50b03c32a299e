package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sheetlingo/internal/cache"
	"sheetlingo/internal/classify"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/services"
	"sheetlingo/internal/table"
	"sheetlingo/internal/textutil"
)

const (
	// DefaultSourceLanguage is assumed when a job does not name one.
	DefaultSourceLanguage = "en"

	defaultConcurrency   = 8
	defaultCallTimeout   = 60 * time.Second
	defaultProgressEvery = 25
)

const (
	stagePrepare = "prepare"
	stageCredits = "credits"
	stageRun     = "translate"
)

// Runner prepares and executes translation jobs. A Runner may execute
// several jobs concurrently; each job's state is owned by its own Run call.
type Runner struct {
	translator    Translator
	cache         cache.Store
	ledger        CreditLedger
	glossary      GlossarySource
	concurrency   int
	callTimeout   time.Duration
	progressEvery int
	logger        *slog.Logger
	progress      func(*Job, Progress)
	now           func() time.Time
}

// Option customises the Runner.
type Option func(*Runner)

// WithCache enables the translation cache for jobs without protected terms.
func WithCache(store cache.Store) Option {
	return func(r *Runner) {
		if store != nil {
			r.cache = store
		}
	}
}

// WithLedger meters jobs against a credit ledger. Without one every job is
// approved.
func WithLedger(ledger CreditLedger) Option {
	return func(r *Runner) {
		if ledger != nil {
			r.ledger = ledger
		}
	}
}

// WithGlossary merges the user's stored protected terms into every job.
func WithGlossary(source GlossarySource) Option {
	return func(r *Runner) {
		if source != nil {
			r.glossary = source
		}
	}
}

// WithConcurrency bounds the number of in-flight translation calls.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCallTimeout bounds each translation call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

// WithProgressEvery sets how many completed cells separate progress reports.
func WithProgressEvery(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.progressEvery = n
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress registers a callback invoked from the aggregator goroutine.
// It must not block for long; slow callbacks stall result collection.
func WithProgress(fn func(*Job, Progress)) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithClock overrides time.Now (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a Runner around translator.
func New(translator Translator, opts ...Option) *Runner {
	r := &Runner{
		translator:    translator,
		cache:         cache.Nop{},
		ledger:        UnlimitedCredits{},
		concurrency:   defaultConcurrency,
		callTimeout:   defaultCallTimeout,
		progressEvery: defaultProgressEvery,
		logger:        logging.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	return r
}

// Translate prepares and runs a job in one call. The returned job is non-nil
// whenever preparation got far enough to assign an ID.
func (r *Runner) Translate(ctx context.Context, in Input) (*Job, error) {
	job, err := r.Prepare(ctx, in)
	if err != nil {
		return job, err
	}
	return job, r.Run(ctx, job)
}

// Prepare parses and classifies the upload and estimates its cost. Fatal
// problems return a failed job alongside the error.
func (r *Runner) Prepare(ctx context.Context, in Input) (*Job, error) {
	job := &Job{
		ID:              strings.TrimSpace(in.JobID),
		UserID:          strings.TrimSpace(in.UserID),
		SourceName:      strings.TrimSpace(in.FileName),
		Status:          StatusPending,
		SourceLanguage:  strings.TrimSpace(in.SourceLanguage),
		TargetLanguages: dedupeLanguages(in.TargetLanguages),
		Tone:            strings.TrimSpace(in.Tone),
		CreatedAt:       r.now(),
	}
	if job.ID == "" {
		job.ID = NewJobID()
	}
	if job.SourceLanguage == "" {
		job.SourceLanguage = DefaultSourceLanguage
	}
	logger := r.jobLogger(job)

	fail := func(err error) (*Job, error) {
		job.Status = StatusFailed
		job.FinishedAt = r.now()
		job.Errors = append(job.Errors, err.Error())
		job.Issues = append(job.Issues, err)
		job.ErrorCount++
		logging.ErrorWithContext(logger, "job preparation failed", "job_prepare_failed",
			logging.String(logging.FieldStage, stagePrepare),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
		return job, err
	}

	if len(job.TargetLanguages) == 0 {
		return fail(services.Wrap(services.ErrValidation, stagePrepare, "languages", "at least one target language is required", nil))
	}

	format := in.Format
	if format == "" {
		detected, err := table.DetectFormat(in.FileName, in.MIMEType)
		if err != nil {
			return fail(err)
		}
		format = detected
	}
	job.Format = format

	src, err := table.Parse(in.Data, format)
	if err != nil {
		return fail(err)
	}
	job.Source = src

	job.Roles = classify.Columns(src)
	job.TextColumns = classify.TextColumns(job.Roles)
	if len(job.TextColumns) == 0 {
		return fail(&ClassificationDegenerate{Columns: len(src.Headers)})
	}

	var stored []string
	if r.glossary != nil && job.UserID != "" {
		stored, err = r.glossary.Terms(ctx, job.UserID)
		if err != nil {
			return fail(services.Wrap(services.ErrTransient, stagePrepare, "glossary", "load protected terms", err))
		}
	}
	job.ProtectedTerms = mergeTerms(stored, in.ProtectedTerms)

	words := 0
	for _, row := range src.Rows {
		for _, col := range job.TextColumns {
			words += textutil.WordCount(row[col])
		}
	}
	job.TotalWordsEstimated = words * len(job.TargetLanguages)
	job.TotalUnits = len(job.TargetLanguages) * len(job.TextColumns) * len(src.Rows)

	logger.Info("job prepared",
		logging.String(logging.FieldEventType, "job_prepared"),
		logging.String("format", string(job.Format)),
		logging.Int("rows", len(src.Rows)),
		logging.Any("text_columns", job.TextHeaders()),
		logging.Any("target_languages", job.TargetLanguages),
		logging.Int("protected_terms", len(job.ProtectedTerms)),
		logging.Int("estimated_words", job.TotalWordsEstimated),
	)
	return job, nil
}

// Run executes a prepared job. Cell failures never abort the job; Run returns
// an error only when the job ends failed.
func (r *Runner) Run(ctx context.Context, job *Job) error {
	if job == nil || job.Source == nil {
		return services.Wrap(services.ErrValidation, stageRun, "run", "job has not been prepared", nil)
	}
	if job.Status != StatusPending {
		return services.Wrap(services.ErrValidation, stageRun, "run", fmt.Sprintf("job is %s, not pending", job.Status), nil)
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := r.jobLogger(job)

	ok, err := r.ledger.HasSufficientCredits(ctx, job.UserID, job.TotalWordsEstimated)
	if err != nil {
		return r.failRun(job, logger, services.Wrap(services.ErrTransient, stageCredits, "check balance", "", err))
	}
	if !ok {
		return r.failRun(job, logger, &InsufficientCreditsError{UserID: job.UserID, Required: job.TotalWordsEstimated})
	}

	job.Status = StatusProcessing
	job.StartedAt = r.now()
	job.ResultsByLanguage = make(map[string]*table.Table, len(job.TargetLanguages))
	for _, lang := range job.TargetLanguages {
		job.ResultsByLanguage[lang] = job.Source.Clone()
	}
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.Int("cells", job.TotalUnits),
		logging.Int("concurrency", r.concurrency),
	)

	sampler := logging.NewProgressSampler(10)
	issues := r.fanOut(ctx, job, logger, sampler)

	if remaining := job.TotalUnits - job.CompletedUnits; remaining > 0 && ctx.Err() != nil {
		issues = append(issues, issue{lang: len(job.TargetLanguages), err: &JobCanceledError{Remaining: remaining, Total: job.TotalUnits}})
		logging.WarnWithContext(logger, "job canceled", "job_canceled",
			logging.Int("remaining", remaining),
			logging.String(logging.FieldImpact, "remaining cells keep their original text"),
			logging.String(logging.FieldErrorHint, "retry the job to translate the rest"),
		)
	}
	sortIssues(issues)
	for _, is := range issues {
		job.Issues = append(job.Issues, is.err)
		job.Errors = append(job.Errors, is.err.Error())
	}
	job.ErrorCount = len(issues)

	if job.WordsTranslated > 0 {
		if err := r.ledger.DebitCredits(context.WithoutCancel(ctx), job.UserID, job.WordsTranslated); err != nil {
			return r.failRun(job, logger, services.Wrap(services.ErrTransient, stageCredits, "debit", "", err))
		}
	}

	if job.ErrorCount == 0 {
		job.Status = StatusCompleted
	} else {
		job.Status = StatusPartial
	}
	job.FinishedAt = r.now()
	r.report(job, logger, sampler, string(job.Status))

	attrs := []logging.Attr{
		logging.String("status", string(job.Status)),
		logging.Int("words_translated", job.WordsTranslated),
		logging.Int("errors", job.ErrorCount),
		logging.Duration("elapsed", job.FinishedAt.Sub(job.StartedAt)),
	}
	if job.Status == StatusPartial {
		logging.WarnWithContext(logger, "job finished with errors", "job_partial", append(attrs,
			logging.String(logging.FieldImpact, "failed cells keep their original text"),
			logging.String(logging.FieldErrorHint, "inspect job errors and retry"),
		)...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldEventType, "job_finished"))
		logger.Info("job finished", logging.Args(attrs...)...)
	}
	return nil
}

func (r *Runner) failRun(job *Job, logger *slog.Logger, err error) error {
	job.Status = StatusFailed
	job.FinishedAt = r.now()
	job.Errors = append(job.Errors, err.Error())
	job.Issues = append(job.Issues, err)
	job.ErrorCount++
	logging.ErrorWithContext(logger, "job failed", "job_failed",
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
	return err
}

func (r *Runner) report(job *Job, logger *slog.Logger, sampler *logging.ProgressSampler, message string) {
	percent := 100.0
	if job.TotalUnits > 0 {
		percent = float64(job.CompletedUnits) / float64(job.TotalUnits) * 100
	}
	if sampler.ShouldLog(percent, stageRun) {
		logger.Info("job progress",
			logging.String(logging.FieldEventType, "job_progress"),
			logging.Float64(logging.FieldProgressPercent, percent),
			logging.Int("completed", job.CompletedUnits),
			logging.Int("total", job.TotalUnits),
		)
	}
	if r.progress != nil {
		r.progress(job, Progress{
			Completed: job.CompletedUnits,
			Total:     job.TotalUnits,
			Percent:   percent,
			Message:   message,
		})
	}
}

func (r *Runner) jobLogger(job *Job) *slog.Logger {
	return r.logger.With(logging.String(logging.FieldJobID, job.ID))
}
