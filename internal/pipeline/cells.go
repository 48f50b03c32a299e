package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"sheetlingo/internal/brand"
	"sheetlingo/internal/cache"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/markup"
	"sheetlingo/internal/services"
	"sheetlingo/internal/textutil"
)

// cellTask is one (language, row, column) unit.
type cellTask struct {
	lang    int
	row     int
	col     int
	value   string
	matcher *brand.Matcher
}

type cellResult struct {
	task  cellTask
	value string
	words int
	err   error

	// collisions is set when the value holds unrestored placeholders.
	collisions []brand.Collision
}

// issue orders a recorded error by (language order, row, column).
type issue struct {
	lang int
	row  int
	col  int
	err  error
}

// fanOut dispatches every cell of job to a bounded worker pool and funnels
// the results through a single aggregator. It returns the cell-level issues
// in completion order.
func (r *Runner) fanOut(ctx context.Context, job *Job, logger *slog.Logger, sampler *logging.ProgressSampler) []issue {
	matcher := brand.NewMatcher(job.ProtectedTerms)
	results := make(chan cellResult, r.concurrency*2)
	collected := make(chan []issue, 1)

	go func() {
		collected <- r.aggregate(job, logger, sampler, results)
	}()

	var g errgroup.Group
	g.SetLimit(r.concurrency)

dispatch:
	for li := range job.TargetLanguages {
		for ri, row := range job.Source.Rows {
			for _, ci := range job.TextColumns {
				if ctx.Err() != nil {
					break dispatch
				}
				task := cellTask{lang: li, row: ri, col: ci, value: row[ci], matcher: matcher}
				if strings.TrimSpace(task.value) == "" {
					results <- cellResult{task: task, value: task.value}
					continue
				}
				g.Go(func() error {
					results <- r.translateCell(ctx, job, task)
					return nil
				})
			}
		}
	}
	_ = g.Wait()
	close(results)
	return <-collected
}

// aggregate is the only writer of job counters and result tables while the
// pool runs.
func (r *Runner) aggregate(job *Job, logger *slog.Logger, sampler *logging.ProgressSampler, results <-chan cellResult) []issue {
	var issues []issue
	for res := range results {
		lang := job.TargetLanguages[res.task.lang]
		header := job.Source.Headers[res.task.col]
		rowNum := res.task.row + 1
		job.CompletedUnits++

		switch {
		case res.err != nil:
			cellErr := &CellTranslationError{Row: rowNum, Column: header, Language: lang, Err: res.err}
			issues = append(issues, issue{lang: res.task.lang, row: res.task.row, col: res.task.col, err: cellErr})
			logging.WarnWithContext(logger, "cell translation failed", "cell_failed",
				logging.String(logging.FieldLanguage, lang),
				logging.Int(logging.FieldRow, rowNum),
				logging.String(logging.FieldColumn, header),
				logging.String(logging.FieldErrorKind, services.Kind(res.err)),
				logging.Error(res.err),
				logging.String(logging.FieldImpact, "cell keeps its original text"),
			)
		default:
			job.ResultsByLanguage[lang].Rows[res.task.row][res.task.col] = res.value
			job.WordsTranslated += res.words
			if len(res.collisions) > 0 {
				warn := &PlaceholderCollisionWarning{Row: rowNum, Column: header, Language: lang, Tokens: res.collisions}
				issues = append(issues, issue{lang: res.task.lang, row: res.task.row, col: res.task.col, err: warn})
				logging.WarnWithContext(logger, "placeholder collision", "placeholder_collision",
					logging.String(logging.FieldLanguage, lang),
					logging.Int(logging.FieldRow, rowNum),
					logging.String(logging.FieldColumn, header),
					logging.Int("tokens", len(res.collisions)),
					logging.String(logging.FieldImpact, "protected term left as a placeholder"),
					logging.String(logging.FieldErrorHint, "fix the cell by hand or retry the job"),
				)
			}
		}

		if job.CompletedUnits%r.progressEvery == 0 && job.CompletedUnits < job.TotalUnits {
			r.report(job, logger, sampler, "translating "+lang)
		}
	}
	return issues
}

// translateCell translates every text segment of one cell. Any segment
// failure fails the whole cell.
func (r *Runner) translateCell(ctx context.Context, job *Job, task cellTask) cellResult {
	res := cellResult{task: task}
	target := job.TargetLanguages[task.lang]
	// Once dispatched a cell runs to completion even if the job is canceled.
	ctx = services.WithLanguage(context.WithoutCancel(ctx), target)

	segs := markup.Split(task.value)
	for i, seg := range segs {
		if !seg.Translatable() {
			continue
		}
		lead, core, trail := markup.SplitSpace(seg.Content)
		protected := task.matcher.Protect(core)
		req := cache.NewRequest(core, job.SourceLanguage, target, job.ProtectedTerms)

		translated, hit, err := cache.Get(ctx, r.cache, req)
		if err != nil {
			r.logger.Debug("cache lookup failed", logging.Error(err))
			hit = false
		}
		if !hit {
			translated, err = r.call(ctx, protected.Text, job.SourceLanguage, target, job.Tone)
			if err != nil {
				res.err = err
				return res
			}
		}

		restored, collisions := brand.Restore(translated, protected)
		if len(collisions) > 0 {
			res.collisions = append(res.collisions, collisions...)
		} else if !hit {
			if err := cache.Put(ctx, r.cache, req, restored); err != nil {
				r.logger.Debug("cache store failed", logging.Error(err))
			}
		}
		segs[i].Content = lead + restored + trail
		res.words += textutil.WordCount(core)
	}
	res.value = markup.Join(segs)
	return res
}

// call runs one translation bounded by the per-call timeout.
func (r *Runner) call(ctx context.Context, text, source, target, tone string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	out, err := r.translator.Translate(callCtx, text, source, target, tone)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		err = services.Wrap(services.ErrTimeout, stageRun, "translate", fmt.Sprintf("no response within %s", r.callTimeout), err)
	}
	return out, err
}
