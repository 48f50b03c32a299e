package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sheetlingo/internal/cache"
	"sheetlingo/internal/config"
	"sheetlingo/internal/fileutil"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services/llm"
	"sheetlingo/internal/store"
	"sheetlingo/internal/workflow"
)

type translateOptions struct {
	to          []string
	from        string
	tone        string
	user        string
	terms       []string
	output      string
	concurrency int
	noCache     bool
	json        bool
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var opts translateOptions

	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate a catalog now and write one file per language",
		Long: `Translate a CSV or XLSX catalog synchronously.

Text columns are detected automatically; identifiers, prices and other
non-prose columns are copied unchanged. The job is recorded in the job
history like daemon jobs, and its files are written to the output
directory (and copied to --output when given).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				return runTranslate(cmd, ctx, cfg, st, args[0], opts)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&opts.to, "to", "t", nil, "Target languages, comma separated (required)")
	cmd.Flags().StringVarP(&opts.from, "from", "f", "", "Source language (default from config)")
	cmd.Flags().StringVar(&opts.tone, "tone", "", fmt.Sprintf("Tone preset (%s) or a free-text style instruction", strings.Join(llm.Tones(), ", ")))
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "User whose glossary and credits apply")
	cmd.Flags().StringArrayVar(&opts.terms, "term", nil, "Brand term to keep untranslated (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Directory to copy the translated files into")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Parallel translation calls (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Bypass the translation cache")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runTranslate(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, st *store.Store, path string, opts translateOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	translator, err := newTranslator(cfg)
	if err != nil {
		return err
	}

	var pipelineOpts []pipeline.Option
	if opts.noCache {
		pipelineOpts = append(pipelineOpts, pipeline.WithCache(cache.Nop{}))
	}
	if opts.concurrency > 0 {
		pipelineOpts = append(pipelineOpts, pipeline.WithConcurrency(opts.concurrency))
	}
	managerOpts := []workflow.ManagerOption{workflow.WithPipelineOptions(pipelineOpts...)}
	stderr := cmd.ErrOrStderr()
	showProgress := !opts.json && shouldColorize(stderr)
	if showProgress {
		managerOpts = append(managerOpts, workflow.WithProgressObserver(newProgressPrinter(stderr).observe))
	}
	mgr := workflow.NewManager(cfg, st, translator, ctx.logger(cfg), managerOpts...)

	runCtx := cmd.Context()
	rec, err := mgr.Submit(runCtx, pipeline.Input{
		UserID:          opts.user,
		FileName:        filepath.Base(path),
		Data:            data,
		SourceLanguage:  opts.from,
		TargetLanguages: opts.to,
		Tone:            opts.tone,
		ProtectedTerms:  opts.terms,
	})
	if err != nil && rec == nil {
		return err
	}
	if err == nil {
		rec, err = mgr.RunJob(runCtx, rec.ID)
		if err != nil {
			return err
		}
	}
	if showProgress {
		fmt.Fprintln(stderr)
	}

	readCtx := context.WithoutCancel(runCtx)
	jobErrors, err := st.JobErrors(readCtx, rec.ID)
	if err != nil {
		return err
	}
	artifacts, err := st.JobArtifacts(readCtx, rec.ID)
	if err != nil {
		return err
	}
	if opts.output != "" && len(artifacts) > 0 {
		if artifacts, err = copyArtifacts(artifacts, opts.output); err != nil {
			return err
		}
	}

	if opts.json {
		if err := writeJSON(cmd, jobResponse(rec, jobErrors, artifacts)); err != nil {
			return err
		}
	} else {
		renderJobDetail(cmd.OutOrStdout(), rec, jobErrors, artifacts, shouldColorize(cmd.OutOrStdout()))
	}

	if err := runCtx.Err(); err != nil {
		return err
	}
	if rec.Status == pipeline.StatusFailed {
		return fmt.Errorf("job %s failed: %s", shortID(rec.ID), rec.ErrorMessage)
	}
	return nil
}

// copyArtifacts copies job files into dir and returns the artifacts with
// their new paths.
func copyArtifacts(artifacts []store.Artifact, dir string) ([]store.Artifact, error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	out := make([]store.Artifact, len(artifacts))
	for i, a := range artifacts {
		dst := filepath.Join(expanded, a.Name)
		if err := fileutil.CopyFile(a.Path, dst); err != nil {
			return nil, fmt.Errorf("copy %s: %w", a.Name, err)
		}
		a.Path = dst
		out[i] = a
	}
	return out, nil
}

// progressPrinter redraws a single progress line on a terminal.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) observe(job *pipeline.Job, progress pipeline.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\r\x1b[2KTranslating %s: %s (%d/%d cells)",
		job.SourceName, formatPercent(progress.Percent), progress.Completed, progress.Total)
}
